package room

import (
	"errors"

	"github.com/nhatro/rentledger/id"
)

// Ordering errors.
var (
	ErrUnknownRoom      = errors.New("room: unknown room in ordering")
	ErrPinGroupMismatch = errors.New("room: rooms belong to different pin groups")
)

// Move drops the room moving onto the slot held by target and renumbers
// Position for every room. Dragging up lands the room before target and
// dragging down lands it after, so moving A onto B in A, B, C yields B, A, C.
// Both rooms must share the same pin state; a pinned room cannot be dragged
// among unpinned ones. It returns the rooms whose Position changed.
func Move(rooms []*Room, moving, target id.RoomID) ([]*Room, error) {
	ordered := make([]*Room, len(rooms))
	copy(ordered, rooms)
	Sort(ordered)

	from, to := -1, -1
	for i, r := range ordered {
		switch r.ID {
		case moving:
			from = i
		case target:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return nil, ErrUnknownRoom
	}
	if ordered[from].Pinned != ordered[to].Pinned {
		return nil, ErrPinGroupMismatch
	}

	m := ordered[from]
	ordered = append(ordered[:from], ordered[from+1:]...)
	ordered = append(ordered[:to], append([]*Room{m}, ordered[to:]...)...)

	return Renumber(ordered), nil
}

// Renumber assigns Position = index for rooms already in display order and
// returns the rooms whose Position changed.
func Renumber(ordered []*Room) []*Room {
	var changed []*Room
	for i, r := range ordered {
		if r.Position != i {
			r.Position = i
			changed = append(changed, r)
		}
	}
	return changed
}
