package rentledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/types"
)

// orderLockKey guards operations that rewrite positions or names across
// rooms.
const orderLockKey = "rooms:order"

// RoomInput holds the fields of a new room.
type RoomInput struct {
	Name     string `json:"name" validate:"required,max=64"`
	BaseRent int64  `json:"base_rent" validate:"gte=0"`
}

// RoomUpdate changes a room's name or rent. Nil fields are left unchanged.
type RoomUpdate struct {
	Name     *string `json:"name,omitempty" validate:"omitnil,required,max=64"`
	BaseRent *int64  `json:"base_rent,omitempty" validate:"omitnil,gte=0"`
}

// ──────────────────────────────────────────────────
// Room Management
// ──────────────────────────────────────────────────

// CreateRoom creates a vacant room with empty ledgers at the end of the
// unpinned group. Room names are unique, ignoring case.
func (e *Engine) CreateRoom(ctx context.Context, in RoomInput) (*room.Room, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := e.check(in); err != nil {
		return nil, err
	}

	lk, err := e.locker.Obtain(ctx, orderLockKey)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	defer e.release(ctx, lk, orderLockKey)

	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if err := nameTaken(rooms, in.Name, id.Nil); err != nil {
		return nil, err
	}

	r := &room.Room{
		Entity:   types.NewEntity(),
		ID:       id.NewRoomID(),
		Name:     in.Name,
		BaseRent: types.VND(in.BaseRent),
	}
	for _, other := range rooms {
		if other.Position >= r.Position {
			r.Position = other.Position + 1
		}
	}

	if err := e.store.CreateRoom(ctx, r); err != nil {
		return nil, err
	}

	e.plugins.EmitRoomCreated(ctx, r)
	return r, nil
}

// GetRoom retrieves a room by ID.
func (e *Engine) GetRoom(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	return e.getRoom(ctx, roomID)
}

// ListRooms returns the rooms matching opts in display order.
func (e *Engine) ListRooms(ctx context.Context, opts room.ListOpts) ([]*room.Room, error) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := rooms[:0]
	for _, r := range rooms {
		if opts.Match(r) {
			out = append(out, r)
		}
	}
	room.Sort(out)
	return out, nil
}

// UpdateRoom renames a room or changes its base rent. A new rent applies to
// records computed from now on; stored records keep the rent they were
// billed at.
func (e *Engine) UpdateRoom(ctx context.Context, roomID id.RoomID, upd RoomUpdate) (*room.Room, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if err := e.check(upd); err != nil {
		return nil, err
	}

	if upd.Name != nil {
		// Renames hold the ordering lock so two rooms cannot both claim a name.
		lk, err := e.locker.Obtain(ctx, orderLockKey)
		if err != nil {
			return nil, fmt.Errorf("update room: %w", err)
		}
		defer e.release(ctx, lk, orderLockKey)

		rooms, err := e.store.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		if err := nameTaken(rooms, *upd.Name, roomID); err != nil {
			return nil, err
		}
	}

	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		next := cur.Clone()
		if upd.Name != nil {
			next.Name = *upd.Name
		}
		if upd.BaseRent != nil {
			next.BaseRent = types.VND(*upd.BaseRent)
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitRoomUpdated(ctx, r)
	return r, nil
}

// DeleteRoom removes a vacant room together with its archive. Occupied rooms
// must be checked out first.
func (e *Engine) DeleteRoom(ctx context.Context, roomID id.RoomID) error {
	key := roomLockKey(roomID)
	lk, err := e.locker.Obtain(ctx, key)
	if err != nil {
		return fmt.Errorf("room %s: %w", roomID, err)
	}
	defer e.release(ctx, lk, key)

	r, err := e.getRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if r.Occupied() {
		return ErrRoomOccupied
	}
	if err := e.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	e.plugins.EmitRoomDeleted(ctx, roomID)
	return nil
}

// TogglePin moves a room in or out of the pinned group. Its position is
// kept, so rooms keep their relative order inside each group.
func (e *Engine) TogglePin(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		next := cur.Clone()
		next.Pinned = !next.Pinned
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitRoomUpdated(ctx, r)
	return r, nil
}

// MoveRoom drops a room onto the position held by target, landing before it
// when dragged up and after it when dragged down. Both rooms must be in the
// same pin group. Only rooms whose position changes are written.
func (e *Engine) MoveRoom(ctx context.Context, roomID, target id.RoomID) ([]*room.Room, error) {
	if roomID == target {
		_, err := e.getRoom(ctx, roomID)
		return nil, err
	}

	lk, err := e.locker.Obtain(ctx, orderLockKey)
	if err != nil {
		return nil, fmt.Errorf("move room: %w", err)
	}
	defer e.release(ctx, lk, orderLockKey)

	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	changed, err := room.Move(rooms, roomID, target)
	switch {
	case errors.Is(err, room.ErrUnknownRoom):
		if !hasRoom(rooms, roomID) {
			return nil, notFound("room", roomID)
		}
		return nil, notFound("room", target)
	case errors.Is(err, room.ErrPinGroupMismatch):
		return nil, ValidationError{Field: "target", Message: "rooms are in different pin groups", Err: err}
	case err != nil:
		return nil, err
	}

	out := make([]*room.Room, 0, len(changed))
	for _, c := range changed {
		pos := c.Position
		r, err := e.mutateRoom(ctx, c.ID, func(cur *room.Room) (*room.Room, error) {
			next := cur.Clone()
			next.Position = pos
			return next, nil
		})
		if err != nil {
			return out, err
		}
		out = append(out, r)
		e.plugins.EmitRoomUpdated(ctx, r)
	}
	return out, nil
}

// SuggestRoom proposes a name and base rent for the next room.
func (e *Engine) SuggestRoom(ctx context.Context) (string, types.Money, error) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return "", types.Money{}, err
	}
	name, rent := room.SuggestName(rooms)
	return name, rent, nil
}

func nameTaken(rooms []*room.Room, name string, self id.RoomID) error {
	for _, r := range rooms {
		if r.ID != self && strings.EqualFold(r.Name, name) {
			return ValidationError{Field: "name", Message: fmt.Sprintf("room %q already exists", name), Err: ErrAlreadyExists}
		}
	}
	return nil
}

func hasRoom(rooms []*room.Room, roomID id.RoomID) bool {
	for _, r := range rooms {
		if r.ID == roomID {
			return true
		}
	}
	return false
}
