// Package room defines rental rooms, their occupancy and their usage ledgers.
package room

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// Status is the occupancy state of a room.
type Status string

const (
	StatusOccupied Status = "occupied"
	StatusVacant   Status = "vacant"
)

// Room is a rentable unit together with its current tenants, the usage
// ledger of the current tenancy and the archived ledgers of past tenancies.
type Room struct {
	types.Entity
	ID       id.RoomID       `json:"id"`
	Name     string          `json:"name"`
	BaseRent types.Money     `json:"base_rent"`
	Tenants  []tenant.Tenant `json:"tenants"`

	// History is the active usage ledger, ordered by insertion.
	History []*usage.Record `json:"usage_history"`

	// Archive holds the ledgers of prior tenancies. Records here are never
	// recalculated.
	Archive []*usage.Record `json:"archived_usage_history"`

	Pinned   bool `json:"pinned"`
	Position int  `json:"position"`
}

// Status reports occupancy: a room is occupied exactly when it has tenants.
func (r *Room) Status() Status {
	if len(r.Tenants) > 0 {
		return StatusOccupied
	}
	return StatusVacant
}

// Occupied is shorthand for Status() == StatusOccupied.
func (r *Room) Occupied() bool { return len(r.Tenants) > 0 }

// Clone returns a deep copy, including both ledgers.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Tenants = tenant.Clone(r.Tenants)
	cp.History = usage.CloneAll(r.History)
	cp.Archive = usage.CloneAll(r.Archive)
	return &cp
}

// Record returns the active record with the given ID and its index, or
// (nil, -1).
func (r *Room) Record(recordID id.RecordID) (*usage.Record, int) {
	i := usage.Index(r.History, recordID)
	if i < 0 {
		return nil, -1
	}
	return r.History[i], i
}

// LastReadings returns the readings of the newest active record, or zero
// readings for an empty ledger.
func (r *Room) LastReadings() usage.Readings {
	if n := len(r.History); n > 0 {
		return r.History[n-1].Readings
	}
	return usage.Readings{}
}

var digits = regexp.MustCompile(`\d+`)

// Number extracts the first run of digits from the room name ("Phòng 101"
// yields "101"). Rooms without digits return "".
func (r *Room) Number() string {
	return digits.FindString(r.Name)
}

// ──────────────────────────────────────────────────
// Listing
// ──────────────────────────────────────────────────

// ListOpts filters room listings.
type ListOpts struct {
	Status Status // empty = any
	Search string // room name, tenant name or tenant phone
}

// Match reports whether r satisfies the filter.
func (o ListOpts) Match(r *Room) bool {
	if o.Status != "" && r.Status() != o.Status {
		return false
	}
	q := strings.TrimSpace(o.Search)
	if q == "" {
		return true
	}
	if types.ContainsFold(r.Name, q) {
		return true
	}
	digits := onlyDigits(q)
	for _, t := range r.Tenants {
		if types.ContainsFold(t.Name, q) {
			return true
		}
		if digits != "" && strings.Contains(onlyDigits(t.Phone), digits) {
			return true
		}
	}
	return false
}

// onlyDigits drops every character of s that is not an ASCII digit, so
// "090 123 45 67" and "0901234567" compare equal.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Sort orders rooms for display: pinned rooms first, then by Position.
// The sort is stable so equal positions keep their input order.
func Sort(rooms []*Room) {
	slices.SortStableFunc(rooms, func(a, b *Room) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		return a.Position - b.Position
	})
}

// SuggestName proposes the next room name ("Phòng <highest number + 1>") and
// the base rent of the most recently positioned room.
func SuggestName(rooms []*Room) (string, types.Money) {
	name := "Phòng 101"
	rent := types.Zero(types.DefaultCurrency)

	highest, last := 0, -1
	for i, r := range rooms {
		if n, err := strconv.Atoi(r.Number()); err == nil && n > highest {
			highest = n
		}
		if last < 0 || r.Position >= rooms[last].Position {
			last = i
		}
	}
	if highest > 0 {
		name = "Phòng " + strconv.Itoa(highest+1)
	}
	if last >= 0 {
		rent = rooms[last].BaseRent
	}
	return name, rent
}

