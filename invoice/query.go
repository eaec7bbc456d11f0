package invoice

import (
	"slices"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// DefaultPageSize is the number of entries per page when a query does not
// set one.
const DefaultPageSize = 10

// Entry is a record listed together with its room.
type Entry struct {
	RoomID   id.RoomID     `json:"room_id"`
	RoomName string        `json:"room_name"`
	Record   *usage.Record `json:"record"`
}

// Active flattens the active histories of rooms into entries.
func Active(rooms []*room.Room) []Entry {
	return flatten(rooms, func(r *room.Room) []*usage.Record { return r.History })
}

// Archived flattens the archived histories of rooms into entries.
func Archived(rooms []*room.Room) []Entry {
	return flatten(rooms, func(r *room.Room) []*usage.Record { return r.Archive })
}

func flatten(rooms []*room.Room, records func(*room.Room) []*usage.Record) []Entry {
	var out []Entry
	for _, r := range rooms {
		for _, rec := range records(r) {
			out = append(out, Entry{RoomID: r.ID, RoomName: r.Name, Record: rec})
		}
	}
	return out
}

// PaidFilter restricts a listing by payment state.
type PaidFilter string

const (
	PaidAny    PaidFilter = ""
	PaidOnly   PaidFilter = "paid"
	UnpaidOnly PaidFilter = "unpaid"
)

// SortOrder orders a listing by record end date.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// Query filters, orders and paginates entries.
type Query struct {
	// Search matches the room name or any tenant name captured on the
	// record, ignoring case and diacritics.
	Search   string     `form:"search" json:"search"`
	RoomID   id.RoomID  `form:"-" json:"room_id"`
	Paid     PaidFilter `form:"status" json:"status" binding:"omitempty,oneof=paid unpaid"`
	Sort     SortOrder  `form:"sort" json:"sort" binding:"omitempty,oneof=newest oldest"`
	Page     int        `form:"page" json:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" json:"page_size" binding:"omitempty,min=1,max=100"`
}

// Page is one page of a listing.
type Page struct {
	Items    []Entry `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Pages    int     `json:"pages"`
}

// List applies q to entries. Page numbers are 1-based and clamped to the
// available range.
func List(entries []Entry, q Query) Page {
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if q.match(e) {
			filtered = append(filtered, e)
		}
	}

	slices.SortStableFunc(filtered, func(a, b Entry) int {
		c := a.Record.Period.End.Compare(b.Record.Period.End)
		if q.Sort == SortOldest {
			return c
		}
		return -c
	})

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(filtered) + size - 1) / size
	page := min(max(q.Page, 1), max(pages, 1))

	start := min((page-1)*size, len(filtered))
	end := min(start+size, len(filtered))

	return Page{
		Items:    filtered[start:end],
		Total:    len(filtered),
		Page:     page,
		PageSize: size,
		Pages:    pages,
	}
}

func (q Query) match(e Entry) bool {
	if !q.RoomID.IsNil() && e.RoomID != q.RoomID {
		return false
	}
	switch q.Paid {
	case PaidOnly:
		if !e.Record.Paid {
			return false
		}
	case UnpaidOnly:
		if e.Record.Paid {
			return false
		}
	}
	if q.Search == "" || types.ContainsFold(e.RoomName, q.Search) {
		return true
	}
	for _, t := range e.Record.Tenants {
		if types.ContainsFold(t.Name, q.Search) {
			return true
		}
	}
	return false
}
