package room

import (
	"errors"
	"testing"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

func names(rooms []*Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStatusFollowsTenants(t *testing.T) {
	r := &Room{Name: "Phòng 101"}
	if r.Status() != StatusVacant {
		t.Errorf("got %s, want vacant", r.Status())
	}
	r.Tenants = []tenant.Tenant{{Name: "An"}, {Name: "Bình"}}
	if r.Status() != StatusOccupied {
		t.Errorf("got %s, want occupied", r.Status())
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := &Room{
		ID:      id.NewRoomID(),
		Tenants: []tenant.Tenant{{Name: "An"}},
		History: []*usage.Record{{ID: id.NewRecordID()}},
		Archive: []*usage.Record{{ID: id.NewRecordID()}},
	}
	cp := r.Clone()
	cp.Tenants[0].Name = "X"
	cp.History[0].Paid = true
	cp.Archive[0].Paid = true

	if r.Tenants[0].Name != "An" || r.History[0].Paid || r.Archive[0].Paid {
		t.Error("clone shares state with original")
	}
}

func TestNumber(t *testing.T) {
	tests := map[string]string{
		"Phòng 101": "101",
		"P202B":     "202",
		"Gác mái":   "",
	}
	for name, want := range tests {
		r := &Room{Name: name}
		if got := r.Number(); got != want {
			t.Errorf("%q: got %q, want %q", name, got, want)
		}
	}
}

func TestListOptsMatch(t *testing.T) {
	occupied := &Room{Name: "Phòng 101", Tenants: []tenant.Tenant{{Name: "Nguyễn Văn An", Phone: "098 765 43 21"}}}
	vacant := &Room{Name: "Phòng 102"}

	tests := []struct {
		name string
		opts ListOpts
		room *Room
		want bool
	}{
		{"no filter", ListOpts{}, vacant, true},
		{"status match", ListOpts{Status: StatusVacant}, vacant, true},
		{"status mismatch", ListOpts{Status: StatusOccupied}, vacant, false},
		{"room name", ListOpts{Search: "101"}, occupied, true},
		{"tenant name", ListOpts{Search: "văn an"}, occupied, true},
		{"tenant phone", ListOpts{Search: "0987"}, occupied, true},
		{"tenant phone typed without spaces", ListOpts{Search: "0987654321"}, occupied, true},
		{"tenant phone typed with dots", ListOpts{Search: "0987.654.321"}, occupied, true},
		{"tenant phone mismatch", ListOpts{Search: "0911"}, occupied, false},
		{"no match", ListOpts{Search: "zzz"}, occupied, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Match(tt.room); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortPinnedFirst(t *testing.T) {
	rooms := []*Room{
		{Name: "A", Position: 0},
		{Name: "B", Position: 1, Pinned: true},
		{Name: "C", Position: 2},
		{Name: "D", Position: 3, Pinned: true},
	}
	Sort(rooms)
	if got, want := names(rooms), []string{"B", "D", "A", "C"}; !equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMove(t *testing.T) {
	mk := func() []*Room {
		return []*Room{
			{ID: id.NewRoomID(), Name: "A", Position: 0},
			{ID: id.NewRoomID(), Name: "B", Position: 1},
			{ID: id.NewRoomID(), Name: "C", Position: 2},
			{ID: id.NewRoomID(), Name: "P", Position: 3, Pinned: true},
		}
	}

	t.Run("forward", func(t *testing.T) {
		rooms := mk()
		if _, err := Move(rooms, rooms[0].ID, rooms[2].ID); err != nil {
			t.Fatal(err)
		}
		Sort(rooms)
		if got, want := names(rooms), []string{"P", "B", "C", "A"}; !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("onto next neighbour", func(t *testing.T) {
		rooms := mk()
		if _, err := Move(rooms, rooms[0].ID, rooms[1].ID); err != nil {
			t.Fatal(err)
		}
		Sort(rooms)
		if got, want := names(rooms), []string{"P", "B", "A", "C"}; !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("backward", func(t *testing.T) {
		rooms := mk()
		if _, err := Move(rooms, rooms[2].ID, rooms[0].ID); err != nil {
			t.Fatal(err)
		}
		Sort(rooms)
		if got, want := names(rooms), []string{"P", "C", "A", "B"}; !equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("across pin groups", func(t *testing.T) {
		rooms := mk()
		if _, err := Move(rooms, rooms[0].ID, rooms[3].ID); !errors.Is(err, ErrPinGroupMismatch) {
			t.Errorf("got %v, want ErrPinGroupMismatch", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		rooms := mk()
		if _, err := Move(rooms, id.NewRoomID(), rooms[0].ID); !errors.Is(err, ErrUnknownRoom) {
			t.Errorf("got %v, want ErrUnknownRoom", err)
		}
	})
}

func TestSuggestName(t *testing.T) {
	name, rent := SuggestName(nil)
	if name != "Phòng 101" || !rent.IsZero() {
		t.Errorf("empty: got %q %v", name, rent)
	}

	rooms := []*Room{
		{Name: "Phòng 101", Position: 0, BaseRent: types.VND(2000000)},
		{Name: "Phòng 105", Position: 1, BaseRent: types.VND(1800000)},
	}
	name, rent = SuggestName(rooms)
	if name != "Phòng 106" {
		t.Errorf("name: got %q", name)
	}
	if !rent.Equal(types.VND(1800000)) {
		t.Errorf("rent: got %v", rent)
	}
}
