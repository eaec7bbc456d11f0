package rentledger_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func period(start, end string) usage.Period {
	return usage.Period{Start: date(start), End: date(end)}
}

func occupiedRoom(rent int64) *room.Room {
	return &room.Room{
		ID:       id.NewRoomID(),
		Name:     "Phòng 101",
		BaseRent: types.VND(rent),
		Tenants:  []tenant.Tenant{{ID: id.NewTenantID(), Name: "Nguyễn Văn An"}},
	}
}

func mustAppend(t *testing.T, l *rentledger.Ledger, r *room.Room, electric, water int64, p usage.Period) (*room.Room, *usage.Record) {
	t.Helper()
	next, rec, err := l.AppendRecord(r, usage.Readings{Electric: electric, Water: water}, p)
	if err != nil {
		t.Fatalf("AppendRecord(%d, %d): %v", electric, water, err)
	}
	return next, rec
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	var ve rentledger.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if !errors.Is(err, rentledger.ErrInvalidInput) {
		t.Errorf("ValidationError does not match ErrInvalidInput")
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	var nf rentledger.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if !rentledger.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

// assertUntouched fails when r no longer deep-equals its earlier snapshot.
func assertUntouched(t *testing.T, snapshot, r *room.Room) {
	t.Helper()
	if !reflect.DeepEqual(snapshot, r) {
		t.Error("input room was modified by a failed operation")
	}
}

// ──────────────────────────────────────────────────
// A room from first bill to checkout
// ──────────────────────────────────────────────────

func TestBillingWalkthrough(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)

	// 1. First record bills against a zero baseline.
	r, rec1 := mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))
	if rec1.Usage != (usage.Readings{Electric: 100, Water: 10}) {
		t.Errorf("first bill usage: got %+v", rec1.Usage)
	}
	if !rec1.Amount.Equal(types.VND(2_600_000)) {
		t.Errorf("first bill amount: got %v, want 2.600.000", rec1.Amount)
	}
	if rec1.Paid {
		t.Error("first bill: new record is paid")
	}

	// 2. Second record bills the delta.
	r, rec2 := mustAppend(t, l, r, 150, 15, period("2024-02-01", "2024-03-01"))
	if rec2.Usage != (usage.Readings{Electric: 50, Water: 5}) {
		t.Errorf("second bill usage: got %+v", rec2.Usage)
	}
	if !rec2.Amount.Equal(types.VND(2_300_000)) {
		t.Errorf("second bill amount: got %v, want 2.300.000", rec2.Amount)
	}

	// 3. Editing the first record ripples into the second.
	r, edited, err := l.EditRecord(r, rec1.ID, rentledger.RecordEdit{
		Readings: usage.Readings{Electric: 120, Water: 10},
		Period:   rec1.Period,
	})
	if err != nil {
		t.Fatalf("cascade edit: %v", err)
	}
	if edited.Usage.Electric != 120 {
		t.Errorf("cascade edit edited usage: got %d, want 120", edited.Usage.Electric)
	}
	second := r.History[1]
	if second.Usage.Electric != 30 {
		t.Errorf("cascade edit successor usage: got %d, want 30", second.Usage.Electric)
	}
	if !second.Amount.Equal(types.VND(2_150_000)) {
		t.Errorf("cascade edit successor amount: got %v, want 2.150.000", second.Amount)
	}

	// 4. A reading below the last one is rejected.
	before := r.Clone()
	_, _, err = l.AppendRecord(r, usage.Readings{Electric: 90, Water: 20}, period("2024-03-01", "2024-04-01"))
	assertValidation(t, err)
	assertUntouched(t, before, r)

	// 5. Deleting the first record rebases the second on zero.
	r, err = l.DeleteRecord(r, rec1.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(r.History) != 1 {
		t.Fatalf("checkout: history length %d, want 1", len(r.History))
	}
	if got := r.History[0].Usage; got != (usage.Readings{Electric: 150, Water: 15}) {
		t.Errorf("checkout usage: got %+v, want {150 15}", got)
	}
}

func TestCheckoutScenario(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, _ = mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))
	r, _ = mustAppend(t, l, r, 150, 15, period("2024-02-01", "2024-03-01"))
	active := usage.CloneAll(r.History)

	finalRent := types.VND(1_500_000)
	out, final, err := l.Checkout(r, usage.Readings{Electric: 200, Water: 20}, period("2024-03-01", "2024-03-15"), &finalRent)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if final.Usage != (usage.Readings{Electric: 50, Water: 5}) {
		t.Errorf("final usage: got %+v", final.Usage)
	}
	if !final.BaseRent.Equal(finalRent) {
		t.Errorf("final rent: got %v, want %v", final.BaseRent, finalRent)
	}
	if want := types.VND(1_500_000 + 50*5_000 + 5*10_000); !final.Amount.Equal(want) {
		t.Errorf("final amount: got %v, want %v", final.Amount, want)
	}
	if len(final.Tenants) != 1 {
		t.Errorf("final record lost its tenant snapshot")
	}

	if len(out.History) != 0 {
		t.Errorf("active history not cleared: %d records", len(out.History))
	}
	if len(out.Archive) != 3 {
		t.Fatalf("archive length: got %d, want 3", len(out.Archive))
	}
	for i := range active {
		if !reflect.DeepEqual(out.Archive[i], active[i]) {
			t.Errorf("archive[%d] differs from the archived active record", i)
		}
	}
	if out.Archive[2].ID != final.ID {
		t.Error("final record is not last in the archive")
	}
	if out.Status() != room.StatusVacant || len(out.Tenants) != 0 {
		t.Errorf("room still occupied after checkout: %d tenants", len(out.Tenants))
	}
	if !out.BaseRent.Equal(types.VND(2_000_000)) {
		t.Errorf("checkout override leaked into the standing rent: %v", out.BaseRent)
	}
}

func TestCheckoutUsesStandingRentWithoutOverride(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)

	out, final, err := l.Checkout(r, usage.Readings{Electric: 10, Water: 1}, period("2024-01-01", "2024-01-20"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !final.Amount.Equal(types.VND(2_000_000 + 50_000 + 10_000)) {
		t.Errorf("got %v", final.Amount)
	}
	if len(out.Archive) != 1 {
		t.Errorf("archive length: got %d, want 1", len(out.Archive))
	}
}

// ──────────────────────────────────────────────────
// Ledger properties
// ──────────────────────────────────────────────────

func TestAppendKeepsReadingsMonotonic(t *testing.T) {
	l := rentledger.NewLedger()
	rng := rand.New(rand.NewPCG(7, 11))
	r := occupiedRoom(1_000_000)

	for i := 0; i < 200; i++ {
		last := r.LastReadings()
		rd := usage.Readings{
			Electric: last.Electric + rng.Int64N(40) - 10,
			Water:    last.Water + rng.Int64N(8) - 2,
		}
		before := r.Clone()
		next, _, err := l.AppendRecord(r, rd, period("2024-01-01", "2024-02-01"))
		if err != nil {
			assertValidation(t, err)
			assertUntouched(t, before, r)
			continue
		}
		r = next
	}

	if len(r.History) == 0 {
		t.Fatal("no append succeeded")
	}
	for i := 1; i < len(r.History); i++ {
		prev, cur := r.History[i-1].Readings, r.History[i].Readings
		if cur.Electric < prev.Electric || cur.Water < prev.Water {
			t.Fatalf("record %d readings %+v below predecessor %+v", i, cur, prev)
		}
	}
	if err := l.Verify(r); err != nil {
		t.Errorf("Verify after appends: %v", err)
	}
}

func TestUsageAndBillLaws(t *testing.T) {
	l := rentledger.NewLedger()
	rates := l.Rates()
	r := occupiedRoom(1_800_000)
	for _, rd := range []usage.Readings{{Electric: 40, Water: 3}, {Electric: 95, Water: 7}, {Electric: 95, Water: 9}, {Electric: 180, Water: 12}} {
		r, _ = mustAppend(t, l, r, rd.Electric, rd.Water, period("2024-01-01", "2024-02-01"))
	}

	for i, rec := range r.History {
		want := rec.Readings
		if i > 0 {
			want = rec.Readings.Sub(r.History[i-1].Readings)
		}
		if rec.Usage != want {
			t.Errorf("record %d usage: got %+v, want %+v", i, rec.Usage, want)
		}
		bill := r.BaseRent.Add(rates.Electric.Multiply(rec.Usage.Electric)).Add(rates.Water.Multiply(rec.Usage.Water))
		if !rec.Amount.Equal(bill) {
			t.Errorf("record %d amount: got %v, want %v", i, rec.Amount, bill)
		}
	}
}

func TestEditRecomputesOnlyRecordAndSuccessor(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	for _, e := range []int64{100, 150, 200, 260} {
		r, _ = mustAppend(t, l, r, e, e/10, period("2024-01-01", "2024-02-01"))
	}
	before := r.Clone()

	out, _, err := l.EditRecord(r, r.History[1].ID, rentledger.RecordEdit{
		Readings: usage.Readings{Electric: 170, Water: 16},
		Period:   r.History[1].Period,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(out.History[0], before.History[0]) {
		t.Error("predecessor (i-1) changed")
	}
	if !reflect.DeepEqual(out.History[3], before.History[3]) {
		t.Error("record i+2 changed")
	}
	if got := out.History[1].Usage; got != (usage.Readings{Electric: 70, Water: 6}) {
		t.Errorf("edited usage: got %+v", got)
	}
	if got := out.History[2].Usage; got != (usage.Readings{Electric: 30, Water: 4}) {
		t.Errorf("successor usage: got %+v", got)
	}
	assertUntouched(t, before, r)
}

// Edits ripple exactly one record forward. When the standing rent changed
// between edits, records beyond the successor keep the rent they were billed
// with; only the edited record and its successor pick up the new rent.
func TestEditCascadeStopsAtImmediateSuccessor(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	for _, e := range []int64{100, 150, 200} {
		r, _ = mustAppend(t, l, r, e, 10, period("2024-01-01", "2024-02-01"))
	}
	oldThird := r.History[2].Clone()

	r.BaseRent = types.VND(2_500_000)
	out, _, err := l.EditRecord(r, r.History[0].ID, rentledger.RecordEdit{
		Readings: r.History[0].Readings,
		Period:   r.History[0].Period,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !out.History[0].BaseRent.Equal(types.VND(2_500_000)) || !out.History[1].BaseRent.Equal(types.VND(2_500_000)) {
		t.Error("edited record and successor were not rebilled at the new rent")
	}
	if !reflect.DeepEqual(out.History[2], oldThird) {
		t.Error("cascade reached beyond the immediate successor")
	}
	if err := l.Verify(out); err != nil {
		t.Errorf("history inconsistent after one-step cascade: %v", err)
	}
}

func TestEditValidation(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, _ = mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))
	r, _ = mustAppend(t, l, r, 150, 15, period("2024-02-01", "2024-03-01"))
	r, _ = mustAppend(t, l, r, 200, 20, period("2024-03-01", "2024-04-01"))
	mid := r.History[1]
	negative := types.VND(-1)

	tests := []struct {
		name string
		edit rentledger.RecordEdit
	}{
		{"below predecessor", rentledger.RecordEdit{Readings: usage.Readings{Electric: 99, Water: 15}, Period: mid.Period}},
		{"above successor electric", rentledger.RecordEdit{Readings: usage.Readings{Electric: 201, Water: 15}, Period: mid.Period}},
		{"above successor water", rentledger.RecordEdit{Readings: usage.Readings{Electric: 150, Water: 21}, Period: mid.Period}},
		{"negative", rentledger.RecordEdit{Readings: usage.Readings{Electric: -1, Water: 15}, Period: mid.Period}},
		{"inverted period", rentledger.RecordEdit{Readings: mid.Readings, Period: period("2024-03-01", "2024-02-01")}},
		{"missing period", rentledger.RecordEdit{Readings: mid.Readings}},
		{"negative amount", rentledger.RecordEdit{Readings: mid.Readings, Period: mid.Period, Amount: &negative}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := r.Clone()
			_, _, err := l.EditRecord(r, mid.ID, tt.edit)
			assertValidation(t, err)
			assertUntouched(t, before, r)
		})
	}

	t.Run("unknown record", func(t *testing.T) {
		_, _, err := l.EditRecord(r, id.NewRecordID(), rentledger.RecordEdit{Readings: mid.Readings, Period: mid.Period})
		assertNotFound(t, err)
		if !errors.Is(err, rentledger.ErrRecordNotFound) {
			t.Errorf("got %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("equal to neighbours is allowed", func(t *testing.T) {
		if _, _, err := l.EditRecord(r, mid.ID, rentledger.RecordEdit{Readings: usage.Readings{Electric: 200, Water: 20}, Period: mid.Period}); err != nil {
			t.Errorf("upper bound: %v", err)
		}
		if _, _, err := l.EditRecord(r, mid.ID, rentledger.RecordEdit{Readings: usage.Readings{Electric: 100, Water: 10}, Period: mid.Period}); err != nil {
			t.Errorf("lower bound: %v", err)
		}
	})
}

func TestEditExplicitAmountAndPaid(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, rec := mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))

	amount := types.VND(2_400_000)
	paid := true
	out, edited, err := l.EditRecord(r, rec.ID, rentledger.RecordEdit{
		Readings: rec.Readings,
		Period:   rec.Period,
		Amount:   &amount,
		Paid:     &paid,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !edited.Amount.Equal(amount) || !edited.ManualAmount {
		t.Errorf("override not applied: %v manual=%v", edited.Amount, edited.ManualAmount)
	}
	if !edited.Paid {
		t.Error("paid flag not applied")
	}
	if err := l.Verify(out); err != nil {
		t.Errorf("manual amount flagged by Verify: %v", err)
	}

	_, edited, err = l.EditRecord(out, rec.ID, rentledger.RecordEdit{Readings: rec.Readings, Period: rec.Period})
	if err != nil {
		t.Fatal(err)
	}
	if !edited.Amount.Equal(types.VND(2_600_000)) || edited.ManualAmount {
		t.Errorf("edit without override kept manual amount: %v", edited.Amount)
	}
	if !edited.Paid {
		t.Error("paid flag changed without an explicit value")
	}
}

func TestDeleteRebasesSuccessor(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	for _, e := range []int64{100, 150, 230} {
		r, _ = mustAppend(t, l, r, e, e/10, period("2024-01-01", "2024-02-01"))
	}
	first := r.History[0].Clone()

	out, err := l.DeleteRecord(r, r.History[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.History) != 2 {
		t.Fatalf("length: got %d, want 2", len(out.History))
	}
	if !reflect.DeepEqual(out.History[0], first) {
		t.Error("predecessor changed")
	}
	if got := out.History[1].Usage; got != (usage.Readings{Electric: 130, Water: 13}) {
		t.Errorf("successor usage: got %+v, want {130 13}", got)
	}
	if len(r.History) != 3 {
		t.Error("input room was modified")
	}

	t.Run("last record", func(t *testing.T) {
		out, err := l.DeleteRecord(r, r.History[2].ID)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(out.History, r.History[:2]) {
			t.Error("deleting the last record touched the others")
		}
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := l.DeleteRecord(r, id.NewRecordID())
		assertNotFound(t, err)
	})
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, rec := mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))

	once, _, err := l.MarkPaid(r, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	twice, paid, err := l.MarkPaid(once, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !paid.Paid {
		t.Error("record not paid")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("second MarkPaid changed the room")
	}

	want := rec.Clone()
	want.Paid = true
	if !reflect.DeepEqual(twice.History[0], want) {
		t.Error("MarkPaid changed fields other than Paid")
	}

	_, _, err = l.MarkPaid(r, id.NewRecordID())
	assertNotFound(t, err)
}

func TestAppendValidation(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, _ = mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))

	tests := []struct {
		name   string
		rd     usage.Readings
		period usage.Period
	}{
		{"negative electric", usage.Readings{Electric: -5, Water: 10}, period("2024-02-01", "2024-03-01")},
		{"negative water", usage.Readings{Electric: 100, Water: -1}, period("2024-02-01", "2024-03-01")},
		{"electric regress", usage.Readings{Electric: 99, Water: 10}, period("2024-02-01", "2024-03-01")},
		{"water regress", usage.Readings{Electric: 100, Water: 9}, period("2024-02-01", "2024-03-01")},
		{"inverted period", usage.Readings{Electric: 110, Water: 11}, period("2024-03-01", "2024-02-01")},
		{"electric past maximum", usage.Readings{Electric: usage.MaxReading + 1, Water: 10}, period("2024-02-01", "2024-03-01")},
		{"water past maximum", usage.Readings{Electric: 100, Water: usage.MaxReading + 1}, period("2024-02-01", "2024-03-01")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := r.Clone()
			_, _, err := l.AppendRecord(r, tt.rd, tt.period)
			assertValidation(t, err)
			assertUntouched(t, before, r)
		})
	}

	t.Run("same-day period", func(t *testing.T) {
		if _, _, err := l.AppendRecord(r, usage.Readings{Electric: 100, Water: 10}, period("2024-02-01", "2024-02-01")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("vacant room", func(t *testing.T) {
		vacant := &room.Room{ID: id.NewRoomID(), Name: "Phòng 102", BaseRent: types.VND(1_800_000)}
		_, _, err := l.AppendRecord(vacant, usage.Readings{Electric: 1}, period("2024-01-01", "2024-02-01"))
		assertValidation(t, err)
		if !errors.Is(err, rentledger.ErrRoomVacant) {
			t.Errorf("got %v, want ErrRoomVacant", err)
		}
	})

	t.Run("foreign currency rent", func(t *testing.T) {
		usd := occupiedRoom(0)
		usd.BaseRent = types.USD(50000)
		_, _, err := l.AppendRecord(usd, usage.Readings{Electric: 1}, period("2024-01-01", "2024-02-01"))
		assertValidation(t, err)
	})

	t.Run("bill overflows", func(t *testing.T) {
		huge := occupiedRoom(math.MaxInt64 - 1_000)
		before := huge.Clone()
		_, _, err := l.AppendRecord(huge, usage.Readings{Electric: 1}, period("2024-01-01", "2024-02-01"))
		assertValidation(t, err)
		if !errors.Is(err, types.ErrOverflow) {
			t.Errorf("got %v, want ErrOverflow", err)
		}
		assertUntouched(t, before, huge)
	})

	t.Run("upper-case currency rent", func(t *testing.T) {
		r := occupiedRoom(0)
		r.BaseRent = types.Money{Amount: 2_000_000, Currency: "VND"}
		out, rec, err := l.AppendRecord(r, usage.Readings{Electric: 100, Water: 10}, period("2024-01-01", "2024-02-01"))
		if err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
		if rec.Amount.Amount != 2_600_000 {
			t.Errorf("amount: got %v, want 2.600.000", rec.Amount)
		}
		if err := l.Verify(out); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})
}

func TestAppendSnapshotsTenants(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, rec := mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))

	out, err := l.UpdateTenant(r, tenant.Tenant{ID: r.Tenants[0].ID, Name: "Trần Thị Bình"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Tenants[0].Name != "Trần Thị Bình" {
		t.Errorf("tenant not updated: %q", out.Tenants[0].Name)
	}
	if out.History[0].Tenants[0].Name != "Nguyễn Văn An" || rec.Tenants[0].Name != "Nguyễn Văn An" {
		t.Error("record snapshot followed the tenant edit")
	}

	_, err = l.UpdateTenant(r, tenant.Tenant{ID: id.NewTenantID(), Name: "X"})
	assertNotFound(t, err)
	if !errors.Is(err, rentledger.ErrTenantNotFound) {
		t.Errorf("got %v, want ErrTenantNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Occupancy state machine
// ──────────────────────────────────────────────────

func TestReplaceTenantsStateMachine(t *testing.T) {
	now := date("2024-05-10")
	l := rentledger.NewLedger(rentledger.WithLedgerClock(func() time.Time { return now }))
	vacant := &room.Room{ID: id.NewRoomID(), Name: "Phòng 102", BaseRent: types.VND(1_800_000)}

	// VACANT -> OCCUPIED
	occ, archived, err := l.ReplaceTenants(vacant, []tenant.Tenant{{Name: " Lê Văn C ", Phone: "0987654321"}})
	if err != nil {
		t.Fatal(err)
	}
	if archived != nil || len(occ.History) != 0 || len(occ.Archive) != 0 {
		t.Error("moving in touched the ledgers")
	}
	if occ.Status() != room.StatusOccupied {
		t.Errorf("status: got %s", occ.Status())
	}
	moved := occ.Tenants[0]
	if moved.ID.IsNil() || moved.Name != "Lê Văn C" || !moved.MoveInDate.Equal(now) {
		t.Errorf("tenant not normalized: %+v", moved)
	}

	occ, _ = mustAppend(t, l, occ, 10, 1, period("2024-05-10", "2024-06-10"))
	occ, _ = mustAppend(t, l, occ, 20, 2, period("2024-06-10", "2024-07-10"))
	active := usage.CloneAll(occ.History)

	// OCCUPIED -> OCCUPIED (roommate added) leaves history alone.
	both, archived, err := l.ReplaceTenants(occ, append(tenant.Clone(occ.Tenants), tenant.Tenant{Name: "Phạm D"}))
	if err != nil {
		t.Fatal(err)
	}
	if archived != nil || !reflect.DeepEqual(both.History, occ.History) {
		t.Error("tenant change without vacancy touched history")
	}

	// OCCUPIED -> VACANT archives without appending.
	gone, archived, err := l.ReplaceTenants(both, nil)
	if err != nil {
		t.Fatal(err)
	}
	if gone.Status() != room.StatusVacant || len(gone.History) != 0 {
		t.Error("room not vacated")
	}
	if !reflect.DeepEqual(gone.Archive, active) || !reflect.DeepEqual(archived, active) {
		t.Error("archive does not hold the whole active history in order")
	}

	// VACANT -> VACANT is a no-op.
	still, archived, err := l.ReplaceTenants(gone, []tenant.Tenant{})
	if err != nil {
		t.Fatal(err)
	}
	if archived != nil || !reflect.DeepEqual(still, gone) {
		t.Error("vacant-to-vacant changed the room")
	}
}

func TestReplaceTenantsValidation(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	tests := []struct {
		name    string
		tenants []tenant.Tenant
	}{
		{"missing name", []tenant.Tenant{{Name: "  "}}},
		{"bad phone", []tenant.Tenant{{Name: "An", Phone: "12"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := r.Clone()
			_, _, err := l.ReplaceTenants(r, tt.tenants)
			assertValidation(t, err)
			assertUntouched(t, before, r)
		})
	}
}

func TestArchiveNeverRecalculated(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, _ = mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))
	r, _ = mustAppend(t, l, r, 150, 15, period("2024-02-01", "2024-03-01"))
	r, _, err := l.ReplaceTenants(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	archive := usage.CloneAll(r.Archive)

	r, _, err = l.ReplaceTenants(r, []tenant.Tenant{{Name: "Người mới"}})
	if err != nil {
		t.Fatal(err)
	}
	r.BaseRent = types.VND(3_000_000)
	r, first := mustAppend(t, l, r, 5, 1, period("2024-04-01", "2024-05-01"))
	r, second := mustAppend(t, l, r, 50, 4, period("2024-05-01", "2024-06-01"))

	if first.Usage != (usage.Readings{Electric: 5, Water: 1}) {
		t.Errorf("new tenancy did not start from zero: %+v", first.Usage)
	}
	r, _, err = l.EditRecord(r, first.ID, rentledger.RecordEdit{Readings: usage.Readings{Electric: 6, Water: 1}, Period: first.Period})
	if err != nil {
		t.Fatal(err)
	}
	r, err = l.DeleteRecord(r, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	r, _, err = l.MarkPaid(r, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	finalRent := types.VND(1)
	r, _, err = l.Checkout(r, usage.Readings{Electric: 60, Water: 5}, period("2024-06-01", "2024-06-02"), &finalRent)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(r.Archive[:len(archive)], archive) {
		t.Error("previously archived records changed")
	}
}

// ──────────────────────────────────────────────────
// Verification
// ──────────────────────────────────────────────────

func TestVerify(t *testing.T) {
	l := rentledger.NewLedger()
	r := occupiedRoom(2_000_000)
	r, _ = mustAppend(t, l, r, 100, 10, period("2024-01-01", "2024-02-01"))
	r, _ = mustAppend(t, l, r, 150, 15, period("2024-02-01", "2024-03-01"))

	if err := l.Verify(r); err != nil {
		t.Fatalf("consistent history flagged: %v", err)
	}

	broken := r.Clone()
	broken.History[1].Usage.Electric = 49
	broken.History[0].Amount = types.VND(1)

	err := l.Verify(broken)
	var me rentledger.MultiError
	if !errors.As(err, &me) {
		t.Fatalf("got %v, want MultiError", err)
	}
	if len(me.Errors) != 2 {
		t.Errorf("got %d problems, want 2: %v", len(me.Errors), me.Errors)
	}
	if !rentledger.IsValidation(err) {
		t.Error("verification problems are not validation errors")
	}
}
