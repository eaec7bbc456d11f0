package rentledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// Ledger applies usage-ledger mutations to rooms.
//
// Every operation takes a room, validates the request against it and returns
// a new room. The input room is never modified, so a rejected request leaves
// the caller's state exactly as it was. Ledger owns no I/O and no locks; see
// Engine for the persistent, concurrency-safe wrapper.
type Ledger struct {
	rates usage.Rates
	now   func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerRates sets the unit prices.
func WithLedgerRates(r usage.Rates) LedgerOption {
	return func(l *Ledger) { l.rates = r }
}

// WithLedgerClock sets the clock used for record creation times and default
// move-in dates.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger using the default rates.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		rates: usage.DefaultRates(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Rates returns the unit prices in effect.
func (l *Ledger) Rates() usage.Rates { return l.rates }

// RecordEdit is a full replacement of a record's editable fields.
type RecordEdit struct {
	Readings usage.Readings
	Period   usage.Period

	// Amount overrides the computed bill when set.
	Amount *types.Money
	// Paid sets the paid flag when set; otherwise it is left unchanged.
	Paid *bool
}

// ──────────────────────────────────────────────────
// Metering
// ──────────────────────────────────────────────────

// AppendRecord adds a billing period to the end of the room's active
// history. Usage is measured from the previous record, or from zero for the
// first record of a tenancy. The new record is unpaid and snapshots the
// current tenants.
func (l *Ledger) AppendRecord(r *room.Room, readings usage.Readings, period usage.Period) (*room.Room, *usage.Record, error) {
	if err := l.checkAppend(r, readings, period); err != nil {
		return nil, nil, err
	}

	next := r.Clone()
	rec := l.newRecord(next, readings, period, next.BaseRent)
	next.History = append(next.History, rec)
	return next, rec, nil
}

// EditRecord replaces a record's readings and period. The record is
// recomputed against its predecessor, and its immediate successor (if any)
// is recomputed against the edited readings. The cascade stops there.
func (l *Ledger) EditRecord(r *room.Room, recordID id.RecordID, edit RecordEdit) (*room.Room, *usage.Record, error) {
	if r == nil {
		return nil, nil, invalid("room", "room is required")
	}
	_, i := r.Record(recordID)
	if i < 0 {
		return nil, nil, notFound("record", recordID)
	}

	if err := validatePeriod(edit.Period); err != nil {
		return nil, nil, err
	}
	var ceiling *usage.Readings
	if i+1 < len(r.History) {
		ceiling = &r.History[i+1].Readings
	}
	if err := validateReadings(edit.Readings, previous(r.History, i), ceiling); err != nil {
		return nil, nil, err
	}
	if err := l.checkCurrency("base_rent", r.BaseRent); err != nil {
		return nil, nil, err
	}
	if err := l.checkBill(r.BaseRent, edit.Readings.Sub(previous(r.History, i))); err != nil {
		return nil, nil, err
	}
	if ceiling != nil {
		if err := l.checkBill(r.BaseRent, ceiling.Sub(edit.Readings)); err != nil {
			return nil, nil, err
		}
	}
	if edit.Amount != nil {
		if edit.Amount.IsNegative() {
			return nil, nil, invalid("amount", "bill amount must not be negative")
		}
		if err := l.checkCurrency("amount", *edit.Amount); err != nil {
			return nil, nil, err
		}
	}

	next := r.Clone()
	rec := next.History[i]
	rec.Readings = edit.Readings
	rec.Period = normalizePeriod(edit.Period)
	l.compute(rec, previous(next.History, i), next.BaseRent)
	if edit.Amount != nil {
		rec.Amount = *edit.Amount
		rec.ManualAmount = true
	}
	if edit.Paid != nil {
		rec.Paid = *edit.Paid
	}

	if i+1 < len(next.History) {
		l.compute(next.History[i+1], rec.Readings, next.BaseRent)
	}
	return next, rec, nil
}

// DeleteRecord removes a record. The record that moves into its position is
// recomputed against its new predecessor, or against zero if it is now
// first.
func (l *Ledger) DeleteRecord(r *room.Room, recordID id.RecordID) (*room.Room, error) {
	if r == nil {
		return nil, invalid("room", "room is required")
	}
	_, i := r.Record(recordID)
	if i < 0 {
		return nil, notFound("record", recordID)
	}
	if i < len(r.History)-1 {
		if err := l.checkCurrency("base_rent", r.BaseRent); err != nil {
			return nil, err
		}
		if err := l.checkBill(r.BaseRent, r.History[i+1].Readings.Sub(previous(r.History, i))); err != nil {
			return nil, err
		}
	}

	next := r.Clone()
	next.History = slices.Delete(next.History, i, i+1)
	if i < len(next.History) {
		l.compute(next.History[i], previous(next.History, i), next.BaseRent)
	}
	return next, nil
}

// MarkPaid flags a record as paid. Marking an already-paid record is a
// no-op.
func (l *Ledger) MarkPaid(r *room.Room, recordID id.RecordID) (*room.Room, *usage.Record, error) {
	if r == nil {
		return nil, nil, invalid("room", "room is required")
	}
	if _, i := r.Record(recordID); i < 0 {
		return nil, nil, notFound("record", recordID)
	}

	next := r.Clone()
	rec, _ := next.Record(recordID)
	rec.Paid = true
	return next, rec, nil
}

// ──────────────────────────────────────────────────
// Occupancy
// ──────────────────────────────────────────────────

// Checkout closes the tenancy: it appends a final record (billed at
// finalRent when given, else the room's base rent), moves the whole active
// history into the archive and removes all tenants.
func (l *Ledger) Checkout(r *room.Room, readings usage.Readings, period usage.Period, finalRent *types.Money) (*room.Room, *usage.Record, error) {
	if err := l.checkAppend(r, readings, period); err != nil {
		return nil, nil, err
	}
	rent := r.BaseRent
	if finalRent != nil {
		if finalRent.IsNegative() {
			return nil, nil, invalid("base_rent", "final rent must not be negative")
		}
		if err := l.checkCurrency("base_rent", *finalRent); err != nil {
			return nil, nil, err
		}
		rent = *finalRent
		if err := l.checkBill(rent, readings.Sub(r.LastReadings())); err != nil {
			return nil, nil, err
		}
	}

	next := r.Clone()
	rec := l.newRecord(next, readings, period, rent)
	next.History = append(next.History, rec)
	archive(next)
	next.Tenants = nil
	return next, rec, nil
}

// ReplaceTenants sets the room's tenant list. Tenants without an ID get one,
// and a zero move-in date defaults to today. When the room goes from
// occupied to vacant the active history is archived; the archived records
// are returned. Any other change leaves the history alone.
func (l *Ledger) ReplaceTenants(r *room.Room, tenants []tenant.Tenant) (*room.Room, []*usage.Record, error) {
	if r == nil {
		return nil, nil, invalid("room", "room is required")
	}
	list := make([]tenant.Tenant, 0, len(tenants))
	for i, t := range tenants {
		nt, err := l.normalizeTenant(t, fmt.Sprintf("tenants[%d]", i))
		if err != nil {
			return nil, nil, err
		}
		list = append(list, nt)
	}

	next := r.Clone()
	var archived []*usage.Record
	if r.Occupied() && len(list) == 0 {
		archived = next.History
		archive(next)
	}
	if len(list) == 0 {
		list = nil
	}
	next.Tenants = list
	return next, archived, nil
}

// UpdateTenant edits one tenant in place. Record snapshots keep the details
// they were created with.
func (l *Ledger) UpdateTenant(r *room.Room, t tenant.Tenant) (*room.Room, error) {
	if r == nil {
		return nil, invalid("room", "room is required")
	}
	i := tenant.Find(r.Tenants, t.ID)
	if i < 0 {
		return nil, notFound("tenant", t.ID)
	}
	nt, err := l.normalizeTenant(t, "tenant")
	if err != nil {
		return nil, err
	}

	next := r.Clone()
	next.Tenants[i] = nt
	return next, nil
}

// ──────────────────────────────────────────────────
// Verification
// ──────────────────────────────────────────────────

// Verify checks that the room's active history is internally consistent:
// readings never decrease, stored usage equals the reading delta, and every
// bill not set by hand equals rent plus priced usage. It returns a
// MultiError listing every problem, or nil.
func (l *Ledger) Verify(r *room.Room) error {
	var errs MultiError
	prev := usage.Readings{}
	for i, rec := range r.History {
		field := fmt.Sprintf("usage_history[%d]", i)

		if rec.Period.End.Before(rec.Period.Start) {
			errs.Add(invalid(field+".period", "start date is after end date"))
		}
		if rec.Readings.Electric < prev.Electric || rec.Readings.Water < prev.Water {
			errs.Add(invalid(field+".readings", "readings %+v are below the previous readings %+v", rec.Readings, prev))
		}

		want := rec.Readings.Sub(prev)
		switch {
		case rec.Usage != want:
			errs.Add(invalid(field+".usage", "stored usage %+v, expected %+v", rec.Usage, want))
		case rec.ManualAmount:
		default:
			if err := l.checkCurrency(field+".base_rent", rec.BaseRent); err != nil {
				errs.Add(err)
				break
			}
			bill, err := l.rates.CheckedBill(rec.BaseRent, rec.Usage)
			switch {
			case err != nil:
				errs.Add(ValidationError{Field: field + ".amount", Message: "bill is too large", Err: err})
			case !rec.Amount.Equal(bill):
				errs.Add(invalid(field+".amount", "stored amount %s, expected %s", rec.Amount, bill))
			}
		}
		prev = rec.Readings
	}
	return errs.ErrorOrNil()
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (l *Ledger) checkAppend(r *room.Room, readings usage.Readings, period usage.Period) error {
	if r == nil {
		return invalid("room", "room is required")
	}
	if !r.Occupied() {
		return ValidationError{Field: "tenants", Message: "room has no tenants", Err: ErrRoomVacant}
	}
	if err := validatePeriod(period); err != nil {
		return err
	}
	if err := validateReadings(readings, r.LastReadings(), nil); err != nil {
		return err
	}
	if err := l.checkCurrency("base_rent", r.BaseRent); err != nil {
		return err
	}
	return l.checkBill(r.BaseRent, readings.Sub(r.LastReadings()))
}

// checkBill rejects usage whose bill would overflow an int64 amount.
func (l *Ledger) checkBill(rent types.Money, u usage.Readings) error {
	if _, err := l.rates.CheckedBill(rent, u); err != nil {
		return ValidationError{Field: "amount", Message: "bill is too large", Err: err}
	}
	return nil
}

func (l *Ledger) checkCurrency(field string, m types.Money) error {
	if want := l.rates.Electric.Currency; !strings.EqualFold(m.Currency, want) {
		return invalid(field, "currency %q does not match billing currency %q", m.Currency, want)
	}
	return nil
}

func (l *Ledger) newRecord(r *room.Room, readings usage.Readings, period usage.Period, rent types.Money) *usage.Record {
	rec := &usage.Record{
		ID:        id.NewRecordID(),
		Period:    normalizePeriod(period),
		Readings:  readings,
		Tenants:   tenant.Clone(r.Tenants),
		CreatedAt: l.now(),
	}
	l.compute(rec, r.LastReadings(), rent)
	return rec
}

// compute derives usage and amount from readings, the predecessor's readings
// and the rent. It clears any manual override.
func (l *Ledger) compute(rec *usage.Record, prev usage.Readings, rent types.Money) {
	rec.Usage = rec.Readings.Sub(prev)
	rec.BaseRent = rent
	rec.Amount = l.rates.Bill(rent, rec.Usage)
	rec.ManualAmount = false
}

func (l *Ledger) normalizeTenant(t tenant.Tenant, field string) (tenant.Tenant, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return t, invalid(field+".name", "name is required")
	}
	phone, err := tenant.NormalizePhone(t.Phone)
	if err != nil {
		return t, ValidationError{Field: field + ".phone", Message: fmt.Sprintf("%q is not a valid phone number", t.Phone), Err: err}
	}
	t.Phone = phone
	if t.ID.IsNil() {
		t.ID = id.NewTenantID()
	}
	if t.MoveInDate.IsZero() {
		t.MoveInDate = types.Date(l.now())
	}
	return t, nil
}

func archive(r *room.Room) {
	r.Archive = append(r.Archive, r.History...)
	r.History = nil
}

func previous(history []*usage.Record, i int) usage.Readings {
	if i > 0 {
		return history[i-1].Readings
	}
	return usage.Readings{}
}

func normalizePeriod(p usage.Period) usage.Period {
	return usage.Period{Start: types.Date(p.Start), End: types.Date(p.End)}
}

func validatePeriod(p usage.Period) error {
	if p.Start.IsZero() || p.End.IsZero() {
		return invalid("period", "start and end dates are required")
	}
	if types.Date(p.End).Before(types.Date(p.Start)) {
		return invalid("period", "start date %s is after end date %s",
			p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
	}
	return nil
}

// validateReadings checks readings against the predecessor (floor) and, for
// edits, the successor (ceiling).
func validateReadings(rd, floor usage.Readings, ceiling *usage.Readings) error {
	if rd.Electric < 0 {
		return invalid("electric", "reading must not be negative, got %d", rd.Electric)
	}
	if rd.Water < 0 {
		return invalid("water", "reading must not be negative, got %d", rd.Water)
	}
	if rd.Electric > usage.MaxReading {
		return invalid("electric", "reading %d is above the maximum %d", rd.Electric, usage.MaxReading)
	}
	if rd.Water > usage.MaxReading {
		return invalid("water", "reading %d is above the maximum %d", rd.Water, usage.MaxReading)
	}
	if rd.Electric < floor.Electric {
		return invalid("electric", "reading %d is below the previous reading %d", rd.Electric, floor.Electric)
	}
	if rd.Water < floor.Water {
		return invalid("water", "reading %d is below the previous reading %d", rd.Water, floor.Water)
	}
	if ceiling != nil {
		if rd.Electric > ceiling.Electric {
			return invalid("electric", "reading %d is above the next reading %d", rd.Electric, ceiling.Electric)
		}
		if rd.Water > ceiling.Water {
			return invalid("water", "reading %d is above the next reading %d", rd.Water, ceiling.Water)
		}
	}
	return nil
}
