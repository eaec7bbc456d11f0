package rentledger

import (
	"context"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// ──────────────────────────────────────────────────
// Occupancy
// ──────────────────────────────────────────────────

// ReplaceTenants sets a room's tenant list. Clearing the list of an occupied
// room archives its active history.
func (e *Engine) ReplaceTenants(ctx context.Context, roomID id.RoomID, tenants []tenant.Tenant) (*room.Room, error) {
	var previous []tenant.Tenant
	var archived []*usage.Record
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		previous = cur.Tenants
		next, arch, err := e.ledger.ReplaceTenants(cur, tenants)
		archived = arch
		return next, err
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitTenantsReplaced(ctx, r, previous)
	if len(archived) > 0 {
		e.plugins.EmitHistoryArchived(ctx, r, archived)
	}
	return r, nil
}

// UpdateTenant edits one tenant's details. Billing history is untouched.
func (e *Engine) UpdateTenant(ctx context.Context, roomID id.RoomID, t tenant.Tenant) (*room.Room, error) {
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		return e.ledger.UpdateTenant(cur, t)
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitRoomUpdated(ctx, r)
	return r, nil
}

// Checkout closes a room's tenancy with a final record and archives the
// whole active history. finalRent overrides the base rent of the final
// record when set.
func (e *Engine) Checkout(ctx context.Context, roomID id.RoomID, readings usage.Readings, period usage.Period, finalRent *types.Money) (*room.Room, *usage.Record, error) {
	var final *usage.Record
	var archived []*usage.Record
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		next, rec, err := e.ledger.Checkout(cur, readings, period, finalRent)
		if err != nil {
			return nil, err
		}
		final = rec
		archived = next.Archive[len(cur.Archive):]
		return next, nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("room checked out",
		"room_id", roomID.String(),
		"record_id", final.ID.String(),
		"archived", len(archived),
	)
	e.plugins.EmitCheckout(ctx, r, final)
	e.plugins.EmitHistoryArchived(ctx, r, archived)
	return r, final, nil
}

// ──────────────────────────────────────────────────
// Usage Records
// ──────────────────────────────────────────────────

// AppendRecord bills a new period for an occupied room.
func (e *Engine) AppendRecord(ctx context.Context, roomID id.RoomID, readings usage.Readings, period usage.Period) (*room.Room, *usage.Record, error) {
	var rec *usage.Record
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		next, nr, err := e.ledger.AppendRecord(cur, readings, period)
		rec = nr
		return next, err
	})
	if err != nil {
		return nil, nil, err
	}

	e.plugins.EmitRecordAppended(ctx, r, rec)
	return r, rec, nil
}

// EditRecord replaces a record's readings and period, recomputing it and
// its immediate successor.
func (e *Engine) EditRecord(ctx context.Context, roomID id.RoomID, recordID id.RecordID, edit RecordEdit) (*room.Room, *usage.Record, error) {
	var rec *usage.Record
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		next, nr, err := e.ledger.EditRecord(cur, recordID, edit)
		rec = nr
		return next, err
	})
	if err != nil {
		return nil, nil, err
	}

	e.plugins.EmitRecordEdited(ctx, r, rec)
	return r, rec, nil
}

// DeleteRecord removes a record and rebases its successor.
func (e *Engine) DeleteRecord(ctx context.Context, roomID id.RoomID, recordID id.RecordID) (*room.Room, error) {
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		return e.ledger.DeleteRecord(cur, recordID)
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitRecordDeleted(ctx, r, recordID)
	return r, nil
}

// MarkPaid flags a record as paid. Paying an already-paid record succeeds
// and leaves it unchanged; plugins hear only about the first payment.
func (e *Engine) MarkPaid(ctx context.Context, roomID id.RoomID, recordID id.RecordID) (*room.Room, *usage.Record, error) {
	var rec *usage.Record
	changed := false
	r, err := e.mutateRoom(ctx, roomID, func(cur *room.Room) (*room.Room, error) {
		if old, _ := cur.Record(recordID); old != nil && !old.Paid {
			changed = true
		}
		next, nr, err := e.ledger.MarkPaid(cur, recordID)
		rec = nr
		return next, err
	})
	if err != nil {
		return nil, nil, err
	}

	if changed {
		e.plugins.EmitRecordPaid(ctx, r, rec)
	}
	return r, rec, nil
}
