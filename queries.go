package rentledger

import (
	"context"
	"io"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/invoice"
	"github.com/nhatro/rentledger/notification"
	"github.com/nhatro/rentledger/room"
)

// ──────────────────────────────────────────────────
// Read Models
// ──────────────────────────────────────────────────

// Notifications lists payment reminders for every occupied room, newest
// first.
func (e *Engine) Notifications(ctx context.Context) ([]notification.Notification, error) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return notification.Generate(rooms, e.now()), nil
}

// Invoices lists the active records of all rooms.
func (e *Engine) Invoices(ctx context.Context, q invoice.Query) (invoice.Page, error) {
	rooms, err := e.queryRooms(ctx, q.RoomID)
	if err != nil {
		return invoice.Page{}, err
	}
	return invoice.List(invoice.Active(rooms), q), nil
}

// Archive lists the records of past tenancies of all rooms.
func (e *Engine) Archive(ctx context.Context, q invoice.Query) (invoice.Page, error) {
	rooms, err := e.queryRooms(ctx, q.RoomID)
	if err != nil {
		return invoice.Page{}, err
	}
	return invoice.List(invoice.Archived(rooms), q), nil
}

// Invoice builds the invoice of one record. Archived records can be
// invoiced too.
func (e *Engine) Invoice(ctx context.Context, roomID id.RoomID, recordID id.RecordID) (*invoice.Invoice, error) {
	r, err := e.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	rec, _ := r.Record(recordID)
	if rec == nil {
		for _, a := range r.Archive {
			if a.ID == recordID {
				rec = a
				break
			}
		}
	}
	if rec == nil {
		return nil, notFound("record", recordID)
	}
	return invoice.New(r, rec, e.rates, e.landlord), nil
}

// ExportRoom writes a spreadsheet of the room's active history to w and
// returns the suggested file name.
func (e *Engine) ExportRoom(ctx context.Context, roomID id.RoomID, w io.Writer) (string, error) {
	r, err := e.getRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if err := invoice.Export(w, r, e.rates); err != nil {
		return "", err
	}
	return invoice.FileName(r.Name), nil
}

// queryRooms returns all rooms, or only roomID when it is set.
func (e *Engine) queryRooms(ctx context.Context, roomID id.RoomID) ([]*room.Room, error) {
	if roomID.IsNil() {
		return e.store.ListRooms(ctx)
	}
	r, err := e.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return []*room.Room{r}, nil
}
