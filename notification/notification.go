// Package notification derives payment reminders from the rooms' active
// usage ledgers. It only reads rooms; nothing here changes ledger state.
package notification

import (
	"fmt"
	"slices"
	"time"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/types"
)

// Notification is a reminder that a bill is due or overdue.
type Notification struct {
	ID          string      `json:"id"`
	RoomID      id.RoomID   `json:"room_id"`
	RoomName    string      `json:"room_name"`
	RecordID    id.RecordID `json:"record_id"`
	Message     string      `json:"message"`
	Date        time.Time   `json:"date"`
	DaysOverdue int         `json:"days_overdue"`
	Amount      types.Money `json:"amount"`
}

// Generate returns a reminder for every unpaid active record of an occupied
// room whose end date is today or earlier. Reminders are ordered by end date,
// newest first.
func Generate(rooms []*room.Room, today time.Time) []Notification {
	today = utcDate(today)

	var out []Notification
	for _, r := range rooms {
		if !r.Occupied() {
			continue
		}
		for _, rec := range r.History {
			if rec.Paid {
				continue
			}
			due := utcDate(rec.Period.End)
			if due.After(today) {
				continue
			}
			days := int(today.Sub(due).Hours() / 24)
			out = append(out, Notification{
				ID:          "notif-" + rec.ID.String(),
				RoomID:      r.ID,
				RoomName:    r.Name,
				RecordID:    rec.ID,
				Message:     Message(r.Name, days),
				Date:        rec.Period.End,
				DaysOverdue: days,
				Amount:      rec.Amount,
			})
		}
	}

	slices.SortStableFunc(out, func(a, b Notification) int {
		return b.Date.Compare(a.Date)
	})
	return out
}

// Message renders the reminder text for a room whose bill is days overdue.
func Message(roomName string, days int) string {
	if days == 0 {
		return fmt.Sprintf("Hóa đơn phòng %s đến hạn hôm nay.", roomName)
	}
	return fmt.Sprintf("Hóa đơn phòng %s đã quá hạn %d ngày.", roomName, days)
}

// utcDate maps t's calendar date to UTC midnight so day differences are
// exact multiples of 24h regardless of DST.
func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
