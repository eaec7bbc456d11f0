// Package plugin provides an extensible plugin system for the rental ledger.
// Plugins can hook into lifecycle and ledger events to extend functionality
// such as auditing, metrics and notifications.
package plugin

import (
	"context"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *rentledger.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Room hooks
// ──────────────────────────────────────────────────

// OnRoomCreated is called after a room is stored.
type OnRoomCreated interface {
	Plugin
	OnRoomCreated(ctx context.Context, r *room.Room) error
}

// OnRoomUpdated is called after a room's name, rent or ordering changes.
type OnRoomUpdated interface {
	Plugin
	OnRoomUpdated(ctx context.Context, r *room.Room) error
}

// OnRoomDeleted is called after a room is removed.
type OnRoomDeleted interface {
	Plugin
	OnRoomDeleted(ctx context.Context, roomID id.RoomID) error
}

// ──────────────────────────────────────────────────
// Occupancy hooks
// ──────────────────────────────────────────────────

// OnTenantsReplaced is called after a room's tenant list changes. previous
// holds the list before the change.
type OnTenantsReplaced interface {
	Plugin
	OnTenantsReplaced(ctx context.Context, r *room.Room, previous []tenant.Tenant) error
}

// OnCheckout is called after a checkout. final is the record that closed the
// tenancy.
type OnCheckout interface {
	Plugin
	OnCheckout(ctx context.Context, r *room.Room, final *usage.Record) error
}

// OnHistoryArchived is called whenever an active history moves to the
// archive, by checkout or by removing the last tenant.
type OnHistoryArchived interface {
	Plugin
	OnHistoryArchived(ctx context.Context, r *room.Room, archived []*usage.Record) error
}

// ──────────────────────────────────────────────────
// Usage record hooks
// ──────────────────────────────────────────────────

// OnRecordAppended is called after a billing period is recorded.
type OnRecordAppended interface {
	Plugin
	OnRecordAppended(ctx context.Context, r *room.Room, rec *usage.Record) error
}

// OnRecordEdited is called after a record (and its successor) is recomputed.
type OnRecordEdited interface {
	Plugin
	OnRecordEdited(ctx context.Context, r *room.Room, rec *usage.Record) error
}

// OnRecordDeleted is called after a record is removed.
type OnRecordDeleted interface {
	Plugin
	OnRecordDeleted(ctx context.Context, r *room.Room, recordID id.RecordID) error
}

// OnRecordPaid is called after a record is marked paid.
type OnRecordPaid interface {
	Plugin
	OnRecordPaid(ctx context.Context, r *room.Room, rec *usage.Record) error
}

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnUserCreated is called after an account is created.
type OnUserCreated interface {
	Plugin
	OnUserCreated(ctx context.Context, u *user.User) error
}

// OnUserDeleted is called after an account is removed.
type OnUserDeleted interface {
	Plugin
	OnUserDeleted(ctx context.Context, userID id.UserID) error
}

// OnLogin is called after a successful authentication.
type OnLogin interface {
	Plugin
	OnLogin(ctx context.Context, p *user.Principal) error
}
