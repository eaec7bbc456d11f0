// Package audithook bridges rental ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on a
// particular audit store. Callers inject a RecorderFunc adapter, or use
// LogRecorder to write audit events to a structured logger.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/plugin"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnRoomCreated     = (*Extension)(nil)
	_ plugin.OnRoomUpdated     = (*Extension)(nil)
	_ plugin.OnRoomDeleted     = (*Extension)(nil)
	_ plugin.OnTenantsReplaced = (*Extension)(nil)
	_ plugin.OnCheckout        = (*Extension)(nil)
	_ plugin.OnHistoryArchived = (*Extension)(nil)
	_ plugin.OnRecordAppended  = (*Extension)(nil)
	_ plugin.OnRecordEdited    = (*Extension)(nil)
	_ plugin.OnRecordDeleted   = (*Extension)(nil)
	_ plugin.OnRecordPaid      = (*Extension)(nil)
	_ plugin.OnUserCreated     = (*Extension)(nil)
	_ plugin.OnUserDeleted     = (*Extension)(nil)
	_ plugin.OnLogin           = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes audit events to logger at info level.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"category", evt.Category,
			"outcome", evt.Outcome,
			"metadata", evt.Metadata,
		)
		return nil
	})
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Room hooks
// ──────────────────────────────────────────────────

// OnRoomCreated implements plugin.OnRoomCreated.
func (e *Extension) OnRoomCreated(ctx context.Context, r *room.Room) error {
	return e.record(ctx, ActionRoomCreated, SeverityInfo, OutcomeSuccess,
		ResourceRoom, r.ID.String(), CategoryProperty, nil,
		"name", r.Name,
		"base_rent", r.BaseRent.Amount,
	)
}

// OnRoomUpdated implements plugin.OnRoomUpdated.
func (e *Extension) OnRoomUpdated(ctx context.Context, r *room.Room) error {
	return e.record(ctx, ActionRoomUpdated, SeverityInfo, OutcomeSuccess,
		ResourceRoom, r.ID.String(), CategoryProperty, nil,
		"name", r.Name,
		"base_rent", r.BaseRent.Amount,
		"pinned", r.Pinned,
	)
}

// OnRoomDeleted implements plugin.OnRoomDeleted.
func (e *Extension) OnRoomDeleted(ctx context.Context, roomID id.RoomID) error {
	return e.record(ctx, ActionRoomDeleted, SeverityWarning, OutcomeSuccess,
		ResourceRoom, roomID.String(), CategoryProperty, nil,
	)
}

// ──────────────────────────────────────────────────
// Occupancy hooks
// ──────────────────────────────────────────────────

// OnTenantsReplaced implements plugin.OnTenantsReplaced.
func (e *Extension) OnTenantsReplaced(ctx context.Context, r *room.Room, previous []tenant.Tenant) error {
	return e.record(ctx, ActionTenantsReplaced, SeverityInfo, OutcomeSuccess,
		ResourceRoom, r.ID.String(), CategoryProperty, nil,
		"previous", tenant.Names(previous),
		"current", tenant.Names(r.Tenants),
		"status", string(r.Status()),
	)
}

// OnCheckout implements plugin.OnCheckout.
func (e *Extension) OnCheckout(ctx context.Context, r *room.Room, final *usage.Record) error {
	return e.record(ctx, ActionCheckout, SeverityInfo, OutcomeSuccess,
		ResourceRoom, r.ID.String(), CategoryBilling, nil,
		"record_id", final.ID.String(),
		"amount", final.Amount.Amount,
		"tenants", tenant.Names(final.Tenants),
	)
}

// OnHistoryArchived implements plugin.OnHistoryArchived.
func (e *Extension) OnHistoryArchived(ctx context.Context, r *room.Room, archived []*usage.Record) error {
	return e.record(ctx, ActionHistoryArchived, SeverityInfo, OutcomeSuccess,
		ResourceRoom, r.ID.String(), CategoryBilling, nil,
		"records", len(archived),
	)
}

// ──────────────────────────────────────────────────
// Usage record hooks
// ──────────────────────────────────────────────────

// OnRecordAppended implements plugin.OnRecordAppended.
func (e *Extension) OnRecordAppended(ctx context.Context, r *room.Room, rec *usage.Record) error {
	return e.recordEvent(ctx, ActionRecordAppended, r, rec)
}

// OnRecordEdited implements plugin.OnRecordEdited.
func (e *Extension) OnRecordEdited(ctx context.Context, r *room.Room, rec *usage.Record) error {
	return e.recordEvent(ctx, ActionRecordEdited, r, rec)
}

// OnRecordDeleted implements plugin.OnRecordDeleted.
func (e *Extension) OnRecordDeleted(ctx context.Context, r *room.Room, recordID id.RecordID) error {
	return e.record(ctx, ActionRecordDeleted, SeverityWarning, OutcomeSuccess,
		ResourceRecord, recordID.String(), CategoryBilling, nil,
		"room_id", r.ID.String(),
	)
}

// OnRecordPaid implements plugin.OnRecordPaid.
func (e *Extension) OnRecordPaid(ctx context.Context, r *room.Room, rec *usage.Record) error {
	return e.recordEvent(ctx, ActionRecordPaid, r, rec)
}

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnUserCreated implements plugin.OnUserCreated.
func (e *Extension) OnUserCreated(ctx context.Context, u *user.User) error {
	return e.record(ctx, ActionUserCreated, SeverityInfo, OutcomeSuccess,
		ResourceUser, u.ID.String(), CategoryAccess, nil,
		"username", u.Username,
		"role", string(u.Role),
	)
}

// OnUserDeleted implements plugin.OnUserDeleted.
func (e *Extension) OnUserDeleted(ctx context.Context, userID id.UserID) error {
	return e.record(ctx, ActionUserDeleted, SeverityWarning, OutcomeSuccess,
		ResourceUser, userID.String(), CategoryAccess, nil,
	)
}

// OnLogin implements plugin.OnLogin.
func (e *Extension) OnLogin(ctx context.Context, p *user.Principal) error {
	resourceID := p.UserID.String()
	if p.Role == user.RoleTenant {
		resourceID = p.RoomID.String()
	}
	return e.record(ctx, ActionLogin, SeverityInfo, OutcomeSuccess,
		ResourceUser, resourceID, CategoryAccess, nil,
		"username", p.Username,
		"role", string(p.Role),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func (e *Extension) recordEvent(ctx context.Context, action string, r *room.Room, rec *usage.Record) error {
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceRecord, rec.ID.String(), CategoryBilling, nil,
		"room_id", r.ID.String(),
		"electric", rec.Readings.Electric,
		"water", rec.Readings.Water,
		"amount", rec.Amount.Amount,
		"paid", rec.Paid,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
