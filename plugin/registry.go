package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onRoomCreated     []OnRoomCreated
	onRoomUpdated     []OnRoomUpdated
	onRoomDeleted     []OnRoomDeleted
	onTenantsReplaced []OnTenantsReplaced
	onCheckout        []OnCheckout
	onHistoryArchived []OnHistoryArchived
	onRecordAppended  []OnRecordAppended
	onRecordEdited    []OnRecordEdited
	onRecordDeleted   []OnRecordDeleted
	onRecordPaid      []OnRecordPaid
	onUserCreated     []OnUserCreated
	onUserDeleted     []OnUserDeleted
	onLogin           []OnLogin
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnRoomCreated); ok {
		r.onRoomCreated = append(r.onRoomCreated, v)
	}
	if v, ok := p.(OnRoomUpdated); ok {
		r.onRoomUpdated = append(r.onRoomUpdated, v)
	}
	if v, ok := p.(OnRoomDeleted); ok {
		r.onRoomDeleted = append(r.onRoomDeleted, v)
	}
	if v, ok := p.(OnTenantsReplaced); ok {
		r.onTenantsReplaced = append(r.onTenantsReplaced, v)
	}
	if v, ok := p.(OnCheckout); ok {
		r.onCheckout = append(r.onCheckout, v)
	}
	if v, ok := p.(OnHistoryArchived); ok {
		r.onHistoryArchived = append(r.onHistoryArchived, v)
	}
	if v, ok := p.(OnRecordAppended); ok {
		r.onRecordAppended = append(r.onRecordAppended, v)
	}
	if v, ok := p.(OnRecordEdited); ok {
		r.onRecordEdited = append(r.onRecordEdited, v)
	}
	if v, ok := p.(OnRecordDeleted); ok {
		r.onRecordDeleted = append(r.onRecordDeleted, v)
	}
	if v, ok := p.(OnRecordPaid); ok {
		r.onRecordPaid = append(r.onRecordPaid, v)
	}
	if v, ok := p.(OnUserCreated); ok {
		r.onUserCreated = append(r.onUserCreated, v)
	}
	if v, ok := p.(OnUserDeleted); ok {
		r.onUserDeleted = append(r.onUserDeleted, v)
	}
	if v, ok := p.(OnLogin); ok {
		r.onLogin = append(r.onLogin, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	iface reflect.Type
	name  string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnRoomCreated](), "OnRoomCreated"},
	{reflect.TypeFor[OnRoomUpdated](), "OnRoomUpdated"},
	{reflect.TypeFor[OnRoomDeleted](), "OnRoomDeleted"},
	{reflect.TypeFor[OnTenantsReplaced](), "OnTenantsReplaced"},
	{reflect.TypeFor[OnCheckout](), "OnCheckout"},
	{reflect.TypeFor[OnHistoryArchived](), "OnHistoryArchived"},
	{reflect.TypeFor[OnRecordAppended](), "OnRecordAppended"},
	{reflect.TypeFor[OnRecordEdited](), "OnRecordEdited"},
	{reflect.TypeFor[OnRecordDeleted](), "OnRecordDeleted"},
	{reflect.TypeFor[OnRecordPaid](), "OnRecordPaid"},
	{reflect.TypeFor[OnUserCreated](), "OnUserCreated"},
	{reflect.TypeFor[OnUserDeleted](), "OnUserDeleted"},
	{reflect.TypeFor[OnLogin](), "OnLogin"},
}

// implementedInterfaces returns the names of the hooks p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.iface) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every plugin in list. Failures and timeouts are logged
// and never propagate to the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit }, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown }, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitRoomCreated emits a room created event.
func (r *Registry) EmitRoomCreated(ctx context.Context, rm *room.Room) {
	emit(ctx, r, "OnRoomCreated", func(r *Registry) []OnRoomCreated { return r.onRoomCreated }, func(p OnRoomCreated) error {
		return p.OnRoomCreated(ctx, rm)
	})
}

// EmitRoomUpdated emits a room updated event.
func (r *Registry) EmitRoomUpdated(ctx context.Context, rm *room.Room) {
	emit(ctx, r, "OnRoomUpdated", func(r *Registry) []OnRoomUpdated { return r.onRoomUpdated }, func(p OnRoomUpdated) error {
		return p.OnRoomUpdated(ctx, rm)
	})
}

// EmitRoomDeleted emits a room deleted event.
func (r *Registry) EmitRoomDeleted(ctx context.Context, roomID id.RoomID) {
	emit(ctx, r, "OnRoomDeleted", func(r *Registry) []OnRoomDeleted { return r.onRoomDeleted }, func(p OnRoomDeleted) error {
		return p.OnRoomDeleted(ctx, roomID)
	})
}

// EmitTenantsReplaced emits a tenant list change.
func (r *Registry) EmitTenantsReplaced(ctx context.Context, rm *room.Room, previous []tenant.Tenant) {
	emit(ctx, r, "OnTenantsReplaced", func(r *Registry) []OnTenantsReplaced { return r.onTenantsReplaced }, func(p OnTenantsReplaced) error {
		return p.OnTenantsReplaced(ctx, rm, previous)
	})
}

// EmitCheckout emits a checkout event.
func (r *Registry) EmitCheckout(ctx context.Context, rm *room.Room, final *usage.Record) {
	emit(ctx, r, "OnCheckout", func(r *Registry) []OnCheckout { return r.onCheckout }, func(p OnCheckout) error {
		return p.OnCheckout(ctx, rm, final)
	})
}

// EmitHistoryArchived emits an archive event.
func (r *Registry) EmitHistoryArchived(ctx context.Context, rm *room.Room, archived []*usage.Record) {
	emit(ctx, r, "OnHistoryArchived", func(r *Registry) []OnHistoryArchived { return r.onHistoryArchived }, func(p OnHistoryArchived) error {
		return p.OnHistoryArchived(ctx, rm, archived)
	})
}

// EmitRecordAppended emits a record appended event.
func (r *Registry) EmitRecordAppended(ctx context.Context, rm *room.Room, rec *usage.Record) {
	emit(ctx, r, "OnRecordAppended", func(r *Registry) []OnRecordAppended { return r.onRecordAppended }, func(p OnRecordAppended) error {
		return p.OnRecordAppended(ctx, rm, rec)
	})
}

// EmitRecordEdited emits a record edited event.
func (r *Registry) EmitRecordEdited(ctx context.Context, rm *room.Room, rec *usage.Record) {
	emit(ctx, r, "OnRecordEdited", func(r *Registry) []OnRecordEdited { return r.onRecordEdited }, func(p OnRecordEdited) error {
		return p.OnRecordEdited(ctx, rm, rec)
	})
}

// EmitRecordDeleted emits a record deleted event.
func (r *Registry) EmitRecordDeleted(ctx context.Context, rm *room.Room, recordID id.RecordID) {
	emit(ctx, r, "OnRecordDeleted", func(r *Registry) []OnRecordDeleted { return r.onRecordDeleted }, func(p OnRecordDeleted) error {
		return p.OnRecordDeleted(ctx, rm, recordID)
	})
}

// EmitRecordPaid emits a record paid event.
func (r *Registry) EmitRecordPaid(ctx context.Context, rm *room.Room, rec *usage.Record) {
	emit(ctx, r, "OnRecordPaid", func(r *Registry) []OnRecordPaid { return r.onRecordPaid }, func(p OnRecordPaid) error {
		return p.OnRecordPaid(ctx, rm, rec)
	})
}

// EmitUserCreated emits a user created event.
func (r *Registry) EmitUserCreated(ctx context.Context, u *user.User) {
	emit(ctx, r, "OnUserCreated", func(r *Registry) []OnUserCreated { return r.onUserCreated }, func(p OnUserCreated) error {
		return p.OnUserCreated(ctx, u)
	})
}

// EmitUserDeleted emits a user deleted event.
func (r *Registry) EmitUserDeleted(ctx context.Context, userID id.UserID) {
	emit(ctx, r, "OnUserDeleted", func(r *Registry) []OnUserDeleted { return r.onUserDeleted }, func(p OnUserDeleted) error {
		return p.OnUserDeleted(ctx, userID)
	})
}

// EmitLogin emits a login event.
func (r *Registry) EmitLogin(ctx context.Context, principal *user.Principal) {
	emit(ctx, r, "OnLogin", func(r *Registry) []OnLogin { return r.onLogin }, func(p OnLogin) error {
		return p.OnLogin(ctx, principal)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
