package rentledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/invoice"
	"github.com/nhatro/rentledger/lock"
	"github.com/nhatro/rentledger/plugin"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/usage"
)

// Engine is the rental ledger application service. It loads rooms and users
// from a store, applies Ledger operations to them under a per-room lock,
// saves the result and notifies plugins.
type Engine struct {
	store    store.Store
	ledger   *Ledger
	plugins  *plugin.Registry
	locker   lock.Locker
	logger   *slog.Logger
	validate *validator.Validate

	// Configuration
	rates          usage.Rates
	now            func() time.Time
	landlord       invoice.Landlord
	validateOnLoad bool
}

// New creates a new Engine backed by s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		plugins:  plugin.NewRegistry(),
		locker:   lock.NewLocal(),
		logger:   slog.Default(),
		validate: newValidator(),
		rates:    usage.DefaultRates(),
		now:      func() time.Time { return time.Now().UTC() },
		landlord: invoice.DefaultLandlord(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.ledger = NewLedger(WithLedgerRates(e.rates), WithLedgerClock(e.now))
	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // duplicate names are logged by the registry
	}
}

// WithLocker sets the locker that serializes room mutations. The default is
// an in-process lock, which is only correct with a single engine per store.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithRates sets the electricity and water unit prices.
func WithRates(r usage.Rates) Option {
	return func(e *Engine) { e.rates = r }
}

// WithClock sets the clock used for timestamps, default dates and overdue
// calculations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLandlord sets the landlord details printed on invoices.
func WithLandlord(l invoice.Landlord) Option {
	return func(e *Engine) { e.landlord = l }
}

// WithValidateOnLoad makes Start verify every room's active history and log
// the problems it finds.
func WithValidateOnLoad(enabled bool) Option {
	return func(e *Engine) { e.validateOnLoad = enabled }
}

// Start migrates the store, optionally verifies stored ledgers and
// initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	if e.validateOnLoad {
		problems, err := e.VerifyAll(ctx)
		if err != nil {
			return err
		}
		for roomID, err := range problems {
			var multi MultiError
			if errors.As(err, &multi) {
				for _, p := range multi.Errors {
					e.logger.Warn("ledger inconsistency", "room_id", roomID, "error", p)
				}
				continue
			}
			e.logger.Warn("ledger inconsistency", "room_id", roomID, "error", err)
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("rentledger started",
		"plugins", e.plugins.Count(),
		"electric_rate", e.rates.Electric.String(),
		"water_rate", e.rates.Water.String(),
		"validate_on_load", e.validateOnLoad,
	)
	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Ledger returns the pure ledger the engine applies.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Rates returns the unit prices in effect.
func (e *Engine) Rates() usage.Rates { return e.rates }

// Landlord returns the landlord details used on invoices.
func (e *Engine) Landlord() invoice.Landlord { return e.landlord }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Ping checks the store connection.
func (e *Engine) Ping(ctx context.Context) error { return e.store.Ping(ctx) }

// VerifyAll verifies every room and returns the problems keyed by room ID.
// Consistent rooms are absent from the result.
func (e *Engine) VerifyAll(ctx context.Context) (map[id.RoomID]error, error) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	problems := make(map[id.RoomID]error)
	for _, r := range rooms {
		if err := e.ledger.Verify(r); err != nil {
			problems[r.ID] = err
		}
	}
	return problems, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) getRoom(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	r, err := e.store.GetRoom(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrNotFound) {
		return nil, notFound("room", roomID)
	}
	return r, err
}

// mutateRoom runs fn on the stored room under the room's lock and saves the
// room fn returns. Nothing is saved when fn fails.
func (e *Engine) mutateRoom(ctx context.Context, roomID id.RoomID, fn func(r *room.Room) (*room.Room, error)) (*room.Room, error) {
	key := roomLockKey(roomID)
	lk, err := e.locker.Obtain(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	defer e.release(ctx, lk, key)

	cur, err := e.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	next.Touch()
	if err := e.store.UpdateRoom(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func roomLockKey(roomID id.RoomID) string { return "room:" + roomID.String() }

func (e *Engine) release(ctx context.Context, lk lock.Lock, key string) {
	if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
		e.logger.Warn("lock release failed", "key", key, "error", err)
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates a struct and converts the first failure into a
// ValidationError.
func (e *Engine) check(v any) error {
	err := e.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return invalid("input", "%v", err)
	}
	f := fields[0]
	msg := "failed on " + f.Tag()
	switch f.Tag() {
	case "required":
		msg = "is required"
	case "max":
		msg = "must be at most " + f.Param()
	case "min":
		msg = "must be at least " + f.Param()
	case "gte":
		msg = "must be at least " + f.Param()
	case "oneof":
		msg = "must be one of " + f.Param()
	}
	return invalid(f.Field(), "%s", msg)
}
