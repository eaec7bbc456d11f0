package extension

import (
	"github.com/xraph/grove"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/api"
	"github.com/nhatro/rentledger/config"
	"github.com/nhatro/rentledger/plugin"
	"github.com/nhatro/rentledger/store"
)

// Option configures the rentledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over the
// configured store driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDatabase stores the ledger in a grove database owned by the host
// application. driver is "sqlite" or "postgres". WithStore takes precedence.
func WithGroveDatabase(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.groveDriver = driver
	}
}

// WithEngineOption passes a rentledger.Option through to the engine.
func WithEngineOption(opt rentledger.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithAPIOption passes an api.Option through to the HTTP server.
func WithAPIOption(opt api.Option) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rentledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithStoreConfig selects the store backend.
func WithStoreConfig(sc config.StoreConfig) Option {
	return func(e *Extension) { e.config.Store = sc }
}

// WithDisableRoutes stops the extension from providing the HTTP API.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for the API routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithJWTSecret sets the session signing secret and enables the API.
func WithJWTSecret(secret string) Option {
	return func(e *Extension) { e.config.JWTSecret = secret }
}

// WithValidateOnLoad verifies every room's ledger on start.
func WithValidateOnLoad() Option {
	return func(e *Extension) { e.config.ValidateOnLoad = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
