// Package extension provides the Forge extension adapter for rentledger.
//
// It implements the forge.Extension interface to integrate the rental
// ledger engine into a Forge application with DI registration and
// lifecycle management. When a JWT secret is configured it also provides
// the *api.Server so the host application can mount its Handler.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rentledger" or
// "rentledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/api"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/store/backend"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rentledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Utility and rent ledger for rental rooms"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the rentledger Engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rentledger.Engine
	server     *api.Server
	store      store.Store
	engineOpts []rentledger.Option
	apiOpts    []api.Option

	groveDB     *grove.DB
	groveDriver string
}

// New creates a new rentledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Engine.
// This is nil until Register is called.
func (e *Extension) Engine() *rentledger.Engine { return e.engine }

// Server returns the HTTP API, or nil when routes are disabled or no JWT
// secret is configured.
func (e *Extension) Server() *api.Server { return e.server }

// Register implements [forge.Extension]. It loads configuration, opens
// the store, builds the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}
	if err := e.open(context.Background()); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*rentledger.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	if e.server == nil {
		return nil
	}
	return vessel.Provide(fapp.Container(), func() (*api.Server, error) {
		return e.server, nil
	})
}

// open builds the store, the engine and, when enabled, the API server from
// the resolved config.
func (e *Extension) open(ctx context.Context) error {
	if e.store == nil && (e.groveDB != nil || e.groveDriver != "") {
		s, err := backend.Grove(e.groveDB, e.groveDriver)
		if err != nil {
			return fmt.Errorf("rentledger: open store: %w", err)
		}
		e.store = s
	}
	if e.store == nil {
		s, err := backend.Open(ctx, e.config.Store)
		if err != nil {
			return fmt.Errorf("rentledger: open store: %w", err)
		}
		e.store = s
	}
	e.engine = rentledger.New(e.store, e.buildEngineOpts()...)

	if e.config.DisableRoutes || e.config.JWTSecret == "" {
		return nil
	}
	tokens, err := api.NewTokens(e.config.JWTSecret, e.config.JWTTTL)
	if err != nil {
		return fmt.Errorf("rentledger: %w", err)
	}
	opts := append([]api.Option{api.WithBasePath(e.config.BasePath)}, e.apiOpts...)
	e.server = api.New(e.engine, tokens, opts...)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rentledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("rentledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs rentledger.Option values from the resolved
// config. Pass-through options come last so they win.
func (e *Extension) buildEngineOpts() []rentledger.Option {
	opts := make([]rentledger.Option, 0, len(e.engineOpts)+3)
	opts = append(opts,
		rentledger.WithRates(e.config.Rates()),
		rentledger.WithLandlord(e.config.Landlord),
		rentledger.WithValidateOnLoad(e.config.ValidateOnLoad),
	)
	return append(opts, e.engineOpts...)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rentledger: configuration is required but not found in config files; " +
				"ensure 'extensions.rentledger' or 'rentledger' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rentledger: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("store_driver", e.config.Store.Driver),
		forge.F("electric_rate", e.config.ElectricRate),
		forge.F("water_rate", e.config.WaterRate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.rentledger", "rentledger"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("rentledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("rentledger: loaded config from file", forge.F("key", key))
		return cfg, true
	}
	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.ElectricRate == 0 {
		cfg.ElectricRate = defaults.ElectricRate
	}
	if cfg.WaterRate == 0 {
		cfg.WaterRate = defaults.WaterRate
	}
	if cfg.Landlord.Name == "" {
		cfg.Landlord = defaults.Landlord
	}
	if cfg.JWTTTL == 0 {
		cfg.JWTTTL = defaults.JWTTTL
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.ValidateOnLoad {
		yamlConfig.ValidateOnLoad = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Store.Driver == "" {
		yamlConfig.Store = programmaticConfig.Store
	}
	if yamlConfig.JWTSecret == "" {
		yamlConfig.JWTSecret = programmaticConfig.JWTSecret
	}
	if yamlConfig.Landlord.Name == "" {
		yamlConfig.Landlord = programmaticConfig.Landlord
	}
	if yamlConfig.ElectricRate == 0 {
		yamlConfig.ElectricRate = programmaticConfig.ElectricRate
	}
	if yamlConfig.WaterRate == 0 {
		yamlConfig.WaterRate = programmaticConfig.WaterRate
	}
	if yamlConfig.JWTTTL == 0 {
		yamlConfig.JWTTTL = programmaticConfig.JWTTTL
	}

	return mergeWithDefaults(yamlConfig)
}
