package extension

import (
	"time"

	"github.com/nhatro/rentledger/config"
	"github.com/nhatro/rentledger/invoice"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// Config holds the rentledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rentledger" or "rentledger" keys).
type Config struct {
	// DisableRoutes stops the extension from providing an *api.Server.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for the API routes (default: "/api").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Store selects the backend when no store is set with WithStore.
	// An empty driver means the in-memory store.
	Store config.StoreConfig `json:"store" mapstructure:"store" yaml:"store"`

	// ElectricRate and WaterRate are unit prices in dong (defaults 5000
	// and 10000).
	ElectricRate int64 `json:"electric_rate" mapstructure:"electric_rate" yaml:"electric_rate"`
	WaterRate    int64 `json:"water_rate" mapstructure:"water_rate" yaml:"water_rate"`

	// Landlord is printed on invoices.
	Landlord invoice.Landlord `json:"landlord" mapstructure:"landlord" yaml:"landlord"`

	// ValidateOnLoad verifies every room's ledger on start.
	ValidateOnLoad bool `json:"validate_on_load" mapstructure:"validate_on_load" yaml:"validate_on_load"`

	// JWTSecret signs API session tokens. Routes are only provided when
	// it is set.
	JWTSecret string `json:"-" mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTTTL is the session lifetime (default: 24h).
	JWTTTL time.Duration `json:"jwt_ttl" mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:     "/api",
		ElectricRate: usage.ElectricRate,
		WaterRate:    usage.WaterRate,
		Landlord:     invoice.DefaultLandlord(),
		JWTTTL:       24 * time.Hour,
	}
}

// Rates returns the configured unit prices.
func (c Config) Rates() usage.Rates {
	return usage.Rates{
		Electric: types.VND(c.ElectricRate),
		Water:    types.VND(c.WaterRate),
	}
}
