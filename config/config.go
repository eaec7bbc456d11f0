// Package config loads the rentledger application configuration from a
// .env file and RENTLEDGER_* environment variables.
//
// Variables already present in the environment win over the .env file.
// Unset variables keep the value from DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nhatro/rentledger/invoice"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// EnvPrefix prefixes every variable Load reads.
const EnvPrefix = "RENTLEDGER_"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the application configuration.
type Config struct {
	// Addr is the HTTP listen address (default ":8080").
	Addr string `json:"addr" mapstructure:"addr" yaml:"addr" validate:"required"`

	// BasePath is the URL prefix for API routes (default "/api").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path" validate:"required,startswith=/"`

	Store StoreConfig `json:"store" mapstructure:"store" yaml:"store"`

	// RedisAddr enables the Redis room locker when set. Without it rooms
	// are locked in-process.
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr" yaml:"redis_addr"`

	// JWTSecret signs session tokens.
	JWTSecret string `json:"-" mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTTTL is how long a session token stays valid (default 24h).
	JWTTTL time.Duration `json:"jwt_ttl" mapstructure:"jwt_ttl" yaml:"jwt_ttl" validate:"gte=1m"`

	// GeminiAPIKey enables the AI assistant endpoints.
	GeminiAPIKey string `json:"-" mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model" mapstructure:"gemini_model" yaml:"gemini_model"`

	// ElectricRate and WaterRate are unit prices in dong.
	ElectricRate int64 `json:"electric_rate" mapstructure:"electric_rate" yaml:"electric_rate" validate:"gte=0"`
	WaterRate    int64 `json:"water_rate" mapstructure:"water_rate" yaml:"water_rate" validate:"gte=0"`

	Landlord invoice.Landlord `json:"landlord" mapstructure:"landlord" yaml:"landlord"`

	// ValidateOnLoad verifies every stored ledger at startup.
	ValidateOnLoad bool `json:"validate_on_load" mapstructure:"validate_on_load" yaml:"validate_on_load"`

	// LogFormat is "text" or "json"; LogLevel is a slog level name.
	LogFormat string `json:"log_format" mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
	LogLevel  string `json:"log_level" mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver" validate:"oneof=memory file sqlite postgres mongo"`

	// DSN is a file path for file and sqlite, a connection string for
	// postgres and a URI for mongo.
	DSN string `json:"-" mapstructure:"dsn" yaml:"dsn" validate:"required_unless=Driver memory"`

	// Database names the MongoDB database (default "rentledger").
	Database string `json:"database" mapstructure:"database" yaml:"database"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:     ":8080",
		BasePath: "/api",
		Store: StoreConfig{
			Driver:   DriverSQLite,
			DSN:      "rentledger.db",
			Database: "rentledger",
		},
		JWTTTL:       24 * time.Hour,
		GeminiModel:  "gemini-2.5-flash",
		ElectricRate: usage.ElectricRate,
		WaterRate:    usage.WaterRate,
		Landlord:     invoice.DefaultLandlord(),
		LogFormat:    "text",
		LogLevel:     "info",
	}
}

// Rates returns the configured unit prices.
func (c Config) Rates() usage.Rates {
	return usage.Rates{
		Electric: types.VND(c.ElectricRate),
		Water:    types.VND(c.WaterRate),
	}
}

// AssistEnabled reports whether the AI assistant is configured.
func (c Config) AssistEnabled() bool { return c.GeminiAPIKey != "" }

// Validate checks the configuration for values the application cannot
// start with.
func (c Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return fmt.Errorf("config: %s failed on %s", f.Namespace(), f.Tag())
	}
	return fmt.Errorf("config: %w", err)
}

// Load reads the .env files (".env" when none are given; missing files are
// skipped), then overlays RENTLEDGER_* variables on DefaultConfig and
// validates the result.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv overlays the variables found by lookup on DefaultConfig.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	r := reader{lookup: lookup}

	r.str("ADDR", &cfg.Addr)
	r.str("BASE_PATH", &cfg.BasePath)
	r.str("STORE_DRIVER", &cfg.Store.Driver)
	r.str("STORE_DSN", &cfg.Store.DSN)
	r.str("STORE_DATABASE", &cfg.Store.Database)
	r.str("REDIS_ADDR", &cfg.RedisAddr)
	r.str("JWT_SECRET", &cfg.JWTSecret)
	r.duration("JWT_TTL", &cfg.JWTTTL)
	r.str("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	r.str("GEMINI_MODEL", &cfg.GeminiModel)
	r.int64("ELECTRIC_RATE", &cfg.ElectricRate)
	r.int64("WATER_RATE", &cfg.WaterRate)
	r.boolean("VALIDATE_ON_LOAD", &cfg.ValidateOnLoad)
	r.str("LOG_FORMAT", &cfg.LogFormat)
	r.str("LOG_LEVEL", &cfg.LogLevel)

	r.str("LANDLORD_NAME", &cfg.Landlord.Name)
	r.str("LANDLORD_ADDRESS", &cfg.Landlord.Address)
	r.str("LANDLORD_PHONE", &cfg.Landlord.Phone)
	r.str("BANK_BIN", &cfg.Landlord.BankBIN)
	r.str("BANK_ACCOUNT", &cfg.Landlord.BankAccount)
	r.str("BANK_NAME", &cfg.Landlord.BankName)
	r.str("ACCOUNT_HOLDER", &cfg.Landlord.AccountHolder)

	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	return cfg, r.err
}

// reader collects the first parse failure so FromEnv can read every
// variable in a flat list.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) get(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
	}
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *reader) int64(key string, dst *int64) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(v, "_", ""), 10, 64)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = n
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = d
}

func (r *reader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		*dst = true
	case "0", "false", "no", "n", "off":
		*dst = false
	default:
		r.fail(key, fmt.Errorf("invalid boolean %q", v))
	}
}
