package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatro/rentledger/config"
	"github.com/nhatro/rentledger/invoice"
	"github.com/nhatro/rentledger/store/memory"
	"github.com/nhatro/rentledger/types"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{WaterRate: 12_000})

	assert.Equal(t, "/api", cfg.BasePath)
	assert.Equal(t, int64(5_000), cfg.ElectricRate)
	assert.Equal(t, int64(12_000), cfg.WaterRate)
	assert.Equal(t, invoice.DefaultLandlord(), cfg.Landlord)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{
		BasePath:     "/ledger",
		ElectricRate: 4_000,
	}
	programmatic := Config{
		BasePath:       "/ignored",
		DisableRoutes:  true,
		ValidateOnLoad: true,
		JWTSecret:      "programmatic-secret-123",
		Store:          config.StoreConfig{Driver: config.DriverMemory},
	}

	cfg := mergeConfigurations(yaml, programmatic)
	assert.Equal(t, "/ledger", cfg.BasePath)
	assert.True(t, cfg.DisableRoutes)
	assert.True(t, cfg.ValidateOnLoad)
	assert.Equal(t, "programmatic-secret-123", cfg.JWTSecret)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, types.VND(4_000), cfg.Rates().Electric)
	assert.Equal(t, types.VND(10_000), cfg.Rates().Water)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	e := New(WithStore(memory.New()), WithJWTSecret("extension-secret-123"))
	e.config = mergeWithDefaults(e.config)
	require.NoError(t, e.open(ctx))
	require.NotNil(t, e.Engine())
	require.NotNil(t, e.Server())

	require.NoError(t, e.Engine().Start(ctx))
	require.NoError(t, e.Engine().Seed(ctx))
	require.NoError(t, e.Health(ctx))

	w := httptest.NewRecorder()
	e.Server().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, e.Engine().Stop())
}

func TestOpenWithoutRoutes(t *testing.T) {
	e := New(WithStoreConfig(config.StoreConfig{Driver: config.DriverMemory}), WithDisableRoutes(), WithJWTSecret("extension-secret-123"))
	e.config = mergeWithDefaults(e.config)
	require.NoError(t, e.open(context.Background()))
	assert.NotNil(t, e.Engine())
	assert.Nil(t, e.Server())
}

func TestOpenShortSecret(t *testing.T) {
	e := New(WithStore(memory.New()), WithJWTSecret("short"))
	e.config = mergeWithDefaults(e.config)
	assert.Error(t, e.open(context.Background()))
}

func TestOpenGroveDatabase(t *testing.T) {
	e := New(WithGroveDatabase(nil, config.DriverPostgres))
	e.config = mergeWithDefaults(e.config)
	err := e.open(context.Background())
	assert.ErrorContains(t, err, "grove postgres database is nil")
	assert.Nil(t, e.Engine())

	e = New(WithStore(memory.New()), WithGroveDatabase(nil, config.DriverSQLite))
	e.config = mergeWithDefaults(e.config)
	require.NoError(t, e.open(context.Background()))
	assert.NotNil(t, e.Engine())
}
