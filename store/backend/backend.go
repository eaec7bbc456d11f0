// Package backend opens the store.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/xraph/grove"

	"github.com/nhatro/rentledger/config"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/store/file"
	"github.com/nhatro/rentledger/store/gormstore"
	"github.com/nhatro/rentledger/store/memory"
	"github.com/nhatro/rentledger/store/mongo"
	"github.com/nhatro/rentledger/store/postgres"
	"github.com/nhatro/rentledger/store/sqlite"
)

// Open connects to the backend named by cfg.Driver. The caller owns the
// returned store and must Close it.
func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.New(), nil
	case config.DriverFile:
		return file.New(cfg.DSN)
	case config.DriverSQLite:
		return gormstore.OpenSQLite(cfg.DSN)
	case config.DriverPostgres:
		return gormstore.OpenPostgres(cfg.DSN)
	case config.DriverMongo:
		database := cfg.Database
		if database == "" {
			database = "rentledger"
		}
		return mongo.Connect(ctx, cfg.DSN, database)
	}
	return nil, fmt.Errorf("backend: unknown store driver %q", cfg.Driver)
}

// Grove wraps a grove database opened by the host application. driver names
// the dialect db was opened with.
func Grove(db *grove.DB, driver string) (store.Store, error) {
	if driver != config.DriverSQLite && driver != config.DriverPostgres {
		return nil, fmt.Errorf("backend: no grove store for driver %q", driver)
	}
	if db == nil {
		return nil, fmt.Errorf("backend: grove %s database is nil", driver)
	}
	if driver == config.DriverSQLite {
		return sqlite.New(db), nil
	}
	return postgres.New(db), nil
}
