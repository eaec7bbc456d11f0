// Package store defines the aggregate persistence interface for the rental
// ledger. Backends live in subpackages: memory, file, gormstore, the grove
// sqlite and postgres stores, and mongo.
package store

import (
	"context"

	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/user"
)

// Store is the unified storage interface for all entities.
//
// Rooms are stored as whole aggregates. UpdateRoom replaces the room's
// tenants, active history and archive in one step; a backend must never
// leave a partially written room behind.
type Store interface {
	room.Store
	user.Store

	// Migrate creates or upgrades the backend schema.
	Migrate(ctx context.Context) error
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
