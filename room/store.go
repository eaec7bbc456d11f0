package room

import (
	"context"

	"github.com/nhatro/rentledger/id"
)

// Store defines persistence for rooms. A room is saved and loaded as one
// aggregate: tenants, active history and archive travel with it.
type Store interface {
	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, roomID id.RoomID) (*Room, error)
	ListRooms(ctx context.Context) ([]*Room, error)
	UpdateRoom(ctx context.Context, r *Room) error
	DeleteRoom(ctx context.Context, roomID id.RoomID) error
}
