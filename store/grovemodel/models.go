// Package grovemodel holds the grove table models shared by the SQLite and
// PostgreSQL grove stores.
//
// A room is one row: tenants and both ledgers are JSON columns, so a room
// is always read and written with a single statement.
package grovemodel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/user"
)

// ==================== Room models ====================

// Room is a row of rentledger_rooms.
type Room struct {
	grove.BaseModel `grove:"table:rentledger_rooms"`

	ID        string          `grove:"id,pk"`
	Name      string          `grove:"name"`
	BaseRent  int64           `grove:"base_rent"`
	Currency  string          `grove:"currency"`
	Pinned    bool            `grove:"pinned"`
	Position  int             `grove:"position"`
	Tenants   json.RawMessage `grove:"tenants,type:jsonb"`
	History   json.RawMessage `grove:"usage_history,type:jsonb"`
	Archive   json.RawMessage `grove:"archived_usage_history,type:jsonb"`
	CreatedAt time.Time       `grove:"created_at"`
	UpdatedAt time.Time       `grove:"updated_at"`
}

// ToRoom converts a room into its row.
func ToRoom(r *room.Room) (*Room, error) {
	tenants, err := marshalList(r.Tenants)
	if err != nil {
		return nil, fmt.Errorf("tenants: %w", err)
	}
	history, err := marshalList(r.History)
	if err != nil {
		return nil, fmt.Errorf("usage history: %w", err)
	}
	archive, err := marshalList(r.Archive)
	if err != nil {
		return nil, fmt.Errorf("archived usage history: %w", err)
	}

	return &Room{
		ID:        r.ID.String(),
		Name:      r.Name,
		BaseRent:  r.BaseRent.Amount,
		Currency:  r.BaseRent.Currency,
		Pinned:    r.Pinned,
		Position:  r.Position,
		Tenants:   tenants,
		History:   history,
		Archive:   archive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// FromRoom converts a row back into a room.
func FromRoom(m *Room) (*room.Room, error) {
	roomID, err := id.ParseRoomID(m.ID)
	if err != nil {
		return nil, err
	}
	r := &room.Room{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:       roomID,
		Name:     m.Name,
		BaseRent: types.Money{Amount: m.BaseRent, Currency: m.Currency},
		Pinned:   m.Pinned,
		Position: m.Position,
	}

	var tenants []tenant.Tenant
	if err := unmarshalList(m.Tenants, &tenants); err != nil {
		return nil, fmt.Errorf("room %s tenants: %w", m.ID, err)
	}
	r.Tenants = tenants
	if err := unmarshalList(m.History, &r.History); err != nil {
		return nil, fmt.Errorf("room %s usage history: %w", m.ID, err)
	}
	if err := unmarshalList(m.Archive, &r.Archive); err != nil {
		return nil, fmt.Errorf("room %s archived usage history: %w", m.ID, err)
	}
	return r, nil
}

func marshalList[T any](list []T) (json.RawMessage, error) {
	if len(list) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(list)
}

func unmarshalList[T any](raw json.RawMessage, out *[]T) error {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "[]" {
		*out = nil
		return nil
	}
	return json.Unmarshal(raw, out)
}

// ==================== User models ====================

// User is a row of rentledger_users.
type User struct {
	grove.BaseModel `grove:"table:rentledger_users"`

	ID           string    `grove:"id,pk"`
	Username     string    `grove:"username"`
	Name         string    `grove:"name"`
	Role         string    `grove:"role"`
	PasswordHash string    `grove:"password_hash"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
}

// ToUser converts a user into its row.
func ToUser(u *user.User) *User {
	return &User{
		ID:           u.ID.String(),
		Username:     u.Username,
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// FromUser converts a row back into a user.
func FromUser(m *User) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}
	return &user.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:           userID,
		Username:     m.Username,
		Name:         m.Name,
		Role:         user.Role(m.Role),
		PasswordHash: m.PasswordHash,
	}, nil
}

// FromRooms converts rows in order.
func FromRooms(models []Room) ([]*room.Room, error) {
	result := make([]*room.Room, len(models))
	for i := range models {
		r, err := FromRoom(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// FromUsers converts rows in order.
func FromUsers(models []User) ([]*user.User, error) {
	result := make([]*user.User, len(models))
	for i := range models {
		u, err := FromUser(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}
