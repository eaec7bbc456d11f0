// Package gormstore implements store.Store on GORM, opened with the SQLite
// or PostgreSQL dialect.
//
// A room is one aggregate spread over three tables: rooms, tenants and
// usage_records (active and archived records, told apart by a flag).
// Writes replace the whole aggregate inside a transaction.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/user"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using GORM.
type Store struct {
	db      *gorm.DB
	backend string
}

// Open connects with dialector and returns a Store. backend names the
// database in wrapped errors ("sqlite", "postgres").
func Open(dialector gorm.Dialector, backend string) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("rentledger/%s: open: %w", backend, err)
	}
	return New(db, backend), nil
}

// New wraps an existing GORM handle. Enable TranslateError on db so unique
// violations map to rentledger.ErrAlreadyExists.
func New(db *gorm.DB, backend string) *Store {
	return &Store{db: db, backend: backend}
}

// DB returns the underlying GORM handle for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&roomModel{},
		&tenantModel{},
		&recordModel{},
		&userModel{},
	)
	return s.wrap("migrate", err)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.wrap("ping", err)
	}
	return s.wrap("ping", sqlDB.PingContext(ctx))
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.wrap("close", err)
	}
	return s.wrap("close", sqlDB.Close())
}

// ==================== Room Store ====================

func (s *Store) CreateRoom(ctx context.Context, r *room.Room) error {
	m := toRoomModel(r)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		return insertChildren(tx, m)
	})
	return s.wrap("create room", err)
}

func (s *Store) GetRoom(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	var m roomModel
	err := s.preload(s.db.WithContext(ctx)).
		Where("id = ?", roomID.String()).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rentledger.ErrRoomNotFound
		}
		return nil, s.wrap("get room", err)
	}
	return fromRoomModel(&m)
}

func (s *Store) ListRooms(ctx context.Context) ([]*room.Room, error) {
	var models []roomModel
	err := s.preload(s.db.WithContext(ctx)).
		Order("pinned DESC, position ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, s.wrap("list rooms", err)
	}

	result := make([]*room.Room, len(models))
	for i := range models {
		r, err := fromRoomModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) UpdateRoom(ctx context.Context, r *room.Room) error {
	m := toRoomModel(r)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&roomModel{}).
			Where("id = ?", m.ID).
			Updates(map[string]any{
				"name":       m.Name,
				"base_rent":  m.BaseRent,
				"currency":   m.Currency,
				"pinned":     m.Pinned,
				"position":   m.Position,
				"updated_at": m.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return rentledger.ErrRoomNotFound
		}
		if err := deleteChildren(tx, m.ID); err != nil {
			return err
		}
		return insertChildren(tx, m)
	})
	return s.wrap("update room", err)
}

func (s *Store) DeleteRoom(ctx context.Context, roomID id.RoomID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, roomID.String()); err != nil {
			return err
		}
		res := tx.Where("id = ?", roomID.String()).Delete(&roomModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return rentledger.ErrRoomNotFound
		}
		return nil
	})
	return s.wrap("delete room", err)
}

func (s *Store) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tenants", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("archived ASC, seq ASC") })
}

func insertChildren(tx *gorm.DB, m *roomModel) error {
	if len(m.Tenants) > 0 {
		if err := tx.Create(&m.Tenants).Error; err != nil {
			return err
		}
	}
	if len(m.Records) > 0 {
		if err := tx.CreateInBatches(&m.Records, 100).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteChildren(tx *gorm.DB, roomID string) error {
	if err := tx.Where("room_id = ?", roomID).Delete(&tenantModel{}).Error; err != nil {
		return err
	}
	return tx.Where("room_id = ?", roomID).Delete(&recordModel{}).Error
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	err := s.db.WithContext(ctx).Create(toUserModel(u)).Error
	return s.wrap("create user", err)
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.findUser(ctx, "id = ?", userID.String())
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*user.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rentledger.ErrUserNotFound
		}
		return nil, s.wrap("get user", err)
	}
	return fromUserModel(&m)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	var models []userModel
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&models).Error; err != nil {
		return nil, s.wrap("list users", err)
	}

	result := make([]*user.User, len(models))
	for i := range models {
		u, err := fromUserModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	res := s.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"username":      m.Username,
			"name":          m.Name,
			"role":          m.Role,
			"password_hash": m.PasswordHash,
			"updated_at":    m.UpdatedAt,
		})
	if res.Error != nil {
		return s.wrap("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return rentledger.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	res := s.db.WithContext(ctx).Where("id = ?", userID.String()).Delete(&userModel{})
	if res.Error != nil {
		return s.wrap("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return rentledger.ErrUserNotFound
	}
	return nil
}

// wrap maps driver errors onto rentledger sentinels and prefixes the rest
// with the backend and operation. Sentinels pass through unchanged.
func (s *Store) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rentledger.ErrNotFound),
		errors.Is(err, rentledger.ErrRoomNotFound),
		errors.Is(err, rentledger.ErrUserNotFound):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("rentledger/%s: %s: %w", s.backend, op, rentledger.ErrAlreadyExists)
	}
	return fmt.Errorf("rentledger/%s: %s: %w", s.backend, op, err)
}
