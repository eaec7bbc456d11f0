// Package sqlite implements store.Store on a grove SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/store/grovemodel"
	"github.com/nhatro/rentledger/user"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("rentledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rentledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Room Store ====================

func (s *Store) CreateRoom(ctx context.Context, r *room.Room) error {
	m, err := grovemodel.ToRoom(r)
	if err != nil {
		return err
	}
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return wrap(err)
}

func (s *Store) GetRoom(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	m := new(grovemodel.Room)
	err := s.sdb.NewSelect(m).
		Where("id = ?", roomID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rentledger.ErrRoomNotFound
		}
		return nil, err
	}
	return grovemodel.FromRoom(m)
}

func (s *Store) ListRooms(ctx context.Context) ([]*room.Room, error) {
	var models []grovemodel.Room
	err := s.sdb.NewSelect(&models).
		OrderExpr("pinned DESC, position ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return grovemodel.FromRooms(models)
}

func (s *Store) UpdateRoom(ctx context.Context, r *room.Room) error {
	m, err := grovemodel.ToRoom(r)
	if err != nil {
		return err
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return wrap(err)
	}
	return affected(res, rentledger.ErrRoomNotFound)
}

func (s *Store) DeleteRoom(ctx context.Context, roomID id.RoomID) error {
	res, err := s.sdb.NewDelete((*grovemodel.Room)(nil)).
		Where("id = ?", roomID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, rentledger.ErrRoomNotFound)
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.sdb.NewInsert(grovemodel.ToUser(u)).Exec(ctx)
	return wrap(err)
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.findUser(ctx, "id = ?", userID.String())
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*user.User, error) {
	m := new(grovemodel.User)
	if err := s.sdb.NewSelect(m).Where(query, arg).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, rentledger.ErrUserNotFound
		}
		return nil, err
	}
	return grovemodel.FromUser(m)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	var models []grovemodel.User
	if err := s.sdb.NewSelect(&models).OrderExpr("username ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return grovemodel.FromUsers(models)
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	res, err := s.sdb.NewUpdate(grovemodel.ToUser(u)).WherePK().Exec(ctx)
	if err != nil {
		return wrap(err)
	}
	return affected(res, rentledger.ErrUserNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	res, err := s.sdb.NewDelete((*grovemodel.User)(nil)).
		Where("id = ?", userID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, rentledger.ErrUserNotFound)
}

// ==================== Helpers ====================

type result interface {
	RowsAffected() (int64, error)
}

// affected returns notFound when res touched no rows.
func affected(res result, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// wrap maps unique constraint violations onto rentledger.ErrAlreadyExists.
func wrap(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("rentledger/sqlite: %w: %v", rentledger.ErrAlreadyExists, err)
	}
	return err
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
