// Package file provides a Store kept in a single JSON document with "rooms"
// and "users" collections. It suits a single process managing a handful of
// rooms without a database server.
//
// The document is loaded once by New and rewritten after every successful
// mutation. Writes go to a temporary file that is renamed over the
// original, so a crash never leaves a half-written document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/store/memory"
	"github.com/nhatro/rentledger/user"
)

var _ store.Store = (*Store)(nil)

// document is the on-disk layout.
type document struct {
	Rooms []*room.Room `json:"rooms"`
	Users []*user.User `json:"users"`
}

// Store implements store.Store on a JSON file.
type Store struct {
	path string

	// mu orders mutations so the file always reflects the latest one.
	mu     sync.Mutex
	mem    *memory.Store
	closed bool
}

// New opens the document at path. A missing file is an empty store; it is
// created on the first write.
func New(path string) (*Store, error) {
	s := &Store{path: path, mem: memory.New()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("rentledger/file: open: %w", err)
	}

	var doc document
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("rentledger/file: decode %s: %w", path, err)
		}
	}
	ctx := context.Background()
	for _, r := range doc.Rooms {
		if err := s.mem.CreateRoom(ctx, r); err != nil {
			return nil, fmt.Errorf("rentledger/file: load room %s: %w", r.ID, err)
		}
	}
	for _, u := range doc.Users {
		if err := s.mem.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("rentledger/file: load user %s: %w", u.Username, err)
		}
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Migrate creates the parent directory of the document.
func (s *Store) Migrate(_ context.Context) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("rentledger/file: migrate: %w", err)
		}
	}
	return nil
}

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rentledger.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Every write has already been flushed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Room Store implementation
func (s *Store) CreateRoom(ctx context.Context, r *room.Room) error {
	return s.write(ctx, "create room", func() error { return s.mem.CreateRoom(ctx, r) })
}

func (s *Store) GetRoom(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	return s.mem.GetRoom(ctx, roomID)
}

func (s *Store) ListRooms(ctx context.Context) ([]*room.Room, error) {
	return s.mem.ListRooms(ctx)
}

func (s *Store) UpdateRoom(ctx context.Context, r *room.Room) error {
	return s.write(ctx, "update room", func() error { return s.mem.UpdateRoom(ctx, r) })
}

func (s *Store) DeleteRoom(ctx context.Context, roomID id.RoomID) error {
	return s.write(ctx, "delete room", func() error { return s.mem.DeleteRoom(ctx, roomID) })
}

// User Store implementation
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	return s.write(ctx, "create user", func() error { return s.mem.CreateUser(ctx, u) })
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.mem.GetUser(ctx, userID)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.mem.GetUserByUsername(ctx, username)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	return s.mem.ListUsers(ctx)
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	return s.write(ctx, "update user", func() error { return s.mem.UpdateUser(ctx, u) })
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	return s.write(ctx, "delete user", func() error { return s.mem.DeleteUser(ctx, userID) })
}

// write applies fn to the in-memory copy and flushes the document.
func (s *Store) write(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rentledger.ErrStoreClosed
	}
	if err := fn(); err != nil {
		return err
	}
	if err := s.flush(ctx); err != nil {
		return fmt.Errorf("rentledger/file: %s: %w", op, err)
	}
	return nil
}

func (s *Store) flush(ctx context.Context) error {
	var doc document
	var err error
	if doc.Rooms, err = s.mem.ListRooms(ctx); err != nil {
		return err
	}
	if doc.Users, err = s.mem.ListUsers(ctx); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
