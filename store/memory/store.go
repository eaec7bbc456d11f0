// Package memory provides an in-memory Store for tests and demos. Values are
// copied on the way in and on the way out, so callers never share state with
// the store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/user"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Room storage, keyed by room ID.
	rooms map[string]*room.Room

	// User storage, keyed by user ID.
	users map[string]*user.User
}

func New() *Store {
	return &Store{
		rooms: make(map[string]*room.Room),
		users: make(map[string]*user.User),
	}
}

// Room Store implementation
func (s *Store) CreateRoom(_ context.Context, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[r.ID.String()]; exists {
		return rentledger.ErrAlreadyExists
	}
	s.rooms[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) GetRoom(_ context.Context, roomID id.RoomID) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rooms[roomID.String()]; ok {
		return r.Clone(), nil
	}
	return nil, rentledger.ErrRoomNotFound
}

func (s *Store) ListRooms(_ context.Context) ([]*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		result = append(result, r.Clone())
	}
	// Map iteration is random; order by ID first so Sort's stability yields
	// a deterministic listing.
	slices.SortFunc(result, func(a, b *room.Room) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	room.Sort(result)
	return result, nil
}

func (s *Store) UpdateRoom(_ context.Context, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[r.ID.String()]; !exists {
		return rentledger.ErrRoomNotFound
	}
	s.rooms[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, roomID id.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[roomID.String()]; !exists {
		return rentledger.ErrRoomNotFound
	}
	delete(s.rooms, roomID.String())
	return nil
}

// User Store implementation
func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; exists {
		return rentledger.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return rentledger.ErrAlreadyExists
		}
	}
	cp := *u
	s.users[u.ID.String()] = &cp
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID.String()]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, rentledger.ErrUserNotFound
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, rentledger.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *user.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return result, nil
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; !exists {
		return rentledger.ErrUserNotFound
	}
	for key, existing := range s.users {
		if key != u.ID.String() && existing.Username == u.Username {
			return rentledger.ErrAlreadyExists
		}
	}
	cp := *u
	s.users[u.ID.String()] = &cp
	return nil
}

func (s *Store) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID.String()]; !exists {
		return rentledger.ErrUserNotFound
	}
	delete(s.users, userID.String())
	return nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
