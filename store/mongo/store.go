// Package mongo implements store.Store on MongoDB. Each room is a single
// document with its tenants and both ledgers embedded.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store"
	"github.com/nhatro/rentledger/user"
)

// Collection name constants.
const (
	colRooms = "rooms"
	colUsers = "users"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using the official MongoDB driver.
type Store struct {
	db *mongo.Database
}

// Connect dials uri and returns a Store on the named database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("rentledger/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // already failing
		return nil, fmt.Errorf("rentledger/mongo: ping: %w", err)
	}
	return New(client.Database(database)), nil
}

// New creates a Store on an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("rentledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

// ==================== Room Store ====================

func (s *Store) CreateRoom(ctx context.Context, r *room.Room) error {
	_, err := s.db.Collection(colRooms).InsertOne(ctx, toRoomModel(r))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rentledger.ErrAlreadyExists
		}
		return fmt.Errorf("rentledger/mongo: create room: %w", err)
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, roomID id.RoomID) (*room.Room, error) {
	var m roomModel
	err := s.db.Collection(colRooms).FindOne(ctx, bson.M{"_id": roomID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rentledger.ErrRoomNotFound
		}
		return nil, fmt.Errorf("rentledger/mongo: get room: %w", err)
	}
	return fromRoomModel(&m)
}

func (s *Store) ListRooms(ctx context.Context) ([]*room.Room, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "pinned", Value: -1},
		{Key: "position", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.db.Collection(colRooms).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list rooms: %w", err)
	}
	var models []roomModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list rooms: %w", err)
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
	res, err := s.db.Collection(colRooms).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("rentledger/mongo: update room: %w", err)
	}
	if res.MatchedCount == 0 {
		return rentledger.ErrRoomNotFound
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID id.RoomID) error {
	res, err := s.db.Collection(colRooms).DeleteOne(ctx, bson.M{"_id": roomID.String()})
	if err != nil {
		return fmt.Errorf("rentledger/mongo: delete room: %w", err)
	}
	if res.DeletedCount == 0 {
		return rentledger.ErrRoomNotFound
	}
	return nil
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.db.Collection(colUsers).InsertOne(ctx, toUserModel(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rentledger.ErrAlreadyExists
		}
		return fmt.Errorf("rentledger/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.findUser(ctx, bson.M{"_id": userID.String()})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var m userModel
	if err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, rentledger.ErrUserNotFound
		}
		return nil, fmt.Errorf("rentledger/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	cur, err := s.db.Collection(colUsers).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list users: %w", err)
	}
	var models []userModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("rentledger/mongo: list users: %w", err)
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
	res, err := s.db.Collection(colUsers).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rentledger.ErrAlreadyExists
		}
		return fmt.Errorf("rentledger/mongo: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return rentledger.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	res, err := s.db.Collection(colUsers).DeleteOne(ctx, bson.M{"_id": userID.String()})
	if err != nil {
		return fmt.Errorf("rentledger/mongo: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return rentledger.ErrUserNotFound
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colRooms: {
			{Keys: bson.D{{Key: "pinned", Value: -1}, {Key: "position", Value: 1}}},
			{Keys: bson.D{{Key: "usage_history.id", Value: 1}}},
		},
		colUsers: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
