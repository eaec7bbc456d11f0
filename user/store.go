package user

import (
	"context"

	"github.com/nhatro/rentledger/id"
)

// Store defines persistence for user accounts. Usernames are stored
// normalized; GetUserByUsername expects a normalized username.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, userID id.UserID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, userID id.UserID) error
}
