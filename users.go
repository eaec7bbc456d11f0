package rentledger

import (
	"context"
	"errors"
	"strings"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/user"
)

// UserInput holds the fields of a new account.
type UserInput struct {
	Username string    `json:"username" validate:"required,min=3,max=32"`
	Name     string    `json:"name" validate:"required,max=100"`
	Role     user.Role `json:"role" validate:"required,oneof=admin staff"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
}

// UserUpdate changes an account. Nil fields are left unchanged.
type UserUpdate struct {
	Username *string    `json:"username,omitempty" validate:"omitnil,min=3,max=32"`
	Name     *string    `json:"name,omitempty" validate:"omitnil,required,max=100"`
	Role     *user.Role `json:"role,omitempty" validate:"omitnil,oneof=admin staff"`
	Password *string    `json:"password,omitempty" validate:"omitnil,min=6,max=72"`
}

// ProfileUpdate is a user's edit of their own account. The role cannot be
// changed this way, and a new password is set only when NewPassword is not
// empty.
type ProfileUpdate struct {
	Username    string `json:"username" validate:"required,min=3,max=32"`
	Name        string `json:"name" validate:"required,max=100"`
	NewPassword string `json:"new_password,omitempty" validate:"omitempty,min=6,max=72"`
}

// ──────────────────────────────────────────────────
// User Management
// ──────────────────────────────────────────────────

// CreateUser creates an admin or staff account. Usernames are unique,
// ignoring case.
func (e *Engine) CreateUser(ctx context.Context, in UserInput) (*user.User, error) {
	in.Username = user.NormalizeUsername(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := e.check(in); err != nil {
		return nil, err
	}

	u := &user.User{
		Entity:   types.NewEntity(),
		ID:       id.NewUserID(),
		Username: in.Username,
		Name:     in.Name,
		Role:     in.Role,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := e.store.CreateUser(ctx, u); err != nil {
		return nil, usernameConflict(err, u.Username)
	}

	e.plugins.EmitUserCreated(ctx, u)
	return u, nil
}

// GetUser retrieves an account by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	u, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrNotFound) {
		return nil, notFound("user", userID)
	}
	return u, err
}

// ListUsers returns all accounts ordered by username.
func (e *Engine) ListUsers(ctx context.Context) ([]*user.User, error) {
	return e.store.ListUsers(ctx)
}

// UpdateUser changes an account's username, name, role or password.
func (e *Engine) UpdateUser(ctx context.Context, userID id.UserID, upd UserUpdate) (*user.User, error) {
	if upd.Username != nil {
		name := user.NormalizeUsername(*upd.Username)
		upd.Username = &name
	}
	if err := e.check(upd); err != nil {
		return nil, err
	}

	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Password != nil {
		if err := u.SetPassword(*upd.Password); err != nil {
			return nil, err
		}
	}
	return e.saveUser(ctx, u)
}

// UpdateProfile applies a user's edit of their own account.
func (e *Engine) UpdateProfile(ctx context.Context, userID id.UserID, upd ProfileUpdate) (*user.User, error) {
	upd.Username = user.NormalizeUsername(upd.Username)
	upd.Name = strings.TrimSpace(upd.Name)
	if err := e.check(upd); err != nil {
		return nil, err
	}

	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Username = upd.Username
	u.Name = upd.Name
	if upd.NewPassword != "" {
		if err := u.SetPassword(upd.NewPassword); err != nil {
			return nil, err
		}
	}
	return e.saveUser(ctx, u)
}

// DeleteUser removes an account. Users cannot delete themselves.
func (e *Engine) DeleteUser(ctx context.Context, userID, actor id.UserID) error {
	if userID == actor {
		return ValidationError{Field: "id", Message: "cannot delete your own account", Err: ErrForbidden}
	}
	if err := e.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrNotFound) {
			return notFound("user", userID)
		}
		return err
	}

	e.plugins.EmitUserDeleted(ctx, userID)
	return nil
}

func (e *Engine) saveUser(ctx context.Context, u *user.User) (*user.User, error) {
	u.Touch()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return nil, usernameConflict(err, u.Username)
	}
	return u, nil
}

func usernameConflict(err error, username string) error {
	if errors.Is(err, ErrAlreadyExists) {
		return ValidationError{Field: "username", Message: "username " + username + " is taken", Err: ErrAlreadyExists}
	}
	return err
}

// ──────────────────────────────────────────────────
// Authentication
// ──────────────────────────────────────────────────

// Authenticate checks a username and password. Accounts are tried first.
// Otherwise the username may name an occupied room ("phong101" or
// "Phòng 101") with the room number as password, which opens a read-only
// tenant session for that room.
func (e *Engine) Authenticate(ctx context.Context, username, password string) (*user.Principal, error) {
	u, err := e.store.GetUserByUsername(ctx, user.NormalizeUsername(username))
	switch {
	case err == nil:
		if u.CheckPassword(password) != nil {
			return nil, ErrInvalidCredentials
		}
		p := user.PrincipalOf(u)
		e.plugins.EmitLogin(ctx, p)
		return p, nil
	case !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	r, err := e.tenantRoom(ctx, username, password)
	if err != nil {
		return nil, err
	}
	p := &user.Principal{
		Username: r.Name,
		Name:     r.Tenants[0].Name,
		Role:     user.RoleTenant,
		RoomID:   r.ID,
	}
	e.plugins.EmitLogin(ctx, p)
	return p, nil
}

func (e *Engine) tenantRoom(ctx context.Context, username, password string) (*room.Room, error) {
	login := user.LoginName(username)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		num := r.Number()
		if num == "" || !r.Occupied() {
			continue
		}
		if login == "phong"+num && password == num {
			return r, nil
		}
	}
	return nil, ErrInvalidCredentials
}
