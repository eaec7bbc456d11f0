// Package user defines staff accounts, their roles and the principal that an
// authenticated session carries.
package user

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/types"
)

// Role is an access level.
type Role string

const (
	// RoleAdmin manages rooms, billing and user accounts.
	RoleAdmin Role = "admin"
	// RoleStaff manages rooms and billing.
	RoleStaff Role = "staff"
	// RoleTenant is a read-only session scoped to one room. Tenant sessions
	// are never stored as User rows.
	RoleTenant Role = "tenant"
)

// Valid reports whether r is an assignable account role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleStaff }

// CanEdit reports whether the role may mutate rooms and ledgers.
func (r Role) CanEdit() bool { return r == RoleAdmin || r == RoleStaff }

// User is a staff or admin account.
type User struct {
	types.Entity
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"password_hash"`
}

// ErrPasswordMismatch is returned by CheckPassword on a wrong password.
var ErrPasswordMismatch = errors.New("user: password mismatch")

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword compares password against the stored hash.
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// NormalizeUsername lowercases and trims a username. Usernames compare
// case-insensitively.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoginName folds s into the form used to match tenant logins: lowercase,
// without diacritics, letters and digits only. "Phòng 101" and "phong101"
// both yield "phong101".
func LoginName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, types.Fold(s))
}

// Principal is the identity attached to an authenticated session.
type Principal struct {
	UserID   id.UserID `json:"user_id,omitempty"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`

	// RoomID is set for tenant sessions only.
	RoomID id.RoomID `json:"room_id,omitempty"`
}

// PrincipalOf builds the session principal for a stored account.
func PrincipalOf(u *User) *Principal {
	return &Principal{UserID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}
