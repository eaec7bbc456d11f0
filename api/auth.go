package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/user"
)

const (
	principalKey = "rentledger.principal"
	roomIDKey    = "rentledger.room_id"
)

// ErrInvalidToken is returned for missing, malformed or expired tokens.
var ErrInvalidToken = errors.New("api: invalid token")

// Claims is the JWT payload of a session.
type Claims struct {
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Role     user.Role `json:"role"`
	RoomID   string    `json:"room_id,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer. ttl defaults to 24h.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("api: jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for p and returns it with its expiry.
func (t *Tokens) Issue(p *user.Principal) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := &Claims{
		Username: p.Username,
		Name:     p.Name,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rentledger",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if !p.UserID.IsNil() {
		claims.Subject = p.UserID.String()
	}
	if !p.RoomID.IsNil() {
		claims.RoomID = p.RoomID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("api: sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns the principal it carries.
func (t *Tokens) Parse(token string) (*user.Principal, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	p := &user.Principal{Username: claims.Username, Name: claims.Name, Role: claims.Role}
	switch p.Role {
	case user.RoleAdmin, user.RoleStaff:
		if p.UserID, err = id.ParseUserID(claims.Subject); err != nil {
			return nil, ErrInvalidToken
		}
	case user.RoleTenant:
		if p.RoomID, err = id.ParseRoomID(claims.RoomID); err != nil {
			return nil, ErrInvalidToken
		}
	default:
		return nil, ErrInvalidToken
	}
	return p, nil
}

// ──────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *user.Principal `json:"user"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.engine.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, p)
}

func (s *Server) respondSession(c *gin.Context, status int, p *user.Principal) {
	token, exp, err := s.tokens.Issue(p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(status, gin.H{"data": sessionResponse{Token: token, ExpiresAt: exp, User: p}})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": principal(c)})
}

func (s *Server) updateMe(c *gin.Context) {
	var req rentledger.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.engine.UpdateProfile(c.Request.Context(), principal(c).UserID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	// The username is part of the token, so hand out a fresh one.
	s.respondSession(c, http.StatusOK, user.PrincipalOf(u))
}

// ──────────────────────────────────────────────────
// Middleware
// ──────────────────────────────────────────────────

// authenticate requires a valid bearer token.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortWithError(c, ErrInvalidToken)
			return
		}
		p, err := s.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func requireEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Role.CanEdit() {
			abortWithError(c, rentledger.ErrForbidden)
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal(c).Role != user.RoleAdmin {
			abortWithError(c, rentledger.ErrForbidden)
			return
		}
		c.Next()
	}
}

// roomAccess parses the :id parameter and confines tenants to their room.
func (s *Server) roomAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := id.ParseRoomID(c.Param("id"))
		if err != nil {
			abortWithError(c, rentledger.NotFoundError{Resource: "room", ID: c.Param("id")})
			return
		}
		if p := principal(c); p.Role == user.RoleTenant && p.RoomID != roomID {
			abortWithError(c, rentledger.ErrForbidden)
			return
		}
		c.Set(roomIDKey, roomID)
		c.Next()
	}
}

func principal(c *gin.Context) *user.Principal {
	p, _ := c.MustGet(principalKey).(*user.Principal)
	return p
}

func roomID(c *gin.Context) id.RoomID {
	v, _ := c.MustGet(roomIDKey).(id.RoomID)
	return v
}
