package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/user"
)

// userResponse is a User without its password hash.
type userResponse struct {
	ID        id.UserID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.engine.ListUsers(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = newUserResponse(u)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) createUser(c *gin.Context) {
	var req rentledger.UserInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.engine.CreateUser(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": newUserResponse(u)})
}

func (s *Server) updateUser(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	var req rentledger.UserUpdate
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.engine.UpdateUser(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newUserResponse(u)})
}

func (s *Server) deleteUser(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	if err := s.engine.DeleteUser(c.Request.Context(), userID, principal(c).UserID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func userParam(c *gin.Context) (id.UserID, bool) {
	userID, err := id.ParseUserID(c.Param("userID"))
	if err != nil {
		abortWithError(c, rentledger.NotFoundError{Resource: "user", ID: c.Param("userID")})
		return id.Nil, false
	}
	return userID, true
}
