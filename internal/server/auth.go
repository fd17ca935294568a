package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rommeltorquator/project-management-app/internal/auth"
	"github.com/rommeltorquator/project-management-app/internal/storage/sqlite"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// handleRegister creates a new account and returns a signed token for it.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		s.respondError(c, err, "")
		return
	}

	user, err := s.store.CreateUser(ctx, req.Username, req.Email, hash)
	if err != nil {
		s.respondError(c, err, "")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.respondError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// handleLogin verifies credentials and returns a signed token. Unknown
// email and wrong password produce the exact same response.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	user, err := s.store.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			err = auth.ErrInvalidCredentials
		}
		s.respondError(c, err, "")
		return
	}

	if err := s.hasher.Verify(ctx, req.Password, user.PasswordHash); err != nil {
		s.respondError(c, err, "")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
