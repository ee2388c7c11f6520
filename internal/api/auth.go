package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/themobileprof/medoffice-be/internal/api/middleware"
	"github.com/themobileprof/medoffice-be/internal/db"
	"github.com/themobileprof/medoffice-be/internal/language"
)

const tokenTTL = 12 * time.Hour

// UserStore is the persistence needed by AuthHandler
type UserStore interface {
	CreateUser(ctx context.Context, user *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id string) (*db.User, error)
}

// AuthHandler handles staff authentication endpoints
type AuthHandler struct {
	users     UserStore
	jwtSecret string
	now       func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
	ClinicID string `json:"clinic_id"`
	Role     string `json:"role" binding:"omitempty,oneof=doctor nurse receptionist"`
	Language string `json:"language"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *UserInfo `json:"user"`
}

// UserInfo represents basic user information
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	ClinicID string `json:"clinic_id,omitempty"`
	Role     string `json:"role"`
	Language string `json:"language"`
	IsAdmin  bool   `json:"is_admin"`
}

// Register handles staff registration
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if req.Role == "" {
		req.Role = "doctor"
	}
	if req.Language == "" {
		req.Language = language.DefaultLanguage
	}

	user := &db.User{
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hashedPassword),
		Name:         optional(req.Name),
		ClinicID:     optional(req.ClinicID),
		Role:         req.Role,
		Language:     req.Language,
	}

	err = h.users.CreateUser(c.Request.Context(), user)
	if errors.Is(err, db.ErrAlreadyExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles staff login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the current user's information
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, userToUserInfo(user))
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *db.User) {
	expiresAt := h.now().Add(tokenTTL)
	token, err := h.generateToken(user, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(status, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userToUserInfo(user),
	})
}

// generateToken signs an HS256 access token for a user
func (h *AuthHandler) generateToken(user *db.User, expiresAt time.Time) (string, error) {
	claims := &middleware.JWTClaims{
		UserID:   user.ID,
		Email:    user.Email,
		ClinicID: deref(user.ClinicID),
		Role:     user.Role,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(h.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

func userToUserInfo(user *db.User) *UserInfo {
	return &UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		Name:     deref(user.Name),
		ClinicID: deref(user.ClinicID),
		Role:     user.Role,
		Language: user.Language,
		IsAdmin:  user.IsAdmin,
	}
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
