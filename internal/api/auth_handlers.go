package api

import (
	"net/http"
	"time"

	"github.com/example/bookstore/internal/api/middleware"
	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const (
	refreshTokenCookie = "refresh_token"
	refreshCookiePath  = "/api/auth/refresh"
)

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email      string           `json:"email" binding:"required,email"`
	Password   string           `json:"password" binding:"required"`
	FirstName  string           `json:"firstName" binding:"required"`
	LastName   string           `json:"lastName" binding:"required"`
	Role       auth.Role        `json:"role"`
	SellerInfo *user.SellerInfo `json:"sellerInfo"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User         user.Profile `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	Message      string       `json:"message,omitempty"`
}

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.Register(c.Request.Context(), user.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		SellerInfo: req.SellerInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.issueTokens(c, http.StatusCreated, u, "Registration successful")
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.issueTokens(c, http.StatusOK, u, "Login successful")
}

// Refresh handles POST /api/auth/refresh. The refresh token comes from the
// body or the refresh_token cookie.
func (h *Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshTokenCookie)
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token required"})
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(token)
	if err != nil {
		h.clearAuthCookies(c)
		respondError(c, err)
		return
	}
	u, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		h.clearAuthCookies(c)
		respondError(c, err)
		return
	}
	if !u.IsActive {
		h.clearAuthCookies(c)
		respondError(c, user.ErrUserDeactivated)
		return
	}
	h.issueTokens(c, http.StatusOK, u, "Token refreshed")
}

// Logout handles POST /api/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	h.clearAuthCookies(c)
	respondMessage(c, http.StatusOK, "Logout successful")
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), principal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         u.Profile(),
		"capabilities": auth.Capabilities(u.Role),
	})
}

// ChangePassword handles PUT /api/auth/password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), principal(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password changed successfully")
}

// issueTokens signs a fresh token pair, sets them as cookies and returns them in the body
func (h *Handlers) issueTokens(c *gin.Context, status int, u *user.User, message string) {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, accessToken, int(time.Until(accessExpiry).Seconds()), "/", "", h.secureCookie, true)
	c.SetCookie(refreshTokenCookie, refreshToken, int(time.Until(refreshExpiry).Seconds()), refreshCookiePath, "", h.secureCookie, true)

	c.JSON(status, AuthResponse{
		User:         u.Profile(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiry,
		Message:      message,
	})
}

func (h *Handlers) clearAuthCookies(c *gin.Context) {
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.SetCookie(refreshTokenCookie, "", -1, refreshCookiePath, "", h.secureCookie, true)
}
