package api

import (
	"net/http"
	"testing"

	"github.com/example/bookstore/internal/api/middleware"
	"github.com/example/bookstore/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email string) gin.H {
	return gin.H{
		"email":     email,
		"password":  "correct-horse",
		"firstName": "Ada",
		"lastName":  "Reader",
	}
}

// ============================================
// Register / Login Tests
// ============================================

func TestRegister(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", registerBody("Ada@Example.com"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[AuthResponse](t, rec)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, auth.RoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, middleware.AccessTokenCookie)
	assert.True(t, cookies[middleware.AccessTokenCookie].HttpOnly)
	require.Contains(t, cookies, refreshTokenCookie)
	assert.Equal(t, refreshCookiePath, cookies[refreshTokenCookie].Path)
}

func TestRegister_Rejections(t *testing.T) {
	f := newTestServer(t)
	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", registerBody("taken@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	shortPassword := registerBody("short@example.com")
	shortPassword["password"] = "short"
	asAdmin := registerBody("boss@example.com")
	asAdmin["role"] = "admin"
	sellerNoBusiness := registerBody("shop@example.com")
	sellerNoBusiness["role"] = "seller"
	missingName := registerBody("nameless@example.com")
	delete(missingName, "lastName")

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"duplicate email", registerBody("TAKEN@example.com"), http.StatusConflict},
		{"bad email", registerBody("not-an-email"), http.StatusBadRequest},
		{"short password", shortPassword, http.StatusBadRequest},
		{"admin cannot self-register", asAdmin, http.StatusForbidden},
		{"seller needs a business name", sellerNoBusiness, http.StatusBadRequest},
		{"missing last name", missingName, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegister_Seller(t *testing.T) {
	f := newTestServer(t)
	body := registerBody("shop@example.com")
	body["role"] = "seller"
	body["sellerInfo"] = gin.H{"businessName": "Dune Books"}

	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[AuthResponse](t, rec)
	assert.Equal(t, auth.RoleSeller, resp.User.Role)
	require.NotNil(t, resp.User.SellerInfo)
	assert.Equal(t, "Dune Books", resp.User.SellerInfo.BusinessName)
}

func TestLogin(t *testing.T) {
	f := newTestServer(t)
	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"valid", "ada@example.com", "correct-horse", http.StatusOK},
		{"email is case insensitive", "ADA@example.com", "correct-horse", http.StatusOK},
		{"wrong password", "ada@example.com", "wrong-horse", http.StatusUnauthorized},
		{"unknown email", "nobody@example.com", "correct-horse", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/login", gin.H{"email": tt.email, "password": tt.password})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec = f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/login", gin.H{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================
// Session Tests
// ============================================

func TestMeAndRefresh(t *testing.T) {
	f := newTestServer(t)
	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[AuthResponse](t, rec)
	me := auth.Principal{UserID: registered.User.ID, Email: registered.User.Email, Role: registered.User.Role}

	rec = f.do(t, me, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Capabilities []auth.Capability `json:"capabilities"`
	}](t, rec)
	assert.Equal(t, registered.User.ID, profile.User.ID)
	assert.Contains(t, profile.Capabilities, auth.CapOrderCreate)
	assert.NotContains(t, profile.Capabilities, auth.CapBookWrite)

	rec = f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": registered.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decode[AuthResponse](t, rec)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)

	rec = f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": registered.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "access tokens are not refresh tokens")

	rec = f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	f := newTestServer(t)
	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/register", registerBody("ada@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[AuthResponse](t, rec)
	me := auth.Principal{UserID: registered.User.ID, Email: registered.User.Email, Role: registered.User.Role}

	rec = f.do(t, me, http.MethodPut, "/api/auth/password", gin.H{"currentPassword": "wrong-horse", "newPassword": "battery-staple"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, me, http.MethodPut, "/api/auth/password", gin.H{"currentPassword": "correct-horse", "newPassword": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, me, http.MethodPut, "/api/auth/password", gin.H{"currentPassword": "correct-horse", "newPassword": "battery-staple"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/login", gin.H{"email": "ada@example.com", "password": "battery-staple"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, auth.Principal{}, http.MethodPost, "/api/auth/logout", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.True(t, c.MaxAge < 0)
	}
}
