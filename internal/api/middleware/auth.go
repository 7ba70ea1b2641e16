package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/bookstore/internal/auth"
	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the authenticated auth.Principal
const PrincipalKey = "principal"

// AccessTokenCookie is the cookie browsers carry the access token in
const AccessTokenCookie = "access_token"

// ExtractToken reads the access token from the Authorization header, falling
// back to the access_token cookie
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

func principalFrom(claims *auth.Claims) auth.Principal {
	return auth.Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

// AuthMiddleware rejects requests without a valid access token
func AuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(PrincipalKey, principalFrom(claims))
		c.Next()
	}
}

// OptionalAuth sets the principal when a valid token is present and never rejects
func OptionalAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := ExtractToken(c); tokenString != "" {
			if claims, err := jwtService.ValidateAccessToken(tokenString); err == nil {
				c.Set(PrincipalKey, principalFrom(claims))
			}
		}
		c.Next()
	}
}

// RequireCapability lets the request through only when the principal's role grants capability.
// It must run after AuthMiddleware.
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !p.Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// GetPrincipal retrieves the authenticated caller from the gin context
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
