package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/auth"
	"github.com/gin-gonic/gin"
)

type TokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

var _ TokenValidator = (*auth.JWTManager)(nil)

// Authenticate validates the bearer token and attaches the caller's
// domain.Session to the request context.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		sess := domain.Session{
			UserID:    claims.UserID,
			Email:     claims.Email,
			Role:      claims.Role,
			IPAddress: c.ClientIP(),
			RequestID: GetRequestID(c),
		}
		c.Request = c.Request.WithContext(domain.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// RequireRole rejects sessions whose role is not in roles. It must run
// after Authenticate.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := domain.SessionFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
