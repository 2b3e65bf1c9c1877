// Package auth verifies backend-issued access tokens on incoming requests.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// User is the caller identified by a verified token.
type User struct {
	ID      string
	Email   string
	Role    string // token role, e.g. "authenticated" or "service_role"
	AppRole string // application role from user or app metadata
	Token   string
}

// IsAdmin reports whether the caller may administer members.
func (u *User) IsAdmin() bool {
	return u.Role == "service_role" || strings.EqualFold(u.AppRole, "ADMIN")
}

type contextKey struct{}

// WithUser stores the caller in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the caller stored in ctx, if any.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

// UserID returns the caller's id or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if u := FromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

// Verifier checks HS256 tokens signed with the backend JWT secret.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

// NewVerifier creates a Verifier for secret.
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	return &Verifier{secret: []byte(secret), logger: logger}
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (*User, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("jwt invalid")
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, fmt.Errorf("jwt has no subject")
	}
	u := &User{
		ID:    sub,
		Email: stringClaim(claims, "email"),
		Role:  stringClaim(claims, "role"),
		Token: raw,
	}
	u.AppRole = metadataRole(claims, "app_metadata")
	if u.AppRole == "" {
		u.AppRole = metadataRole(claims, "user_metadata")
	}
	return u, nil
}

// Required rejects requests without a valid bearer token and stores the
// caller in the request context.
func (v *Verifier) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		u, err := v.Verify(raw)
		if err != nil {
			v.logger.Warn("rejected token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}

// Passthrough stores the bearer token, unverified, so that calls made on the
// caller's behalf can forward it. Used when no JWT secret is configured.
func Passthrough() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
			c.Request = c.Request.WithContext(WithUser(c.Request.Context(), &User{Token: raw}))
		}
		c.Next()
	}
}

// RequireAdmin allows only callers for which User.IsAdmin holds. It must run
// after Required.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := FromContext(c.Request.Context())
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func metadataRole(claims jwt.MapClaims, key string) string {
	m, ok := claims[key].(map[string]any)
	if !ok {
		return ""
	}
	role, _ := m["role"].(string)
	return role
}
