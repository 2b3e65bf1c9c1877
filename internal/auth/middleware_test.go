package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret, zaptest.NewLogger(t))

	raw := sign(t, testSecret, jwt.MapClaims{
		"sub":           "member-1",
		"email":         "admin@pos.test",
		"role":          "authenticated",
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{"role": "ADMIN"},
	})

	u, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "member-1", u.ID)
	assert.Equal(t, "ADMIN", u.AppRole)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, raw, u.Token)
}

func TestVerify_Rejects(t *testing.T) {
	v := NewVerifier(testSecret, zaptest.NewLogger(t))

	t.Run("wrong secret", func(t *testing.T) {
		raw := sign(t, "another-secret", jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()})
		_, err := v.Verify(raw)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		raw := sign(t, testSecret, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(-time.Hour).Unix()})
		_, err := v.Verify(raw)
		assert.Error(t, err)
	})

	t.Run("no subject", func(t *testing.T) {
		raw := sign(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
		_, err := v.Verify(raw)
		assert.Error(t, err)
	})
}

func TestRequiredAndRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier(testSecret, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/me", v.Required(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c.Request.Context())})
	})
	r.GET("/admin", v.Required(), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	seller := sign(t, testSecret, jwt.MapClaims{
		"sub":           "seller-1",
		"role":          "authenticated",
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{"role": "SELLER"},
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + seller, http.StatusOK},
		{"non admin", "/admin", "Bearer " + seller, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestPassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", Passthrough(), func(c *gin.Context) {
		u := FromContext(c.Request.Context())
		if u == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.String(http.StatusOK, u.Token)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer opaque")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "opaque", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
