package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestID(), requestLogger(zaptest.NewLogger(t)))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	given := uuid.NewString()
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"reuses valid id", given, true},
		{"replaces garbage", "not-a-uuid", false},
		{"generates when missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set(requestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.keep {
				assert.Equal(t, tt.header, got)
				return
			}
			assert.NotEqual(t, tt.header, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := newRateLimiter(0.001, 1, zaptest.NewLogger(t))
	assert.True(t, rl.getLimiter("10.0.0.1").Allow())
	assert.False(t, rl.getLimiter("10.0.0.1").Allow())
	assert.True(t, rl.getLimiter("10.0.0.2").Allow())
}
