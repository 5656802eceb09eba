package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(keys []string) *gin.Engine {
	r := gin.New()
	r.Use(NewAPIKeyAuth(keys, nil).Handler())
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestNewAPIKeyAuth(t *testing.T) {
	t.Parallel()

	t.Run("filters out empty keys", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth([]string{"key1", "", "key2", ""}, nil)

		require.NotNil(t, auth)
		assert.Equal(t, 2, len(auth.apiKeys))
		assert.True(t, auth.apiKeys["key1"])
		assert.True(t, auth.apiKeys["key2"])
		assert.True(t, auth.Enabled())
	})

	t.Run("handles empty key slice", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth([]string{}, nil)

		require.NotNil(t, auth)
		assert.False(t, auth.Enabled())
		assert.NotNil(t, auth.logger)
	})
}

func TestAPIKeyAuth_Handler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		keys       []string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "valid X-API-Key",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer token",
			keys:       []string{"secret"},
			headers:    map[string]string{"Authorization": "Bearer secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "X-API-Key takes precedence",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "wrong", "Authorization": "Bearer secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing key",
			keys:       []string{"secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth is not accepted",
			keys:       []string{"secret"},
			headers:    map[string]string{"Authorization": "Basic secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no keys configured leaves API open",
			keys:       nil,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			newAuthRouter(tt.keys).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAPIKeyAuth_UnauthorizedBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	newAuthRouter([]string{"secret"}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "unauthorized", body.Reason)
	assert.Equal(t, "/protected", body.Path)
}
