package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(handlers []gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(handlers...)
	engine.POST("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		w := serve([]gin.HandlerFunc{RequestID()}, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps a supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		req.Header.Set("X-Request-ID", "req-42")
		w := serve([]gin.HandlerFunc{RequestID()}, req)

		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})

	t.Run("generated ids differ across requests", func(t *testing.T) {
		first := serve([]gin.HandlerFunc{RequestID()}, httptest.NewRequest(http.MethodPost, "/ping", nil))
		second := serve([]gin.HandlerFunc{RequestID()}, httptest.NewRequest(http.MethodPost, "/ping", nil))

		assert.NotEqual(t, first.Header().Get("X-Request-ID"), second.Header().Get("X-Request-ID"))
	})
}

func TestStaticToken(t *testing.T) {
	t.Run("accepts the configured bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		req.Header.Set("Authorization", "Bearer secret")
		w := serve([]gin.HandlerFunc{StaticToken("secret")}, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects a wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		w := serve([]gin.HandlerFunc{StaticToken("secret")}, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		w := serve([]gin.HandlerFunc{StaticToken("secret")}, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects everything when no token is configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		req.Header.Set("Authorization", "Bearer secret")
		w := serve([]gin.HandlerFunc{StaticToken("")}, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBodyLimit(t *testing.T) {
	t.Run("passes bodies under the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", strings.NewReader("small"))
		w := serve([]gin.HandlerFunc{BodyLimit(1024)}, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects oversized declared bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ping", strings.NewReader(strings.Repeat("x", 64)))
		w := serve([]gin.HandlerFunc{BodyLimit(16)}, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestTracing_DisabledIsPassthrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ping", nil)
	w := serve([]gin.HandlerFunc{Tracing(TracingConfig{Enabled: false})}, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
