package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestRouter(jm *JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAuth(jm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	jm := newTestManager(t)
	router := authTestRouter(jm)

	get := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("valid bearer token passes", func(t *testing.T) {
		token, err := jm.GenerateToken(context.Background(), "user-123", "alice@example.com", []string{"user"}, time.Hour)
		require.NoError(t, err)

		w := get("Bearer " + token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-123")
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get("").Code)
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get("Basic dXNlcjpwYXNz").Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get("Bearer not-a-jwt").Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := jm.GenerateToken(context.Background(), "user-123", "alice@example.com", []string{"user"}, -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get("Bearer "+token).Code)
	})
}

func TestRequireAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/architect", RequireAPIKey("expected-key"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/architect", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("correct key passes", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, post("expected-key").Code)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, post("wrong-key").Code)
	})

	t.Run("missing key is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, post("").Code)
	})
}
