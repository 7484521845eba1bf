package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func adminRouter() *gin.Engine {
	router := gin.New()
	admin := router.Group("/admin", AdminAuth(testSecret))
	admin.POST("/freeze", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/freeze", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAuth_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, RoleAdmin, time.Hour)
	w := doRequest(adminRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuth_MissingHeader(t *testing.T) {
	w := doRequest(adminRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_MalformedHeader(t *testing.T) {
	for _, header := range []string{"Bearer", "Basic abc123", "Bearer "} {
		w := doRequest(adminRouter(), header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header: %q", header)
	}
}

func TestAdminAuth_WrongSecret(t *testing.T) {
	token := signToken(t, "some-other-secret", RoleAdmin, time.Hour)
	w := doRequest(adminRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_ExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, RoleAdmin, -time.Minute)
	w := doRequest(adminRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_NonAdminRole(t *testing.T) {
	token := signToken(t, testSecret, "user", time.Hour)
	w := doRequest(adminRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
