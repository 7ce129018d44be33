package middleware

import (
	"bilan_backend/internal/config"
	"bilan_backend/internal/model"
	"bilan_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789-0123456789"

func testRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	router := gin.New()
	group := router.Group("/", AuthMiddleware(cfg))
	if len(roles) > 0 {
		group.Use(RoleMiddleware(roles...))
	}
	group.GET("/ping", func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	return router
}

func tokenFor(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	user := &model.User{Role: role}
	user.ID = userID
	token, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func get(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	router := testRouter()

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "not-a-token").Code)
	assert.Equal(t, http.StatusOK, get(router, tokenFor(t, 1, model.Beneficiary)).Code)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	router := testRouter()

	user := &model.User{Role: model.Beneficiary}
	user.ID = 1
	token, err := util.GenerateJWT(user, testSecret, -time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(router, token).Code)
}

func TestRoleMiddleware(t *testing.T) {
	router := testRouter(model.Consultant)

	assert.Equal(t, http.StatusForbidden, get(router, tokenFor(t, 1, model.Beneficiary)).Code)
	assert.Equal(t, http.StatusOK, get(router, tokenFor(t, 2, model.Consultant)).Code)
	// Admins pass every role gate.
	assert.Equal(t, http.StatusOK, get(router, tokenFor(t, 3, model.Admin)).Code)
}
