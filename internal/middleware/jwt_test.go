package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub/internal/utils"
)

const testSecret = "test-jwt-secret"

func protectedApp(roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1")
	g.Use(JWTAuth(testSecret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": UserID(c), "role": Role(c)})
	})
	return e
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	e := protectedApp()
	access, err := utils.NewAccessToken(testSecret, 42, "USER", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
	assert.Contains(t, rec.Body.String(), `"role":"USER"`)
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	e := protectedApp()
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	e := protectedApp()
	access, err := utils.NewAccessToken("other-secret", 42, "USER", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleBlocksWrongRole(t *testing.T) {
	e := protectedApp("ADMIN")
	access, err := utils.NewAccessToken(testSecret, 42, "USER", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	e := protectedApp("ADMIN")
	access, err := utils.NewAccessToken(testSecret, 7, "ADMIN", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
