package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"servicehub/config"
	"servicehub/handlers"
	"servicehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"admin": c.GetString("adminID")}) }
	hb := &handlers.HandlerBundle{
		TransitionBookingHandler:      ok,
		ResetBookingHandler:           ok,
		ReconcileConversationHandler:  ok,
		ClearDeletedFlagHandler:       ok,
		RecomputeProviderStatsHandler: ok,
	}
	r := gin.New()
	RegisterRoutes(r, hb)
	return r
}

func call(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	config.AppConfig.JWTSecret = "route-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, call(r, "/admin/bookings/b1/reset", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "/admin/bookings/b1/reset", "garbage").Code)

	clientToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"role": "CLIENT",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("route-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(r, "/admin/bookings/b1/reset", clientToken).Code)

	adminToken, err := utils.GenerateAdminToken("ops", time.Hour)
	require.NoError(t, err)
	w := call(r, "/admin/providers/p1/stats", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":"ops"`)
}

func TestHealthRoute(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
