package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/handler"
)

func newTestEcho() *echo.Echo {
	return New(Handlers{
		Auth:          &handler.AuthHandler{},
		Farming:       &handler.FarmingHandler{},
		Supply:        &handler.SupplyHandler{},
		Market:        &handler.MarketHandler{},
		Notifications: &handler.NotificationHandler{},
		Labor:         &handler.LaborHandler{},
	}, Options{
		JWTSecret: "test-secret",
		RateLimit: config.RateLimitConfig{Enabled: false},
		Cache:     config.CacheConfig{Enabled: false},
		Log:       zap.NewNop(),
	})
}

func TestRoutesRegistered(t *testing.T) {
	e := newTestEcho()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /users/register",
		"POST /users/logout",
		"PATCH /users/me",
		"GET /farming/harvests/export",
		"POST /farming/activities/:id/start",
		"POST /farming/materials/:id/adjust",
		"GET /farming/materials/low_stock",
		"GET /supply_chain/listings",
		"POST /supply_chain/orders/:id/confirm",
		"POST /supply_chain/orders/:id/complete",
		"GET /marketplace/listings/mine",
		"POST /marketplace/orders/:id/rate",
		"GET /notifications/notifications/unread_count",
		"PATCH /notifications/notifications/read_all",
		"PUT /labor/worker_profile",
		"POST /labor/requests/:id/assignments",
		"POST /labor/assignments/:id/complete",
		"GET /labor/exchanges",
		"POST /labor/exchanges/:household_id/settle",
	} {
		assert.True(t, have[want], "missing route %s", want)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestEcho()
	for _, target := range []string{
		"/farming/fields",
		"/users/me",
		"/labor/exchanges",
		"/notifications/notifications",
		"/supply_chain/orders",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	h := newTestEcho()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
