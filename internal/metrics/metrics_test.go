package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/orders/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for _, p := range []string{"/orders/1", "/orders/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `farmhub_http_requests_total{method="GET",route="/orders/:id",status="204"} 2`)
	assert.NotContains(t, body, `route="/orders/1"`)
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	RecordOrderTransition("supply", "confirmed")
	RecordEvent("inline")
	RecordExchangeMinutes("work", 90)
	RecordJobRun("material_check", true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"farmhub_orders_transitions_total",
		"farmhub_events_notifications_total",
		"farmhub_labor_exchange_minutes_total",
		"farmhub_jobs_runs_total",
	} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
