package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/utils"
)

const secret = "mw-secret"

func whoami(c echo.Context) error {
	id, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func serve(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	rec := serve(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("other-secret", 5, "FARMER", 5)
	require.NoError(t, err)
	rec = serve(e, other.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := utils.NewAccessToken(secret, 5, "FARMER", 5)
	require.NoError(t, err)
	rec = serve(e, tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":5,"ok":true,"role":"FARMER"}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, OptionalJWT(secret))

	rec := serve(e, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())

	rec = serve(e, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret), RequireRole("SUPPLIER", "ADMIN"))

	farmer, _ := utils.NewAccessToken(secret, 1, "FARMER", 5)
	supplier, _ := utils.NewAccessToken(secret, 2, "SUPPLIER", 5)

	assert.Equal(t, http.StatusForbidden, serve(e, farmer.Token).Code)
	assert.Equal(t, http.StatusOK, serve(e, supplier.Token).Code)
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestID(), RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "abc-123", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusBadGateway, entries[1].ContextMap()["status"])
}

func TestTokenBucketWithoutRedisPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, zap.NewNop()))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/supply_chain/listings/7", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/supply_chain/listings/:id")
	c.Set(CtxUserID, uint64(42))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.9:user:42:route:GET /supply_chain/listings/:id", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.9", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:42:route:GET /supply_chain/listings/:id", buildRateKey(cfg, c))
	cfg.KeyStrategy = "bogus"
	assert.Equal(t, "rl:ip:10.0.0.9:user:42:route:GET /supply_chain/listings/:id", buildRateKey(cfg, c))
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
	e := echo.New()
	rc := NewResponseCache(config.CacheConfig{Prefix: "c"}, nil)
	key := func(target string, gen int64) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/marketplace/listings")
		return rc.entryKey(CacheProductListings, gen, c)
	}
	assert.Equal(t, key("/marketplace/listings?a=1&b=2", 0), key("/marketplace/listings?b=2&a=1", 0))
	assert.NotEqual(t, key("/marketplace/listings?a=1", 0), key("/marketplace/listings?a=2", 0))
	assert.NotEqual(t, key("/marketplace/listings?a=1", 0), key("/marketplace/listings?a=1", 1))
	assert.Contains(t, key("/marketplace/listings", 3), "c:product_listings:v3:")
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	e := echo.New()
	calls := 0
	e.GET("/l", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"data": []int{}})
	}, rc.Browse(CacheSupplyListings))
	e.POST("/l", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, rc.Invalidate(CacheSupplyListings))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/l", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/l", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBodyRecorderOverflow(t *testing.T) {
	out := httptest.NewRecorder()
	r := &bodyRecorder{ResponseWriter: out, status: http.StatusOK, limit: 8}
	_, _ = r.Write([]byte("1234"))
	assert.False(t, r.overflow)
	assert.Equal(t, "1234", r.buf.String())
	_, _ = r.Write([]byte("56789"))
	assert.True(t, r.overflow)
	assert.Zero(t, r.buf.Len())
	assert.Equal(t, "123456789", out.Body.String())
}

func TestReplaySkipsRequestHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "fresh")
	hit := cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}, "X-Request-Id": {"stale"}},
		Body:   []byte(`{"data":[]}`),
	}
	require.NoError(t, replay(c, hit))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"fresh"}, rec.Header().Values(echo.HeaderXRequestID))
	assert.Equal(t, `{"data":[]}`, rec.Body.String())
}

func TestRetrySeconds(t *testing.T) {
	assert.Equal(t, 0, retrySeconds(0))
	assert.Equal(t, 1, retrySeconds(200*time.Millisecond))
	assert.Equal(t, 2, retrySeconds(1001*time.Millisecond))
}
