package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/farmhub/internal/config"
)

// Cache namespaces, one per public browse endpoint.
const (
	CacheSupplyListings  = "supply_listings"
	CacheProductListings = "product_listings"
)

// skipReplay lists headers that belong to the original exchange and are
// not restored on a cache hit.
var skipReplay = map[string]bool{
	"Content-Length":        true,
	"X-Cache":               true,
	"X-Request-Id":          true,
	"Set-Cookie":            true,
	"X-Ratelimit-Limit":     true,
	"X-Ratelimit-Remaining": true,
}

// cachedResponse is the value stored per cache entry.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// ResponseCache stores 200 responses of browse endpoints in Redis.  Every
// namespace carries a generation counter that is part of the entry key;
// Invalidate bumps it, so entries written before a listing change are
// never served again and simply expire.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache that passes every request through
// when caching is disabled or rdb is nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc.cfg.Enabled && rc.rdb != nil }

func (rc *ResponseCache) genKey(ns string) string { return rc.cfg.Prefix + ":" + ns + ":gen" }

// entryKey hashes the route template and the encoded query.  Query
// encoding sorts by name, so ?a=1&b=2 and ?b=2&a=1 share an entry.
func (rc *ResponseCache) entryKey(ns string, gen int64, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + c.Path() + "?" + r.URL.Query().Encode()))
	return fmt.Sprintf("%s:%s:v%d:%x", rc.cfg.Prefix, ns, gen, sum)
}

func (rc *ResponseCache) generation(ctx context.Context, ns string) int64 {
	gen, err := rc.rdb.Get(ctx, rc.genKey(ns)).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// Browse serves cached responses for namespace ns and records misses.
func (rc *ResponseCache) Browse(ns string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rc.enabled() {
			return next
		}
		return func(c echo.Context) error {
			if !rc.cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := rc.entryKey(ns, rc.generation(ctx, ns), c)

			if raw, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					return replay(c, hit)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			entry := cachedResponse{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.buf.Bytes()}
			if raw, err := json.Marshal(entry); err == nil {
				// the request context may already be cancelled by now
				_ = rc.rdb.Set(context.Background(), key, raw, rc.cfg.TTL).Err()
			}
			return nil
		}
	}
}

// Invalidate bumps the generation of every namespace in nss after the
// wrapped handler answers with a 2xx status.
func (rc *ResponseCache) Invalidate(nss ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rc.enabled() {
			return next
		}
		return func(c echo.Context) error {
			err := next(c)
			if st := c.Response().Status; err == nil && st >= 200 && st < 300 {
				for _, ns := range nss {
					_ = rc.rdb.Incr(context.Background(), rc.genKey(ns)).Err()
				}
			}
			return err
		}
	}
}

func replay(c echo.Context, hit cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range hit.Header {
		if skipReplay[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(hit.Status)
	_, err := c.Response().Write(hit.Body)
	return err
}

// bodyRecorder forwards the response and keeps a copy of the body up to
// limit bytes.  A larger body sets overflow and is not cached.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && int64(r.buf.Len()+len(b)) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
