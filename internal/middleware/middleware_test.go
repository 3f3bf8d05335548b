package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/food-pantry/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test:cache",
		MaxBodyBytes: 1 << 10,
	}
}

func TestRedisCacheMissThenHit(t *testing.T) {
	mr, rdb := newRedis(t)
	calls := 0
	e := echo.New()
	e.GET("/items/:name", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"name": c.Param("name"), "calls": calls})
	}, NewRedisCache(cacheConfig(), rdb))

	first := serve(e, http.MethodGet, "/items/RICE")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/items/RICE")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/items/OIL")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	mr.FlushAll()
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/items/RICE").Header().Get("X-Cache"))
}

func TestRedisCacheDropsResponseOverlappingInvalidation(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()
	commit := true
	e := echo.New()
	e.GET("/items", func(c echo.Context) error {
		if commit {
			// a mutation commits and invalidates while the rows are rendered
			_, err := mr.Incr(cfg.GenerationKey(), 1)
			require.NoError(t, err)
			commit = false
		}
		return c.JSON(http.StatusOK, []string{"RICE"})
	}, NewRedisCache(cfg, rdb))

	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/items").Header().Get("X-Cache"))
	assert.Equal(t, []string{cfg.GenerationKey()}, mr.Keys())

	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/items").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/items").Header().Get("X-Cache"))
}

func TestRedisCacheSkipsErrorsAndLargeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	mw := NewRedisCache(cacheConfig(), rdb)
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Item not found."})
	}, mw)
	e.GET("/big", func(c echo.Context) error {
		return c.String(http.StatusOK, strings.Repeat("x", 4<<10))
	}, mw)

	serve(e, http.MethodGet, "/missing")
	serve(e, http.MethodGet, "/big")
	assert.Empty(t, mr.Keys())
}

func TestRedisCachePassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/items", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, NewRedisCache(cacheConfig(), nil))
	rec := serve(e, http.MethodGet, "/items")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestEntryEncoding(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	bs, err := encodeEntry(http.StatusOK, h, []byte(`[]`))
	require.NoError(t, err)

	status, header, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, echo.MIMEApplicationJSON, header.Get(echo.HeaderContentType))
	assert.Equal(t, `[]`, string(body))

	_, _, _, ok = decodeEntry([]byte{0, 0, 0})
	assert.False(t, ok)
}

func rateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
}

func TestTokenBucketRejectsAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.POST("/checkout", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(rateConfig(), rdb, zap.NewNop()))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/checkout").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/checkout").Code)

	rec := serve(e, http.MethodPost, "/checkout")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	e := echo.New()
	e.POST("/checkout", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(rateConfig(), rdb, zap.NewNop()))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/checkout").Code)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/items/RICE", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/items/:name")

	cfg := rateConfig()
	assert.Equal(t, "test:rl:ip:10.0.0.7:route:POST /items/:name", RateKey(cfg, c))
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "test:rl:ip:10.0.0.7", RateKey(cfg, c))
	cfg.KeyStrategy = "route"
	assert.Equal(t, "test:rl:route:POST /items/:name", RateKey(cfg, c))
}

func TestRequestLoggerLogsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	serve(e, http.MethodGet, "/ok")
	serve(e, http.MethodGet, "/boom")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["route"])
}
