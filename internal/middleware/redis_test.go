package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seller-rotation/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "rotation:cache",
	}
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRedisCacheHitAfterMiss(t *testing.T) {
	_, rdb := newRedis(t)
	var calls atomic.Int32

	e := echo.New()
	e.GET("/api/state", func(c echo.Context) error {
		n := calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"computed": n})
	}, NewRedisCache(testCacheConfig(), rdb))

	first := serve(e, http.MethodGet, "/api/state")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/api/state")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, int32(1), calls.Load())

	// a different query is a different entry
	other := serve(e, http.MethodGet, "/api/state?page=2")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisCacheMissAfterInvalidation(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := testCacheConfig()
	var calls atomic.Int32

	e := echo.New()
	e.GET("/api/state", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"computed": calls.Add(1)})
	}, NewRedisCache(cfg, rdb))

	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/api/state").Header().Get("X-Cache"))
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/api/state").Header().Get("X-Cache"))

	NewCacheInvalidator(cfg, rdb)(context.Background())
	gen, err := mr.Get(generationKey(cfg))
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	after := serve(e, http.MethodGet, "/api/state")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"computed":2}`, after.Body.String())
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/api/state").Header().Get("X-Cache"))
}

func TestRedisCacheSkipsErrorResponses(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls atomic.Int32

	e := echo.New()
	e.GET("/api/stats", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage"})
	}, NewRedisCache(testCacheConfig(), rdb))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/api/stats")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, mr.Keys())
}

func TestRedisCacheDropsResponseRacingAMutation(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := testCacheConfig()
	bump := NewCacheInvalidator(cfg, rdb)
	var calls atomic.Int32

	e := echo.New()
	e.GET("/api/state", func(c echo.Context) error {
		if calls.Add(1) == 1 {
			// a write commits while this read is being computed
			bump(c.Request().Context())
		}
		return c.JSON(http.StatusOK, echo.Map{"computed": calls.Load()})
	}, NewRedisCache(cfg, rdb))

	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/api/state").Header().Get("X-Cache"))
	assert.Equal(t, []string{generationKey(cfg)}, mr.Keys())

	second := serve(e, http.MethodGet, "/api/state")
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"computed":2}`, second.Body.String())
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/api/state").Header().Get("X-Cache"))
}

func TestRedisCacheIgnoresUncachedMethods(t *testing.T) {
	mr, rdb := newRedis(t)

	e := echo.New()
	e.POST("/api/state", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(testCacheConfig(), rdb))

	rec := serve(e, http.MethodPost, "/api/state")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, mr.Keys())
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rotation:rl",
	}

	e := echo.New()
	e.POST("/api/customers/take", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, NewTokenBucket(cfg, rdb))

	for i, remaining := range []string{"1", "0"} {
		rec := serve(e, http.MethodPost, "/api/customers/take")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, remaining, rec.Header().Get("X-RateLimit-Remaining"))
	}

	blocked := serve(e, http.MethodPost, "/api/customers/take")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	retry, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 3600)
	assert.Contains(t, blocked.Body.String(), `"reason":"rate_limited"`)

	// buckets are per client
	req := httptest.NewRequest(http.MethodPost, "/api/customers/take", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.8")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rotation:rl"}

	e := echo.New()
	e.POST("/api/sales", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, NewTokenBucket(cfg, rdb))

	mr.Close()
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/api/sales").Code)
	}
}
