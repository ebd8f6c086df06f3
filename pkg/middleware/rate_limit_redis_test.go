package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// pinWindowClock fixes the limiter's clock at t until the test ends.
func pinWindowClock(t *testing.T, at *time.Time) {
	t.Helper()
	prev := windowClock
	windowClock = func() time.Time { return *at }
	t.Cleanup(func() { windowClock = prev })
}

func serveStatus(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestRedisRateLimitMiddleware_KeysByUser(t *testing.T) {
	m := mr.RunT(t)
	now := time.Unix(1_700_000_040, 0)
	pinWindowClock(t, &now)

	limiter := RedisRateLimitMiddleware(redis.NewClient(&redis.Options{Addr: m.Addr()}), 0, 1, time.Minute)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r := gin.New()
	r.GET("/u1", withUser("user-1"), limiter, ok)
	r.GET("/u2", withUser("user-2"), limiter, ok)
	r.GET("/anon", limiter, ok)

	// every request comes from the same httptest address
	require.Equal(t, http.StatusOK, serveStatus(r, "/u1"))
	require.Equal(t, http.StatusTooManyRequests, serveStatus(r, "/u1"))
	require.Equal(t, http.StatusOK, serveStatus(r, "/u2"))
	require.Equal(t, http.StatusOK, serveStatus(r, "/anon"))
	require.Equal(t, http.StatusTooManyRequests, serveStatus(r, "/anon"))

	bucket := now.Unix() / 60
	u1 := fmt.Sprintf("rl:user:user-1:%d", bucket)
	u2 := fmt.Sprintf("rl:user:user-2:%d", bucket)
	anon := fmt.Sprintf("rl:ip:192.0.2.1:%d", bucket)
	require.ElementsMatch(t, []string{u1, u2, anon}, m.Keys())

	for key, want := range map[string]string{u1: "2", u2: "1", anon: "2"} {
		got, err := m.Get(key)
		require.NoError(t, err)
		require.Equal(t, want, got, key)
	}
	require.Equal(t, 61*time.Second, m.TTL(u1))
}

func TestRedisRateLimitMiddleware_NextWindow(t *testing.T) {
	m := mr.RunT(t)
	now := time.Unix(1_700_000_040, 0)
	pinWindowClock(t, &now)

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(redis.NewClient(&redis.Options{Addr: m.Addr()}), 0, 1, time.Minute))
	r.GET("/r", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serveStatus(r, "/r"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))

	m.FastForward(40 * time.Second)
	now = now.Add(time.Minute)
	require.Equal(t, http.StatusOK, serveStatus(r, "/r"))
	require.Len(t, m.Keys(), 2)

	// the old window's key expires on its own
	m.FastForward(21 * time.Second)
	require.Equal(t, []string{fmt.Sprintf("rl:ip:192.0.2.1:%d", now.Unix()/60)}, m.Keys())
}

func TestRedisRateLimitMiddleware_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	require.Equal(t, http.StatusInternalServerError, serveStatus(r, "/r"))
}
