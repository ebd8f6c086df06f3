package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/internal/sessions"
	"github.com/gogotex/gogoblog/internal/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeResolver knows one session
type fakeResolver struct {
	calls int
	err   error
}

func (f *fakeResolver) CurrentUser(_ context.Context, sid string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if sid == "good-session" {
		return &models.User{ID: "user1", Email: "test@example.com"}, nil
	}
	return nil, nil
}

func newSessionRouter(opts SessionOptions) *gin.Engine {
	r := gin.New()
	r.Use(SessionLoader(opts))
	r.GET("/state", func(c *gin.Context) {
		st := StateFromContext(c)
		errMsg := ""
		if err := ResolveErrorFromContext(c); err != nil {
			errMsg = err.Error()
		}
		c.JSON(http.StatusOK, gin.H{"status": st.Status, "user": st.UserID(), "err": errMsg})
	})
	r.GET("/private", RequireUser(), func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func TestSessionLoader_Cookie(t *testing.T) {
	res := &fakeResolver{}
	r := newSessionRouter(SessionOptions{CookieName: "blog_session", Resolver: res})

	req := httptest.NewRequest("GET", "/state", nil)
	req.AddCookie(&http.Cookie{Name: "blog_session", Value: "good-session"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":true,"user":"user1","err":""}`, w.Body.String())
	require.Equal(t, 1, res.calls)

	req = httptest.NewRequest("GET", "/state", nil)
	req.AddCookie(&http.Cookie{Name: "blog_session", Value: "stale"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.JSONEq(t, `{"status":false,"user":"","err":""}`, w.Body.String())
}

func TestSessionLoader_AnonymousSkipsResolver(t *testing.T) {
	res := &fakeResolver{}
	r := newSessionRouter(SessionOptions{CookieName: "blog_session", Resolver: res})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/state", nil))
	require.JSONEq(t, `{"status":false,"user":"","err":""}`, w.Body.String())
	require.Equal(t, 0, res.calls)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/private", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLoader_ResolverErrorRendersLoggedOut(t *testing.T) {
	res := &fakeResolver{err: errors.New("backend unavailable")}
	r := newSessionRouter(SessionOptions{CookieName: "blog_session", Resolver: res})
	req := httptest.NewRequest("GET", "/state", nil)
	req.AddCookie(&http.Cookie{Name: "blog_session", Value: "good-session"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":false,"user":"","err":"backend unavailable"}`, w.Body.String())
	require.Equal(t, 1, res.calls)
}

func TestSessionLoader_BearerAndBlacklist(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-test-secret-32-bytes-xx"
	tok, err := tokens.GenerateAccessToken(cfg, &models.User{ID: "user1"}, "good-session", time.Minute)
	require.NoError(t, err)

	r := newSessionRouter(SessionOptions{
		Resolver:   &fakeResolver{},
		ParseToken: func(raw string) (*tokens.Claims, error) { return tokens.Parse(cfg, raw) },
		Blacklist:  bl,
	})

	call := func(auth string) int {
		req := httptest.NewRequest("GET", "/private", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, call("Bearer "+tok))
	require.Equal(t, http.StatusOK, call("bearer "+tok))
	require.Equal(t, http.StatusUnauthorized, call("Bearer not-a-token"))
	require.Equal(t, http.StatusUnauthorized, call("Basic abc"))

	require.NoError(t, bl.Add(context.Background(), tok, time.Minute))
	require.Equal(t, http.StatusUnauthorized, call("Bearer "+tok))
}

func TestAccessTokenFromContext(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-test-secret-32-bytes-xx"
	tok, err := tokens.GenerateAccessToken(cfg, &models.User{ID: "user1"}, "good-session", time.Minute)
	require.NoError(t, err)

	r := gin.New()
	r.Use(SessionLoader(SessionOptions{
		Resolver:   &fakeResolver{},
		ParseToken: func(raw string) (*tokens.Claims, error) { return tokens.Parse(cfg, raw) },
	}))
	var gotRaw, gotSID string
	r.GET("/t", func(c *gin.Context) {
		raw, cl := AccessTokenFromContext(c)
		gotRaw = raw
		if cl != nil {
			gotSID = cl.SessionID
		}
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest("GET", "/t", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, tok, gotRaw)
	require.Equal(t, "good-session", gotSID)
}
