package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/auth"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/content"
	"github.com/gogotex/gogoblog/internal/document/repository"
	"github.com/gogotex/gogoblog/internal/identity"
	"github.com/gogotex/gogoblog/internal/postform"
	"github.com/gogotex/gogoblog/internal/sessions"
	"github.com/gogotex/gogoblog/internal/storage"
	"github.com/gogotex/gogoblog/internal/tokens"
	"github.com/gogotex/gogoblog/internal/users"
	"github.com/gogotex/gogoblog/pkg/middleware"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	r *gin.Engine
	d Deps
}

func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{Endpoint: "http://blog.test/v1", ProjectID: "proj", DatabaseID: "db", CollectionID: "posts", BucketID: "images"},
		Session: config.SessionConfig{TTL: time.Hour, CookieName: "blog_session"},
		JWT:     config.JWTConfig{Secret: "test-secret", AccessTokenTTL: 15 * time.Minute},
	}
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	idp := identity.New(users.NewMemoryRepository(), sessions.NewService(sessions.NewMemoryRepository()), cfg.Session.TTL)
	locator := storage.PreviewLocator{Endpoint: cfg.Backend.Endpoint, Project: cfg.Backend.ProjectID, Bucket: storage.BucketOrDefault(cfg.Backend.BucketID)}
	d := Deps{
		Cfg:       cfg,
		Auth:      auth.NewService(idp),
		Content:   content.NewService(repository.NewMemoryRepo(), storage.NewMemoryStorage(locator), 1<<10),
		Guard:     postform.NewMemoryGuard(),
		Blacklist: sessions.NewBlacklist(nil),
	}
	r := gin.New()
	r.Use(middleware.SessionLoader(middleware.SessionOptions{
		CookieName: cfg.Session.CookieName,
		Resolver:   d.Auth,
		ParseToken: func(raw string) (*tokens.Claims, error) { return tokens.Parse(cfg, raw) },
		Blacklist:  d.Blacklist,
	}))
	Register(r, d)
	return &testEnv{r: r, d: d}
}

// do sends a request; auth may be a session cookie, a bearer token or nil.
func (e *testEnv) do(method, path string, body io.Reader, contentType string, auth any) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	switch a := auth.(type) {
	case *http.Cookie:
		req.AddCookie(a)
	case string:
		req.Header.Set("Authorization", "Bearer "+a)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) json(method, path string, v any, auth any) *httptest.ResponseRecorder {
	var body io.Reader
	if v != nil {
		b, _ := json.Marshal(v)
		body = bytes.NewReader(b)
	}
	return e.do(method, path, body, "application/json", auth)
}

func (e *testEnv) form(path string, vals url.Values, auth any) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, strings.NewReader(vals.Encode()), "application/x-www-form-urlencoded", auth)
}

type signupResult struct {
	cookie *http.Cookie
	token  string
	userID string
}

func (e *testEnv) signup(t *testing.T, email, name string) signupResult {
	t.Helper()
	w := e.json(http.MethodPost, "/api/v1/auth/signup", SignupRequest{Email: email, Password: "password1", Name: name}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		User        struct{ ID string } `json:"user"`
		AccessToken string              `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return signupResult{cookie: sessionCookie(t, w), token: resp.AccessToken, userID: resp.User.ID}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "blog_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
