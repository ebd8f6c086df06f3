package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/authstate"
	"github.com/gogotex/gogoblog/internal/sessions"
	"github.com/gogotex/gogoblog/internal/tokens"
	"github.com/gogotex/gogoblog/pkg/logger"
	"github.com/gogotex/gogoblog/pkg/metrics"
)

const (
	stateKey      = "authState"
	sessionIDKey  = "sessionID"
	resolveErrKey = "sessionError"
	accessKey     = "accessToken"
	claimsKey     = "claims"
)

// SessionOptions configures SessionLoader. ParseToken and Blacklist are
// optional; without ParseToken bearer tokens are ignored.
type SessionOptions struct {
	CookieName string
	Resolver   authstate.Resolver
	ParseToken func(raw string) (*tokens.Claims, error)
	Blacklist  *sessions.Blacklist
}

// SessionLoader resolves the caller's session once per request and stores
// the resulting authstate.State on the context. The credential is the
// session cookie, or else the sid claim of a bearer access token.
func SessionLoader(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sid := ""
		if opts.CookieName != "" {
			if v, err := c.Cookie(opts.CookieName); err == nil {
				sid = v
			}
		}
		if sid == "" && opts.ParseToken != nil {
			if raw := bearerToken(c.GetHeader("Authorization")); raw != "" {
				sid = sessionFromToken(c, opts, raw)
			}
		}

		if sid == "" {
			metrics.SessionResolutions.WithLabelValues("anonymous").Inc()
			c.Set(stateKey, authstate.State{})
			c.Next()
			return
		}

		st, err := authstate.Resolve(ctx, opts.Resolver, sid)
		switch {
		case err != nil:
			logger.Warnf("session resolve: %v", err)
			metrics.SessionResolutions.WithLabelValues("error").Inc()
			c.Set(resolveErrKey, err)
		case st.Status:
			metrics.SessionResolutions.WithLabelValues("user").Inc()
		default:
			metrics.SessionResolutions.WithLabelValues("anonymous").Inc()
		}
		c.Set(sessionIDKey, sid)
		c.Set(stateKey, st)
		c.Next()
	}
}

func sessionFromToken(c *gin.Context, opts SessionOptions, raw string) string {
	if opts.Blacklist != nil {
		revoked, err := opts.Blacklist.Contains(c.Request.Context(), raw)
		if err != nil {
			logger.Warnf("blacklist check: %v", err)
		}
		if revoked {
			return ""
		}
	}
	claims, err := opts.ParseToken(raw)
	if err != nil {
		logger.Debugf("bearer token rejected: %v", err)
		return ""
	}
	c.Set(accessKey, raw)
	c.Set(claimsKey, claims)
	return claims.SessionID
}

func bearerToken(h string) string {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// StateFromContext returns the session state stored by SessionLoader, or
// the logged-out state.
func StateFromContext(c *gin.Context) authstate.State {
	if v, ok := c.Get(stateKey); ok {
		if st, ok := v.(authstate.State); ok {
			return st
		}
	}
	return authstate.State{}
}

// SessionIDFromContext returns the credential the request presented.
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// ResolveErrorFromContext returns the session resolution error, if any.
func ResolveErrorFromContext(c *gin.Context) error {
	if v, ok := c.Get(resolveErrKey); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// AccessTokenFromContext returns the verified bearer token and its claims.
func AccessTokenFromContext(c *gin.Context) (string, *tokens.Claims) {
	raw := c.GetString(accessKey)
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(*tokens.Claims); ok {
			return raw, cl
		}
	}
	return raw, nil
}

// RequireUser aborts API requests that carry no resolved session.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !StateFromContext(c).Status {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(apperr.ErrNotAuthenticated)})
			return
		}
		c.Next()
	}
}
