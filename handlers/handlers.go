// Package handlers renders the blog pages and serves the JSON API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/auth"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/content"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/internal/postform"
	"github.com/gogotex/gogoblog/internal/sessions"
	"github.com/gogotex/gogoblog/internal/tokens"
	"github.com/gogotex/gogoblog/pkg/logger"
	"github.com/gogotex/gogoblog/pkg/middleware"
)

// Deps are the services the handlers call. Guard and Blacklist may be nil.
type Deps struct {
	Cfg       *config.Config
	Auth      *auth.Service
	Content   *content.Service
	Guard     postform.Guard
	Blacklist *sessions.Blacklist
}

// Register mounts pages, API, file previews and API docs on r. The session
// loader must already be installed on r.
func Register(r *gin.Engine, d Deps) {
	NewPageHandler(d).Register(r)
	NewAPIHandler(d).Register(r.Group("/api/v1"))
	NewFileHandler(d).Register(r)
	RegisterSwagger(r)
}

// errorView maps an error to a status code and the text shown to the user.
func errorView(err error) (int, string) {
	if errors.Is(err, postform.ErrBusy) || errors.Is(err, postform.ErrCompleted) {
		return http.StatusConflict, err.Error()
	}
	return apperr.Status(err), apperr.Message(err)
}

func (d Deps) currentUser(c *gin.Context) *models.User {
	st := middleware.StateFromContext(c)
	if !st.Status {
		return nil
	}
	return st.UserData
}

func (d Deps) cookieName() string {
	if d.Cfg.Session.CookieName != "" {
		return d.Cfg.Session.CookieName
	}
	return "blog_session"
}

func (d Deps) setSessionCookie(c *gin.Context, s *models.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(d.cookieName(), s.ID, maxAge, "/", "", d.Cfg.Server.Environment == "production", true)
}

func (d Deps) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(d.cookieName(), "", -1, "/", "", d.Cfg.Server.Environment == "production", true)
}

// logout ends the caller's sessions and revokes the bearer token it used.
func (d Deps) logout(c *gin.Context) {
	ctx := c.Request.Context()
	if raw, claims := middleware.AccessTokenFromContext(c); claims != nil && d.Blacklist != nil {
		if err := d.Blacklist.Add(ctx, raw, claims.Remaining()); err != nil {
			logger.Warnf("logout: blacklist token: %v", err)
		}
	}
	_ = d.Auth.Logout(ctx, middleware.SessionIDFromContext(c))
	d.clearSessionCookie(c)
}

// accessToken mints an API token for the session, or "" without a JWT secret.
func (d Deps) accessToken(u *models.User, s *models.Session) (string, time.Duration) {
	if d.Cfg.JWT.Secret == "" {
		return "", 0
	}
	ttl := d.Cfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if rest := time.Until(s.ExpiresAt); rest < ttl {
		ttl = rest
	}
	tok, err := tokens.GenerateAccessToken(d.Cfg, u, s.ID, ttl)
	if err != nil {
		logger.Errorf("access token: %v", err)
		return "", 0
	}
	return tok, ttl
}

// uploadFormFile stores the multipart file in field, if one was sent.
func (d Deps) uploadFormFile(c *gin.Context, field string) (*models.File, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpload, err)
	}
	if fh.Size == 0 && fh.Filename == "" {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpload, err)
	}
	defer f.Close()
	ct, err := contentType(fh, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpload, err)
	}
	return d.Content.UploadFile(c.Request.Context(), d.currentUser(c), fh.Filename, ct, fh.Size, f)
}

// contentType trusts the part header unless it is missing or generic, in
// which case the first bytes are sniffed. f is rewound afterwards.
func contentType(fh *multipart.FileHeader, f multipart.File) (string, error) {
	ct := strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0])
	if ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// savePost runs the post form machine: an optional image upload followed by
// create (slug == "") or update. A new upload is removed again if the post
// write fails.
func (d Deps) savePost(c *gin.Context, u *models.User, slug string, in content.PostInput, imageField string) (*models.Post, error) {
	ctx := c.Request.Context()
	m := postform.New(d.Guard, postform.Key(u.ID, slug))
	var saved *models.Post
	validate := func() error {
		if strings.TrimSpace(in.Title) == "" {
			return fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
		}
		if in.Status != "" && !models.ValidStatus(in.Status) {
			return fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, in.Status)
		}
		return nil
	}
	err := m.Run(ctx, validate, func(ctx context.Context) error {
		var upload *models.File
		if imageField != "" {
			f, err := d.uploadFormFile(c, imageField)
			if err != nil {
				return err
			}
			if f != nil {
				upload = f
				in.FeaturedImage = f.ID
			}
		}
		var err error
		if slug == "" {
			saved, err = d.Content.CreatePost(ctx, u, in)
		} else {
			saved, err = d.Content.UpdatePost(ctx, u, slug, in)
		}
		if err != nil && upload != nil {
			d.Content.DeleteFile(ctx, upload.ID)
		}
		return err
	})
	return saved, err
}
