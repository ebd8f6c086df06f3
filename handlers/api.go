package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/content"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/pkg/middleware"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// postView adds the derived preview URL to a post.
type postView struct {
	*models.Post
	FeaturedImageURL string `json:"featuredImageUrl,omitempty"`
}

// APIHandler serves the JSON API under /api/v1.
type APIHandler struct {
	d Deps
}

func NewAPIHandler(d Deps) *APIHandler { return &APIHandler{d: d} }

func (h *APIHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.GET("/me", middleware.RequireUser(), h.Me)

	rg.GET("/posts", h.ListPosts)
	rg.POST("/posts", middleware.RequireUser(), h.CreatePost)
	rg.GET("/posts/:slug", h.GetPost)
	rg.PUT("/posts/:slug", middleware.RequireUser(), h.UpdatePost)
	rg.DELETE("/posts/:slug", middleware.RequireUser(), h.DeletePost)
	rg.GET("/users/:id/posts", h.ListPostsByAuthor)

	rg.POST("/files", middleware.RequireUser(), h.UploadFile)
	rg.DELETE("/files/:id", middleware.RequireUser(), h.DeleteFile)
}

func abortWithError(c *gin.Context, err error) {
	status, msg := errorView(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *APIHandler) view(p *models.Post) postView {
	return postView{Post: p, FeaturedImageURL: h.d.Content.PreviewURL(p.FeaturedImage, 0, 0)}
}

func (h *APIHandler) views(posts []*models.Post) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, h.view(p))
	}
	return out
}

func (h *APIHandler) sessionResponse(c *gin.Context, status int, u *models.User, s *models.Session) {
	h.d.setSessionCookie(c, s)
	resp := gin.H{"user": u}
	if tok, ttl := h.d.accessToken(u, s); tok != "" {
		resp["accessToken"] = tok
		resp["expiresIn"] = int(ttl.Seconds())
	}
	c.JSON(status, resp)
}

// Signup creates an account and logs it in.
func (h *APIHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, u, err := h.d.Auth.CreateAccount(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.sessionResponse(c, http.StatusCreated, u, sess)
}

func (h *APIHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, u, err := h.d.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.sessionResponse(c, http.StatusOK, u, sess)
}

// Logout ends every session of the caller. Calling it without a session succeeds.
func (h *APIHandler) Logout(c *gin.Context) {
	h.d.logout(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *APIHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": h.d.currentUser(c)})
}

func (h *APIHandler) ListPosts(c *gin.Context) {
	posts := h.d.Content.ListPosts(c.Request.Context(), content.ListFilter{Search: c.Query("search")})
	c.JSON(http.StatusOK, gin.H{"posts": h.views(posts)})
}

func (h *APIHandler) ListPostsByAuthor(c *gin.Context) {
	posts := h.d.Content.ListPostsByAuthor(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"posts": h.views(posts)})
}

func (h *APIHandler) GetPost(c *gin.Context) {
	p, err := h.d.Content.GetPost(c.Request.Context(), c.Param("slug"))
	if err == nil && p.Status != models.StatusActive {
		if u := h.d.currentUser(c); u == nil || u.ID != p.Author {
			err = apperr.ErrNotFound
		}
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": h.view(p)})
}

func (h *APIHandler) CreatePost(c *gin.Context) {
	var in content.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.d.savePost(c, h.d.currentUser(c), "", in, "")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": h.view(p)})
}

func (h *APIHandler) UpdatePost(c *gin.Context) {
	var in content.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.d.savePost(c, h.d.currentUser(c), c.Param("slug"), in, "")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": h.view(p)})
}

func (h *APIHandler) DeletePost(c *gin.Context) {
	if err := h.d.Content.DeletePost(c.Request.Context(), h.d.currentUser(c), c.Param("slug")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// UploadFile stores the multipart field "file".
func (h *APIHandler) UploadFile(c *gin.Context) {
	f, err := h.d.uploadFormFile(c, "file")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if f == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file": f, "previewUrl": h.d.Content.PreviewURL(f.ID, 0, 0)})
}

// DeleteFile removes a file the caller uploaded and no post references.
func (h *APIHandler) DeleteFile(c *gin.Context) {
	err := h.d.Content.RemoveFile(c.Request.Context(), h.d.currentUser(c), c.Param("id"))
	if errors.Is(err, apperr.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "File not found."})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
