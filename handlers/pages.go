package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/content"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/pkg/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler serves the server-rendered blog.
type PageHandler struct {
	d     Deps
	check config.CheckResult
	tmpl  *template.Template
}

func NewPageHandler(d Deps) *PageHandler {
	h := &PageHandler{d: d, check: d.Cfg.Check()}
	funcs := template.FuncMap{
		"preview": func(id string, w, ht int) string { return d.Content.PreviewURL(id, w, ht) },
		"excerpt": func(s string) string { return content.Excerpt(s, 100) },
		"date":    func(t time.Time) string { return t.Format("Jan 2, 2006") },
		// content is sanitised on write; sanitising again covers rows
		// written before the policy existed
		"safe": func(s string) template.HTML { return template.HTML(content.Sanitize(s)) },
	}
	h.tmpl = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	return h
}

func (h *PageHandler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(h.tmpl)
	r.GET("/", h.Home)
	r.GET("/all-posts", h.AllPosts)
	r.GET("/post/:slug", h.Post)
	r.POST("/post/:slug/delete", h.DeletePost)
	r.GET("/add-post", h.AddPostForm)
	r.POST("/add-post", h.AddPost)
	r.GET("/edit-post/:slug", h.EditPostForm)
	r.POST("/edit-post/:slug", h.EditPost)
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)
	r.GET("/signup", h.SignupForm)
	r.POST("/signup", h.Signup)
	r.POST("/logout", h.Logout)
	r.GET("/config-check", h.ConfigCheck)
}

func (h *PageHandler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["State"] = middleware.StateFromContext(c)
	if !h.check.OK() {
		chk := h.check
		data["ConfigError"] = &chk
	}
	if err := middleware.ResolveErrorFromContext(c); err != nil {
		data["SessionError"] = apperr.Message(err)
	}
	c.HTML(status, name, data)
}

func (h *PageHandler) renderError(c *gin.Context, err error) {
	status, msg := errorView(err)
	h.render(c, status, "error", gin.H{"Title": http.StatusText(status), "Heading": http.StatusText(status), "Error": msg})
}

// requireUser redirects anonymous visitors to the login page.
func (h *PageHandler) requireUser(c *gin.Context) *models.User {
	u := h.d.currentUser(c)
	if u == nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return nil
	}
	return u
}

func (h *PageHandler) Home(c *gin.Context) {
	search := c.Query("search")
	posts := h.d.Content.ListPosts(c.Request.Context(), content.ListFilter{Search: search})
	empty := "No posts yet."
	if search != "" {
		empty = "No posts match your search."
	}
	h.render(c, http.StatusOK, "home", gin.H{
		"Heading":    "Latest posts",
		"Posts":      posts,
		"Search":     search,
		"ShowSearch": true,
		"Empty":      empty,
	})
}

func (h *PageHandler) AllPosts(c *gin.Context) {
	u := h.requireUser(c)
	if u == nil {
		return
	}
	posts := h.d.Content.ListPostsByAuthor(c.Request.Context(), u.ID)
	h.render(c, http.StatusOK, "home", gin.H{
		"Title":   "My posts",
		"Heading": "My posts",
		"Posts":   posts,
		"Empty":   "You have not published any posts.",
	})
}

func (h *PageHandler) Post(c *gin.Context) {
	p, err := h.d.Content.GetPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	u := h.d.currentUser(c)
	isAuthor := u != nil && u.ID == p.Author
	if p.Status != models.StatusActive && !isAuthor {
		h.renderError(c, apperr.ErrNotFound)
		return
	}
	h.render(c, http.StatusOK, "post", gin.H{"Title": p.Title, "Post": p, "IsAuthor": isAuthor})
}

func (h *PageHandler) DeletePost(c *gin.Context) {
	u := h.requireUser(c)
	if u == nil {
		return
	}
	if err := h.d.Content.DeletePost(c.Request.Context(), u, c.Param("slug")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) renderForm(c *gin.Context, status int, slug string, in content.PostInput, err error) {
	data := gin.H{"Input": in, "Editing": slug != ""}
	if slug == "" {
		data["Title"], data["Heading"], data["Action"] = "Add post", "Add post", "/add-post"
	} else {
		data["Title"], data["Heading"], data["Action"] = "Edit post", "Edit post", "/edit-post/"+slug
	}
	if err != nil {
		_, data["Error"] = errorView(err)
	}
	h.render(c, status, "form", data)
}

func (h *PageHandler) AddPostForm(c *gin.Context) {
	if h.requireUser(c) == nil {
		return
	}
	h.renderForm(c, http.StatusOK, "", content.PostInput{Status: models.StatusActive}, nil)
}

func (h *PageHandler) AddPost(c *gin.Context) {
	u := h.requireUser(c)
	if u == nil {
		return
	}
	var in content.PostInput
	_ = c.ShouldBind(&in)
	in.FeaturedImage = ""
	p, err := h.d.savePost(c, u, "", in, "image")
	if err != nil {
		status, _ := errorView(err)
		h.renderForm(c, status, "", in, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/post/"+p.Slug)
}

// editable loads the post and checks the visitor may edit it.
func (h *PageHandler) editable(c *gin.Context, u *models.User) (*models.Post, bool) {
	p, err := h.d.Content.GetPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.renderError(c, err)
		return nil, false
	}
	if p.Author != u.ID {
		h.renderError(c, apperr.ErrPermission)
		return nil, false
	}
	return p, true
}

func (h *PageHandler) EditPostForm(c *gin.Context) {
	u := h.requireUser(c)
	if u == nil {
		return
	}
	p, ok := h.editable(c, u)
	if !ok {
		return
	}
	in := content.PostInput{Title: p.Title, Content: p.Content, FeaturedImage: p.FeaturedImage, Status: p.Status}
	h.renderForm(c, http.StatusOK, p.Slug, in, nil)
}

func (h *PageHandler) EditPost(c *gin.Context) {
	u := h.requireUser(c)
	if u == nil {
		return
	}
	existing, ok := h.editable(c, u)
	if !ok {
		return
	}
	var in content.PostInput
	_ = c.ShouldBind(&in)
	in.FeaturedImage = ""
	p, err := h.d.savePost(c, u, existing.Slug, in, "image")
	if err != nil {
		status, _ := errorView(err)
		in.FeaturedImage = existing.FeaturedImage
		h.renderForm(c, status, existing.Slug, in, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/post/"+p.Slug)
}

type credentialsForm struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (h *PageHandler) LoginForm(c *gin.Context) {
	if h.d.currentUser(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	h.render(c, http.StatusOK, "login", gin.H{"Title": "Login"})
}

func (h *PageHandler) Login(c *gin.Context) {
	var f credentialsForm
	_ = c.ShouldBind(&f)
	sess, _, err := h.d.Auth.Login(c.Request.Context(), f.Email, f.Password)
	if err != nil {
		status, msg := errorView(err)
		if errors.Is(err, apperr.ErrAuthentication) {
			msg = "Invalid email or password."
		}
		h.render(c, status, "login", gin.H{"Title": "Login", "Email": f.Email, "Error": msg})
		return
	}
	h.d.setSessionCookie(c, sess)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) SignupForm(c *gin.Context) {
	if h.d.currentUser(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	h.render(c, http.StatusOK, "signup", gin.H{"Title": "Signup"})
}

func (h *PageHandler) Signup(c *gin.Context) {
	var f credentialsForm
	_ = c.ShouldBind(&f)
	sess, _, err := h.d.Auth.CreateAccount(c.Request.Context(), f.Email, f.Password, f.Name)
	if err != nil {
		status, msg := errorView(err)
		h.render(c, status, "signup", gin.H{"Title": "Signup", "Name": f.Name, "Email": f.Email, "Error": msg})
		return
	}
	h.d.setSessionCookie(c, sess)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) Logout(c *gin.Context) {
	h.d.logout(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) ConfigCheck(c *gin.Context) {
	h.render(c, http.StatusOK, "config", gin.H{
		"Title": "Configuration",
		"Check": h.check,
		"Guide": config.PermissionsGuide(),
	})
}
