package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/storage"
)

// FileHandler streams stored images at the URLs PreviewURL derives.
type FileHandler struct {
	d Deps
}

func NewFileHandler(d Deps) *FileHandler { return &FileHandler{d: d} }

func (h *FileHandler) Register(r *gin.Engine) {
	r.GET("/storage/buckets/:bucket/files/:id/preview", h.Preview)
}

// Preview serves the original object; size and quality parameters are
// accepted but not applied.
func (h *FileHandler) Preview(c *gin.Context) {
	if c.Param("bucket") != storage.BucketOrDefault(h.d.Cfg.Backend.BucketID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found."})
		return
	}
	rc, f, err := h.d.Content.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, msg := errorView(err)
		if errors.Is(err, apperr.ErrNotFound) {
			msg = "File not found."
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, map[string]string{
		"Cache-Control":          "public, max-age=86400",
		"X-Content-Type-Options": "nosniff",
	})
}
