package storage

import (
	"net/url"
	"strconv"
)

// PreviewOptions shape a file preview URL.
type PreviewOptions struct {
	Width   int
	Height  int
	Gravity string
	Quality int
}

// DefaultPreview is the size used for featured images.
var DefaultPreview = PreviewOptions{Width: 2000, Height: 1000, Gravity: "center", Quality: 100}

func (o PreviewOptions) withDefaults() PreviewOptions {
	if o.Width <= 0 {
		o.Width = DefaultPreview.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultPreview.Height
	}
	if o.Gravity == "" {
		o.Gravity = DefaultPreview.Gravity
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultPreview.Quality
	}
	return o
}

// PreviewLocator derives preview URLs for one bucket without any I/O.
type PreviewLocator struct {
	Endpoint string
	Project  string
	Bucket   string
}

// URL returns the preview URL for id, or "" when id is empty.
func (l PreviewLocator) URL(id string, o PreviewOptions) string {
	if id == "" {
		return ""
	}
	o = o.withDefaults()
	q := url.Values{}
	q.Set("width", strconv.Itoa(o.Width))
	q.Set("height", strconv.Itoa(o.Height))
	q.Set("gravity", o.Gravity)
	q.Set("quality", strconv.Itoa(o.Quality))
	if l.Project != "" {
		q.Set("project", l.Project)
	}
	return l.Endpoint + "/storage/buckets/" + url.PathEscape(l.Bucket) +
		"/files/" + url.PathEscape(id) + "/preview?" + q.Encode()
}
