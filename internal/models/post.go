package models

import "time"

// Post visibility values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Post is a blog post document. Slug doubles as the primary key; Author is
// written once at creation.
type Post struct {
	Slug          string    `bson:"_id" json:"slug"`
	Title         string    `bson:"title" json:"title"`
	Content       string    `bson:"content" json:"content"`
	FeaturedImage string    `bson:"featuredImage,omitempty" json:"featuredImage,omitempty"`
	Status        string    `bson:"status" json:"status"`
	Author        string    `bson:"author" json:"author"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PostFields are the mutable fields of a post. Author and Slug are not here
// on purpose: no update path can reach them.
type PostFields struct {
	Title         string
	Content       string
	FeaturedImage string
	Status        string
}

// ValidStatus reports whether s is one of the known post statuses.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}

// File describes a stored object. Owner is the id of the uploading user.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Owner       string `json:"owner,omitempty"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
