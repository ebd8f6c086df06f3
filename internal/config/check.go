package config

import "strings"

// CheckResult is the outcome of a configuration check, rendered by the
// /config-check view and logged at startup.
type CheckResult struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
	Fixes   []string `json:"fixes,omitempty"`
}

// OK reports whether every deployment identifier is present.
func (r CheckResult) OK() bool { return r.Status == "success" }

// Check reports which deployment identifiers are missing.
func (c *Config) Check() CheckResult {
	var missing []string
	if c.Backend.ProjectID == "" {
		missing = append(missing, "Project ID")
	}
	if c.Backend.DatabaseID == "" {
		missing = append(missing, "Database ID")
	}
	if c.Backend.CollectionID == "" {
		missing = append(missing, "Collection ID")
	}
	if c.Backend.BucketID == "" {
		missing = append(missing, "Bucket ID")
	}
	if c.Backend.Endpoint == "" {
		missing = append(missing, "API Endpoint")
	}
	if len(missing) > 0 {
		return CheckResult{
			Status:  "error",
			Message: "Missing configuration: " + strings.Join(missing, ", "),
			Missing: missing,
			Fixes: []string{
				"Set BLOG_ENDPOINT, BLOG_PROJECT_ID, BLOG_DATABASE_ID, BLOG_COLLECTION_ID and BLOG_BUCKET_ID",
				"Verify that your .env file is in the working directory if you use one",
			},
		}
	}
	return CheckResult{Status: "success", Message: "Configuration looks complete"}
}

// Permission is one access rule the document or object store must enforce.
type Permission struct {
	Role        string `json:"role"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// PermissionGroup lists the rules for one store.
type PermissionGroup struct {
	Title       string       `json:"title"`
	Permissions []Permission `json:"permissions"`
}

// PermissionsGuide describes the access policy the stores apply. The service
// enforces the author rules itself in the Mongo filters; the guide documents
// them for operators configuring replicas or bucket policies.
func PermissionsGuide() []PermissionGroup {
	return []PermissionGroup{
		{
			Title: "Posts collection",
			Permissions: []Permission{
				{Role: "any", Type: "read", Description: "Anyone can read active posts"},
				{Role: "users", Type: "create", Description: "Logged-in users can create posts"},
				{Role: "author", Type: "update", Description: "Users can update only their own posts"},
				{Role: "author", Type: "delete", Description: "Users can delete only their own posts"},
			},
		},
		{
			Title: "Files bucket",
			Permissions: []Permission{
				{Role: "any", Type: "read", Description: "Anyone can view images"},
				{Role: "users", Type: "create", Description: "Logged-in users can upload images"},
			},
		},
	}
}
