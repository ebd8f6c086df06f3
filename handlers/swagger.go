package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the blog API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gogoblog - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gogoblog", "version": "v0.1.0" },
  "components": {
    "securitySchemes": {
      "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" },
      "cookie": { "type": "apiKey", "in": "cookie", "name": "blog_session" }
    },
    "schemas": {
      "Post": { "type": "object", "properties": {
        "slug": {"type":"string"}, "title": {"type":"string"}, "content": {"type":"string"},
        "featuredImage": {"type":"string"}, "featuredImageUrl": {"type":"string"},
        "status": {"type":"string","enum":["active","inactive"]}, "author": {"type":"string"},
        "createdAt": {"type":"string","format":"date-time"}, "updatedAt": {"type":"string","format":"date-time"} } },
      "PostInput": { "type": "object", "required": ["title"], "properties": {
        "title": {"type":"string"}, "slug": {"type":"string"}, "content": {"type":"string"},
        "featuredImage": {"type":"string"}, "status": {"type":"string","enum":["active","inactive"]} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"} } }
    }
  },
  "security": [ {"bearer": []}, {"cookie": []} ],
  "paths": {
    "/api/v1/auth/signup": {
      "post": {
        "summary": "Create an account and log in",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string","minLength":8},"name":{"type":"string"}}}}}},
        "responses": { "201": { "description": "user, session cookie and access token" }, "400": { "description": "account creation failed" } }
      }
    },
    "/api/v1/auth/login": {
      "post": {
        "summary": "Log in",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "user, session cookie and access token" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/api/v1/auth/logout": {
      "post": { "summary": "End all sessions of the caller and revoke the bearer token", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/auth/me": {
      "get": { "summary": "Current user", "responses": { "200": { "description": "user" }, "401": { "description": "not logged in" } } }
    },
    "/api/v1/posts": {
      "get": { "summary": "List active posts, newest first", "parameters": [{"name":"search","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "posts" } } },
      "post": { "summary": "Create a post", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PostInput"}}}}, "responses": { "201": { "description": "created" }, "401": { "description": "not logged in" }, "409": { "description": "slug taken or submission in progress" } } }
    },
    "/api/v1/posts/{slug}": {
      "get": { "summary": "Get a post", "responses": { "200": { "description": "post" }, "404": { "description": "not found" } } },
      "put": { "summary": "Update a post you authored", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PostInput"}}}}, "responses": { "200": { "description": "updated" }, "403": { "description": "not the author" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a post you authored", "responses": { "200": { "description": "deleted" }, "403": { "description": "not the author" }, "404": { "description": "not found" } } }
    },
    "/api/v1/users/{id}/posts": {
      "get": { "summary": "List active posts by author", "responses": { "200": { "description": "posts" } } }
    },
    "/api/v1/files": {
      "post": { "summary": "Upload an image (multipart field file; png, jpeg or gif)", "responses": { "201": { "description": "file and preview URL" }, "422": { "description": "rejected" } } }
    },
    "/api/v1/files/{id}": {
      "delete": { "summary": "Delete a file you uploaded that no post uses", "responses": { "200": { "description": "deleted flag" }, "403": { "description": "uploaded by another user" }, "404": { "description": "not found" }, "409": { "description": "file in use" } } }
    },
    "/storage/buckets/{bucket}/files/{id}/preview": {
      "get": { "summary": "Stream a stored image", "responses": { "200": { "description": "image bytes" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
