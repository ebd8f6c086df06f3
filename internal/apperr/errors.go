// Package apperr defines the error taxonomy shared by the auth and content
// clients and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPermission is returned when the session user does not own the post.
	ErrPermission = errors.New("permission denied")
	// ErrFileOwner is returned when a file was uploaded by another user or is
	// already the featured image of another post.
	ErrFileOwner = fmt.Errorf("%w: image belongs to another user or post", ErrPermission)
	// ErrNotFound is returned when a slug (or file id) has no stored record.
	ErrNotFound = errors.New("not found")
	// ErrAccountCreation is returned when the identity provider rejects a signup.
	ErrAccountCreation = errors.New("account creation failed")
	// ErrAuthentication is returned for bad credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUpload is returned when a file is rejected by size, type or the store.
	ErrUpload = errors.New("upload rejected")
	// ErrTransport is the catch-all for an unreachable or failing backend.
	ErrTransport = errors.New("backend unavailable")
	// ErrInvalidInput is returned for malformed post fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a slug is already taken.
	ErrConflict = errors.New("already exists")
)

// Status maps an error from the taxonomy to an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccountCreation), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// Message returns the user-facing text for err. Unknown errors are reported
// as a transport failure so backend details are not leaked to the page.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "You must be logged in to do that."
	case errors.Is(err, ErrFileOwner):
		return "You can only use or delete images you uploaded that no other post uses."
	case errors.Is(err, ErrPermission):
		return "You are not the author of this post."
	case errors.Is(err, ErrNotFound):
		return "Post not found."
	case errors.Is(err, ErrAccountCreation),
		errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrUpload),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return "The blog backend is unavailable. Please try again later."
	}
}
