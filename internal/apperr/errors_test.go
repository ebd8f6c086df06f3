package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrNotAuthenticated, http.StatusUnauthorized},
		{fmt.Errorf("login: %w", ErrAuthentication), http.StatusUnauthorized},
		{ErrPermission, http.StatusForbidden},
		{fmt.Errorf("get post: %w", ErrNotFound), http.StatusNotFound},
		{ErrAccountCreation, http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUpload, http.StatusUnprocessableEntity},
		{ErrConflict, http.StatusConflict},
		{ErrTransport, http.StatusBadGateway},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), "err=%v", tc.err)
	}
}

func TestMessage_HidesUnknownErrors(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Contains(t, Message(errors.New("mongo: connection refused 10.0.0.3")), "unavailable")
	wrapped := fmt.Errorf("%w: title is required", ErrInvalidInput)
	assert.Equal(t, wrapped.Error(), Message(wrapped))
	assert.Equal(t, "Post not found.", Message(fmt.Errorf("x: %w", ErrNotFound)))
}

func TestFileOwnerIsPermission(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, Status(ErrFileOwner))
	assert.ErrorIs(t, ErrFileOwner, ErrPermission)
	assert.Contains(t, Message(ErrFileOwner), "images you uploaded")
	assert.Equal(t, "You are not the author of this post.", Message(ErrPermission))
}
