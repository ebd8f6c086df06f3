// Package authstate holds the per-request session state and its two
// transitions.
package authstate

import (
	"context"

	"github.com/gogotex/gogoblog/internal/models"
)

// State is the resolved session. Status is true iff UserData is set.
type State struct {
	Status   bool         `json:"status"`
	UserData *models.User `json:"userData"`
}

// Resolver looks up the user owning a session credential.
type Resolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*models.User, error)
}

// ApplyLogin returns the logged-in state for u. A nil user yields the empty state.
func ApplyLogin(_ State, u *models.User) State {
	if u == nil {
		return State{}
	}
	return State{Status: true, UserData: u}
}

// ApplyLogout returns the empty state.
func ApplyLogout(State) State {
	return State{}
}

// Resolve makes exactly one CurrentUser call. On error the state is logged
// out and the error is returned alongside it so the caller can surface it.
func Resolve(ctx context.Context, r Resolver, sessionID string) (State, error) {
	u, err := r.CurrentUser(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	return ApplyLogin(State{}, u), nil
}

// UserID returns the logged-in user's id or "".
func (s State) UserID() string {
	if !s.Status || s.UserData == nil {
		return ""
	}
	return s.UserData.ID
}
