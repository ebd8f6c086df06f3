// Package auth is the authentication client used by the HTTP layer. It wraps
// an IdentityProvider and translates its failures into the apperr taxonomy.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/gogoblog/internal/apperr"
	"github.com/gogotex/gogoblog/internal/identity"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/internal/users"
	"github.com/gogotex/gogoblog/pkg/logger"
)

// IdentityProvider is the identity surface the auth client consumes.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password, name string) (*models.User, error)
	CreateSession(ctx context.Context, email, password string) (*models.Session, error)
	GetCurrentIdentity(ctx context.Context, sessionID string) (*models.User, error)
	DeleteAllSessions(ctx context.Context, sessionID string) error
}

// Service wraps provider operations with the client-side contract
type Service struct {
	idp IdentityProvider
}

func NewService(idp IdentityProvider) *Service { return &Service{idp: idp} }

// CreateAccount registers the identity and logs in with the same credentials.
func (s *Service) CreateAccount(ctx context.Context, email, password, name string) (*models.Session, *models.User, error) {
	if _, err := s.idp.CreateIdentity(ctx, email, password, name); err != nil {
		if errors.Is(err, identity.ErrInvalidIdentity) || errors.Is(err, users.ErrDuplicateEmail) {
			return nil, nil, fmt.Errorf("%w: %w", apperr.ErrAccountCreation, err)
		}
		return nil, nil, fmt.Errorf("%w: create identity: %w", apperr.ErrTransport, err)
	}
	return s.Login(ctx, email, password)
}

// Login opens a session and returns it with its user.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	sess, err := s.idp.CreateSession(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, nil, fmt.Errorf("%w: %w", apperr.ErrAuthentication, err)
		}
		return nil, nil, fmt.Errorf("%w: create session: %w", apperr.ErrTransport, err)
	}
	u, err := s.idp.GetCurrentIdentity(ctx, sess.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: current identity: %w", apperr.ErrTransport, err)
	}
	if u == nil {
		return nil, nil, apperr.ErrAuthentication
	}
	return sess, u, nil
}

// Logout ends all sessions of the user behind sessionID. It is best-effort:
// provider failures are logged and never returned.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.idp.DeleteAllSessions(ctx, sessionID); err != nil {
		logger.Warnf("logout: delete sessions: %v", err)
	}
	return nil
}

// CurrentUser returns the user behind sessionID. No session yields (nil, nil).
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, nil
	}
	u, err := s.idp.GetCurrentIdentity(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrTransport, err)
	}
	return u, nil
}

// GetCurrentUser is CurrentUser with every failure mapped to nil.
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) *models.User {
	u, err := s.CurrentUser(ctx, sessionID)
	if err != nil {
		logger.Debugf("get current user: %v", err)
		return nil
	}
	return u
}
