// Package identity is the account and session provider behind the auth
// client: bcrypt-hashed accounts plus opaque server-side sessions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/gogotex/gogoblog/internal/sessions"
	"github.com/gogotex/gogoblog/internal/users"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidIdentity is returned when signup fields are malformed.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type signup struct {
	Email    string `validate:"required,email"`
	Password string `validate:"min=8,max=72"`
	Name     string `validate:"required,max=128"`
}

// Provider implements the identity surface over an account repository and
// the session service.
type Provider struct {
	accounts   users.Repository
	sessions   *sessions.Service
	sessionTTL time.Duration
	cost       int
	validate   *validator.Validate
}

// New returns a provider. A zero ttl defaults to one week.
func New(accounts users.Repository, sess *sessions.Service, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Provider{
		accounts:   accounts,
		sessions:   sess,
		sessionTTL: ttl,
		cost:       bcrypt.DefaultCost,
		validate:   validator.New(),
	}
}

// SessionTTL is the lifetime given to new sessions.
func (p *Provider) SessionTTL() time.Duration { return p.sessionTTL }

// CreateIdentity registers a new account.
func (p *Provider) CreateIdentity(ctx context.Context, email, password, name string) (*models.User, error) {
	in := signup{Email: users.NormalizeEmail(email), Password: password, Name: name}
	if err := p.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIdentity, describe(err))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	a := &users.Account{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := p.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a.User(), nil
}

// CreateSession checks the credentials and opens a new session.
func (p *Provider) CreateSession(ctx context.Context, email, password string) (*models.Session, error) {
	a, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return p.sessions.CreateSession(ctx, a.ID, p.sessionTTL)
}

// GetCurrentIdentity returns the user owning sessionID, or (nil, nil) when the
// session is unknown or expired.
func (p *Provider) GetCurrentIdentity(ctx context.Context, sessionID string) (*models.User, error) {
	sess, err := p.sessions.Validate(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	a, err := p.accounts.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a.User(), nil
}

// DeleteAllSessions ends every session of the user owning sessionID. An
// unknown session is a no-op.
func (p *Provider) DeleteAllSessions(ctx context.Context, sessionID string) error {
	sess, err := p.sessions.Validate(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return p.sessions.DeleteAllForUser(ctx, sess.UserID)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Email":
		return "a valid email address is required"
	case "Password":
		if fe.Tag() == "max" {
			return "password must be at most 72 characters"
		}
		return "password must be at least 8 characters"
	case "Name":
		if fe.Tag() == "max" {
			return "name is too long"
		}
		return "name is required"
	}
	return err.Error()
}
