package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

// NewID returns a random 32-byte hex string suitable as a session secret.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateSession stores a new session for userID valid for ttl.
func (s *Service) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &models.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate returns the session if it exists and has not expired. An unknown
// session yields (nil, nil).
func (s *Service) Validate(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(s.now().UTC()) {
		// cleanup expired session
		_ = s.repo.Delete(ctx, id)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// DeleteAllForUser ends every session belonging to userID.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}
