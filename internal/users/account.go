package users

import (
	"errors"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Account is the stored identity record. PasswordHash never leaves this
// package's callers inside the identity provider.
type Account struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// User returns the public view of the account.
func (a *Account) User() *models.User {
	return &models.User{ID: a.ID, Email: a.Email, Name: a.Name, CreatedAt: a.CreatedAt}
}
