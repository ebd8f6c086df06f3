package tokens

import (
	"errors"
	"time"

	"github.com/gogotex/gogoblog/internal/config"
	"github.com/gogotex/gogoblog/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails to parse or verify.
var ErrInvalidToken = errors.New("invalid access token")

// Claims carried by an access token. SessionID names the provider session
// the token was minted for; revoking that session revokes the token.
type Claims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a signed JWT access token for the user bound to sessionID
func GenerateAccessToken(cfg *config.Config, u *models.User, sessionID string, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Name:      u.Name,
		Email:     u.Email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// Parse verifies tokenStr (HS256 only) and returns its claims.
func Parse(cfg *config.Config, tokenStr string) (*Claims, error) {
	if cfg.JWT.Secret == "" {
		return nil, ErrInvalidToken
	}
	var c Claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if c.SessionID == "" || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// Remaining returns how long the token stays valid, zero when already expired.
func (c *Claims) Remaining() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := time.Until(c.ExpiresAt.Time)
	if d < 0 {
		return 0
	}
	return d
}
