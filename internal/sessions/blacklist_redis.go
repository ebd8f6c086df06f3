package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

// Blacklist records revoked access tokens until they would have expired anyway.
// With a nil Redis client it keeps entries in process memory.
type Blacklist struct {
	client *redis.Client

	mu    sync.Mutex
	local map[string]time.Time
}

func NewBlacklist(c *redis.Client) *Blacklist {
	return &Blacklist{client: c, local: map[string]time.Time{}}
}

// Add blacklists token for ttl. A non-positive ttl is a no-op. The in-memory
// form drops expired entries on every Add, so tokens that are never looked up
// again do not accumulate.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}
	if b.client != nil {
		return b.client.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
	}
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, exp := range b.local {
		if now.After(exp) {
			delete(b.local, t)
		}
	}
	b.local[token] = now.Add(ttl)
	return nil
}

// Contains reports whether token is currently blacklisted.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if b.client != nil {
		exists, err := b.client.Exists(ctx, blacklistPrefix+token).Result()
		if err != nil {
			return false, err
		}
		return exists > 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.local[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(b.local, token)
		return false, nil
	}
	return true, nil
}
