package postform

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard is a cross-request lock keyed by form. Acquire hands out a token
// that Release must present, so a holder whose lock expired cannot free a
// lock taken since by someone else.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Key names the lock for a user's form on slug. New posts use "new".
func Key(userID, slug string) string {
	if slug == "" {
		slug = "new"
	}
	return userID + ":" + slug
}

type lease struct {
	token string
	exp   time.Time
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	locks sync.Map // key -> *lease
}

func NewMemoryGuard() *MemoryGuard { return &MemoryGuard{} }

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	now := time.Now()
	l := &lease{token: uuid.NewString(), exp: now.Add(ttl)}
	for {
		prev, loaded := g.locks.LoadOrStore(key, l)
		if !loaded {
			return l.token, true, nil
		}
		if prev.(*lease).exp.After(now) {
			return "", false, nil
		}
		// stale lock from an abandoned submission
		if g.locks.CompareAndSwap(key, prev, l) {
			return l.token, true, nil
		}
	}
}

func (g *MemoryGuard) Release(_ context.Context, key, token string) error {
	if cur, ok := g.locks.Load(key); ok && cur.(*lease).token == token {
		g.locks.CompareAndDelete(key, cur)
	}
	return nil
}

// releaseScript deletes KEYS[1] only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the lock across instances with SET NX.
type RedisGuard struct {
	client *redis.Client
	prefix string
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, prefix: "postform:lock:"}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Err()
}
