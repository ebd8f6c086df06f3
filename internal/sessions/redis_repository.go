package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gogotex/gogoblog/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis as the backing store.
// Sessions are stored as JSON under "<prefix><id>" with TTL = expiresAt - now.
// Each user also has a set "<prefix>user:<userID>" listing their session ids
// so DeleteByUser can end every session at once.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + id
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

func (r *RedisRepository) Create(ctx context.Context, s *models.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	exp := time.Until(s.ExpiresAt)
	if exp <= 0 {
		// ensure a minimal TTL so Redis won't store expired sessions
		exp = time.Second
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(s.ID), b, exp)
	pipe.SAdd(ctx, r.userKey(s.UserID), s.ID)
	pipe.Expire(ctx, r.userKey(s.UserID), exp)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Expired(time.Now().UTC()) {
		_ = r.Delete(ctx, id)
		return nil, nil
	}
	return &s, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}
	keys = append(keys, r.userKey(userID))
	return r.client.Del(ctx, keys...).Err()
}
