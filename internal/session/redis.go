package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

const (
	sessionKeyPrefix = "checkout:session:"
	flashKeyPrefix   = "checkout:flash:"
)

// RedisStore implements Store on Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load reads the session bag and refreshes its TTL.
func (s *RedisStore) Load(ctx context.Context, id string) (model.Session, error) {
	key := sessionKeyPrefix + id

	data, err := s.client.GetEx(ctx, key, s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, nil
		}
		return model.Session{}, apperrors.Storage("redis get session", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// Save writes the session bag with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, id string, sess model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return apperrors.Storage("redis set session", err)
	}
	return nil
}

// Destroy removes the session bag.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return apperrors.Storage("redis del session", err)
	}
	return nil
}

// SetFlash stores a one-shot value next to the session.
func (s *RedisStore) SetFlash(ctx context.Context, id, key string, value []byte) error {
	if err := s.client.Set(ctx, flashKey(id, key), value, s.ttl).Err(); err != nil {
		return apperrors.Storage("redis set flash", err)
	}
	return nil
}

// TakeFlash reads and deletes a flash value atomically.
func (s *RedisStore) TakeFlash(ctx context.Context, id, key string) ([]byte, error) {
	data, err := s.client.GetDel(ctx, flashKey(id, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.Storage("redis take flash", err)
	}
	return data, nil
}

func flashKey(id, key string) string {
	return flashKeyPrefix + id + ":" + key
}
