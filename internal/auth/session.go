package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore records issued token ids until they expire.
type SessionStore interface {
	Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	Exists(ctx context.Context, tokenID string) (bool, error)
}

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps one key per token id with the token's lifetime as TTL.
type RedisSessionStore struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisSessionStore(cfg RedisConfig) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func sessionKey(tokenID string) string {
	return sessionKeyPrefix + tokenID
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(tokenID), userID, ttl).Err()
}

func (s *RedisSessionStore) Exists(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
