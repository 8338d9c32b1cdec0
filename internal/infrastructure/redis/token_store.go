package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenStore keeps the active-token set in Redis so revocation is shared
// across instances. Keys expire with the token's own TTL.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func tokenKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *TokenStore) Add(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(token), "1", ttl).Err()
}

func (s *TokenStore) Contains(ctx context.Context, token string) (bool, error) {
	_, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *TokenStore) Remove(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}
