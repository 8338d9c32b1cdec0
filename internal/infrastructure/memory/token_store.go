package memory

import (
	"context"
	"sync"
	"time"

	"auction-house/internal/domain"
)

// TokenStore is the single-process active-token set. Expiry is enforced
// lazily on Contains; the JWT's own expiry backstops it.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time // token -> expires at
	clock  domain.Clock
}

func NewTokenStore(clock domain.Clock) *TokenStore {
	return &TokenStore{
		tokens: make(map[string]time.Time),
		clock:  clock,
	}
}

func (s *TokenStore) Add(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = s.clock.Now().Add(ttl)
	return nil
}

func (s *TokenStore) Contains(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	expiresAt, exists := s.tokens[token]
	s.mu.RUnlock()

	if !exists {
		return false, nil
	}
	if s.clock.Now().After(expiresAt) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *TokenStore) Remove(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}
