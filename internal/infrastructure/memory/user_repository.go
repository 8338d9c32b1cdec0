package memory

import (
	"context"
	"sync"

	"auction-house/internal/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User // keyed by username
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*domain.User),
	}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return domain.ErrDuplicateUsername
	}
	u := *user
	r.users[user.Username] = &u
	return nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[username]
	if !exists {
		return nil, domain.ErrNotFound
	}
	u := *user
	return &u, nil
}
