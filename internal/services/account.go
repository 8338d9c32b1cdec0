package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

// AccountService handles signup, signin and logout. Signup always issues the
// user role; admin identities are provisioned out of band.
type AccountService struct {
	users domain.UserRepository
	gate  domain.SessionGate
	clock domain.Clock
	log   logger.Logger
}

func NewAccountService(users domain.UserRepository, gate domain.SessionGate, clock domain.Clock, log logger.Logger) *AccountService {
	return &AccountService{
		users: users,
		gate:  gate,
		clock: clock,
		log:   log,
	}
}

func (s *AccountService) Signup(ctx context.Context, username, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "required"}
	}
	if password == "" {
		return nil, &domain.ValidationError{Field: "password", Reason: "required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           utils.GenerateID("user"),
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Signin verifies the password and issues a session token through the gate.
func (s *AccountService) Signin(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.gate.Issue(ctx, domain.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return "", err
	}

	s.log.Info("User signed in", "user_id", user.ID, "username", user.Username)
	return token, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.gate.Revoke(ctx, token)
}
