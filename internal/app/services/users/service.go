// Package users implements registration and credential verification.
package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

const bcryptCost = 10

var (
	// ErrMissingFields indicates a registration with an empty name,
	// email, or password.
	ErrMissingFields = errors.New("name, email and password are required")
	// ErrEmailExists indicates the email is already registered.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so callers cannot tell which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service manages user accounts.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New creates a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Register creates a new account. The password is hashed before storage and
// the plaintext is never persisted.
func (s *Service) Register(ctx context.Context, name, email, password string) (user.User, error) {
	if name == "" || email == "" || password == "" {
		return user.User{}, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return user.User{}, err
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return user.User{}, ErrEmailExists
		}
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Authenticate verifies email and password, returning the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}
