// Package auth registers users, verifies credentials and tracks the
// signed-in identity in a cookie session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/huyquangvevo/chamcong-web/internal/apperr"
	"github.com/huyquangvevo/chamcong-web/internal/models"
	"github.com/huyquangvevo/chamcong-web/internal/repos"
	"github.com/huyquangvevo/chamcong-web/internal/storage"
)

// User-facing messages.
const (
	MsgRegistered         = "Registration successful!"
	MsgPasswordMismatch   = "Passwords do not match. Please try again."
	MsgDuplicateEmail     = "Email address already exists. Please use a different email."
	MsgMissingFields      = "All fields are required."
	MsgInvalidCredentials = "Invalid email or password. Please try again."
)

// UserStore is the part of the user repository the service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	ConfirmPassword  string
	Contact          string
	EmergencyContact string
}

type Service struct {
	users  UserStore
	hasher *Hasher
	logger *slog.Logger
}

func NewService(users UserStore, hasher *Hasher, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = NewHasher()
	}
	return &Service{users: users, hasher: hasher, logger: logger}
}

// Register creates a user. A password mismatch is rejected before the
// store is touched; a taken email is a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Validation(MsgPasswordMismatch)
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation(MsgMissingFields)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Name:             strings.TrimSpace(in.Name),
		Email:            in.Email,
		Password:         hashed,
		Contact:          strings.TrimSpace(in.Contact),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if storage.IsDuplicate(err) {
			return nil, apperr.Conflict(MsgDuplicateEmail, err)
		}
		s.logger.Error("register user failed", "email", in.Email, "error", err)
		return nil, apperr.Storage(fmt.Errorf("create user: %w", err))
	}
	s.logger.Info("user registered", "email", user.Email, "id", user.ID)
	return user, nil
}

// Authenticate reports whether email names a user whose stored hash
// matches password. An unknown email and a wrong password both yield false.
func (s *Service) Authenticate(ctx context.Context, email, password string) (bool, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repos.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage(fmt.Errorf("find user: %w", err))
	}
	return s.hasher.Verify(user.Password, password), nil
}

// Login authenticates and returns the caller's Identity. Bad credentials
// are an authentication error carrying MsgInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	ok, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		s.logger.Info("login rejected", "email", email)
		return Identity{}, apperr.Authentication(MsgInvalidCredentials)
	}
	return Identity{Email: email}, nil
}
