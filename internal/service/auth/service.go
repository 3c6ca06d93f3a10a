package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/velur/noteshare/internal/domain"
	"github.com/velur/noteshare/internal/repository"
	"github.com/velur/noteshare/pkg/config"
	"github.com/velur/noteshare/pkg/crypto"
	jwtpkg "github.com/velur/noteshare/pkg/jwt"
)

// Service handles authentication workflows.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

var (
	errFieldsRequired = fmt.Errorf("%w: username, email and password are required", domain.ErrValidation)
	errIdentityTaken  = fmt.Errorf("%w: username or email taken", domain.ErrConflict)
	// Unknown user and wrong password share one error so responses never
	// reveal which check failed.
	errBadCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrAuthentication)
	errBadToken       = fmt.Errorf("%w: invalid token", domain.ErrAuthentication)
)

// Signup registers a new user and returns its identifier.
func (s Service) Signup(ctx context.Context, username, email, password string) (string, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return "", errFieldsRequired
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return "", err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return "", errIdentityTaken
		}
		return "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user.ID, nil
}

// Login authenticates by username or email and issues a bearer token.
func (s Service) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.users.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", errBadCredentials
		}
		return "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return "", errBadCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Verify validates a bearer token and resolves the caller identity. Every
// call re-checks that the encoded user still exists; no caching.
func (s Service) Verify(ctx context.Context, token string) (domain.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.Identity{}, errBadToken
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		s.logger.Warn("token validation failed", "error", err)
		return domain.Identity{}, errBadToken
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, errBadToken
		}
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: user.ID, Username: user.Username, Email: user.Email}, nil
}
