package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-sync/internal/auth"
	"github.com/spec-kit/task-sync/internal/domain"
	"github.com/spec-kit/task-sync/internal/repository"
	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	verifier   *auth.Verifier
	guard      *LoginGuard
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Verifier   *auth.Verifier
	Guard      *LoginGuard
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		verifier:   deps.Verifier,
		guard:      deps.Guard,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password required", nil)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperrors.NewValidationError("password too long", map[string]any{"max_bytes": auth.MaxPasswordBytes})
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, apperrors.NewConflict("username already registered", map[string]any{"username": username})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if err := s.guard.Allow(ctx, username); err != nil {
		return "", time.Time{}, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.guard.RecordFailure(ctx, username)
			return "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.guard.RecordFailure(ctx, username)
		return "", time.Time{}, apperrors.NewInvalidCredentials()
	}
	s.guard.Reset(ctx, username)

	token, exp, err := s.verifier.Issue(user.ID)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// CurrentUser loads the account behind a verified identity.
func (s *AuthService) CurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Verifier exposes the token verifier for handlers.
func (s *AuthService) Verifier() *auth.Verifier {
	return s.verifier
}
