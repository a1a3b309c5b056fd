package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anchorage-labs/anchorage/internal/roles"
	"github.com/anchorage-labs/anchorage/internal/shared"
	"github.com/anchorage-labs/anchorage/internal/users"
)

// UserDirectory is the slice of user storage the authentication flows need.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*users.User, error)
	FindAggregate(ctx context.Context, id string) (*users.Aggregate, error)
	SaveAggregate(ctx context.Context, agg *users.Aggregate) error
}

// RoleDirectory loads role records for profile assembly.
type RoleDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]roles.Role, error)
}

// Registrar provisions new accounts. Self-registration reuses the same
// path as administrative creation so uniqueness and hashing rules stay in
// one place.
type Registrar interface {
	Create(ctx context.Context, input users.CreateInput) (*users.User, error)
}

// PasswordVerifier hashes and checks credentials.
type PasswordVerifier interface {
	Hash(secret string) (string, error)
	Verify(hashed, secret string) bool
}

// Service implements login, logout and credential maintenance. Every
// failure on the login path collapses to the generic credential error so a
// caller cannot probe which accounts exist or which are disabled.
type Service struct {
	tokens    *TokenManager
	hasher    PasswordVerifier
	users     UserDirectory
	roles     RoleDirectory
	registrar Registrar
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(tokens *TokenManager, hasher PasswordVerifier, userDir UserDirectory, roleDir RoleDirectory, registrar Registrar, logger *slog.Logger) *Service {
	return &Service{
		tokens:    tokens,
		hasher:    hasher,
		users:     userDir,
		roles:     roleDir,
		registrar: registrar,
		logger:    logger,
	}
}

// Session is the outcome of a successful login.
type Session struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

// Profile is the current principal's account with its role records.
type Profile struct {
	User        users.User   `json:"user"`
	Roles       []roles.Role `json:"roles"`
	Permissions []string     `json:"permissions,omitempty"`
}

// Login verifies the credential pair and issues a token. Unknown username,
// wrong password and disabled account are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && s.logger != nil {
			s.logger.Error("login lookup", slog.Any("error", err))
		}
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, shared.ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("issue token", slog.Any("error", err))
		}
		return nil, shared.ErrInvalidCredentials
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &Session{Token: token, User: sanitized}, nil
}

// Logout revokes the presented token. Revoking an expired token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Register provisions a self-service account.
func (s *Service) Register(ctx context.Context, input users.CreateInput) (*users.User, error) {
	user, err := s.registrar.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// ChangePassword replaces the principal's credential after re-verifying the
// current one. A wrong current password is a credential failure, not a
// validation failure.
func (s *Service) ChangePassword(ctx context.Context, principalID, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return fmt.Errorf("%w: new password required", shared.ErrValidation)
	}
	agg, err := s.users.FindAggregate(ctx, principalID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(agg.User.PasswordHash, current) {
		return shared.ErrInvalidCredentials
	}
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	agg.ResetPassword(hashed)
	return s.users.SaveAggregate(ctx, agg)
}

// CurrentUser assembles the profile for an authenticated principal.
func (s *Service) CurrentUser(ctx context.Context, principalID string) (*Profile, error) {
	agg, err := s.users.FindAggregate(ctx, principalID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.roles.FindByIDs(ctx, agg.RoleIDs)
	if err != nil {
		return nil, err
	}
	sanitized := agg.User
	sanitized.PasswordHash = ""
	return &Profile{User: sanitized, Roles: assigned}, nil
}
