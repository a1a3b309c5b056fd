package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

// RepositoryPort defines data access methods for user aggregates.
type RepositoryPort interface {
	FindAggregate(ctx context.Context, id string) (*Aggregate, error)
	CreateAggregate(ctx context.Context, agg *Aggregate) error
	SaveAggregate(ctx context.Context, agg *Aggregate) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PasswordHasher produces password hashes for new and reset credentials.
type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// SettingsSource supplies the provisioning default password. Consulted only
// by the reset flow.
type SettingsSource interface {
	DefaultPassword(ctx context.Context) (string, error)
}

// RoleChecker confirms role existence before an assignment is accepted.
type RoleChecker interface {
	Exists(ctx context.Context, roleID string) (bool, error)
}

// Service handles user management business logic.
type Service struct {
	repo     RepositoryPort
	hasher   PasswordHasher
	settings SettingsSource
	roles    RoleChecker
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, hasher PasswordHasher, settings SettingsSource, roles RoleChecker, logger *slog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, settings: settings, roles: roles, logger: logger}
}

// CreateInput carries the fields for a new user.
type CreateInput struct {
	Username string
	Email    string
	Password string
	RealName string
	Phone    string
	RoleIDs  []string
}

// Create provisions a new user aggregate.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", shared.ErrValidation)
	}
	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: username already exists", shared.ErrValidation)
	}
	taken, err = s.repo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already exists", shared.ErrValidation)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	agg := NewAggregate(username, input.Email, hashed, input.RealName, input.Phone)
	for _, roleID := range input.RoleIDs {
		agg.AssignRole(roleID)
	}
	if err := s.repo.CreateAggregate(ctx, agg); err != nil {
		return nil, err
	}
	return &agg.User, nil
}

// UpdateInput carries profile fields. Empty strings leave a field unchanged.
type UpdateInput struct {
	Email    string
	RealName string
	Avatar   string
	Phone    string
}

// Update modifies profile fields on an existing user.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) error {
	agg, err := s.repo.FindAggregate(ctx, id)
	if err != nil {
		return err
	}
	if input.Email != "" {
		agg.User.Email = input.Email
	}
	if input.RealName != "" {
		agg.User.RealName = input.RealName
	}
	if input.Avatar != "" {
		agg.User.Avatar = input.Avatar
	}
	if input.Phone != "" {
		agg.User.Phone = input.Phone
	}
	agg.touch()
	return s.repo.SaveAggregate(ctx, agg)
}

// Delete removes a user and its role assignments.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// AssignRole adds a role to the user. Assigning an already-held role is a
// no-op success; the aggregate guarantees no duplicate edge.
func (s *Service) AssignRole(ctx context.Context, userID, roleID string) error {
	ok, err := s.roles.Exists(ctx, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: role %s", shared.ErrNotFound, roleID)
	}
	agg, err := s.repo.FindAggregate(ctx, userID)
	if err != nil {
		return err
	}
	if !agg.AssignRole(roleID) {
		return nil
	}
	return s.repo.SaveAggregate(ctx, agg)
}

// RevokeRole removes a role from the user. Revoking a role the user does
// not hold is a no-op success.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID string) error {
	agg, err := s.repo.FindAggregate(ctx, userID)
	if err != nil {
		return err
	}
	if !agg.RevokeRole(roleID) {
		return nil
	}
	return s.repo.SaveAggregate(ctx, agg)
}

// fallbackDefaultPassword applies when the provisioning setting is missing
// or blank.
const fallbackDefaultPassword = "123456"

// ResetPassword replaces the user's credential with the provisioning
// default from system settings.
func (s *Service) ResetPassword(ctx context.Context, userID string) error {
	agg, err := s.repo.FindAggregate(ctx, userID)
	if err != nil {
		return err
	}

	secret, err := s.settings.DefaultPassword(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("default password setting unavailable", slog.Any("error", err))
		}
		secret = ""
	}
	if strings.TrimSpace(secret) == "" {
		secret = fallbackDefaultPassword
	}

	hashed, err := s.hasher.Hash(secret)
	if err != nil {
		return err
	}
	agg.ResetPassword(hashed)
	return s.repo.SaveAggregate(ctx, agg)
}

// SetStatus transitions the account state.
func (s *Service) SetStatus(ctx context.Context, userID string, status Status) error {
	switch status {
	case StatusActive, StatusDisabled, StatusDeleted:
	default:
		return fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status)
	}
	agg, err := s.repo.FindAggregate(ctx, userID)
	if err != nil {
		return err
	}
	agg.SetStatus(status)
	return s.repo.SaveAggregate(ctx, agg)
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Find(ctx, id)
}

// GetAggregate fetches a user with its role assignments.
func (s *Service) GetAggregate(ctx context.Context, id string) (*Aggregate, error) {
	return s.repo.FindAggregate(ctx, id)
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
