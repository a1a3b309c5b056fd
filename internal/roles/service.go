package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

// RepositoryPort defines data access methods for role aggregates.
type RepositoryPort interface {
	FindAggregate(ctx context.Context, id string) (*Aggregate, error)
	CreateAggregate(ctx context.Context, agg *Aggregate) error
	SaveAggregate(ctx context.Context, agg *Aggregate) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, id string) (*Role, error)
	FindByIDs(ctx context.Context, ids []string) ([]Role, error)
	List(ctx context.Context) ([]Role, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	CountAssignments(ctx context.Context, roleID string) (int64, error)
}

// Service orchestrates role management.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create inserts a new role.
func (s *Service) Create(ctx context.Context, name, code, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" {
		return nil, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: role code required", shared.ErrValidation)
	}
	taken, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: role code already exists", shared.ErrValidation)
	}

	agg := NewAggregate(name, code, strings.TrimSpace(description))
	if err := s.repo.CreateAggregate(ctx, agg); err != nil {
		return nil, err
	}
	return &agg.Role, nil
}

// Update modifies name and description of an existing role.
func (s *Service) Update(ctx context.Context, id, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	agg, err := s.repo.FindAggregate(ctx, id)
	if err != nil {
		return err
	}
	agg.Role.Name = name
	agg.Role.Description = strings.TrimSpace(description)
	agg.touch()
	return s.repo.SaveAggregate(ctx, agg)
}

// Delete removes a role. Roles still assigned to users are refused.
func (s *Service) Delete(ctx context.Context, id string) error {
	count, err := s.repo.CountAssignments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: role is assigned to %d users", shared.ErrValidation, count)
	}
	return s.repo.Delete(ctx, id)
}

// SetPermissions replaces the role's grant set wholesale. Duplicates in the
// input collapse to one grant.
func (s *Service) SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	agg, err := s.repo.FindAggregate(ctx, roleID)
	if err != nil {
		return err
	}
	agg.ReplaceGrants(permissionIDs)
	return s.repo.SaveAggregate(ctx, agg)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id string) (*Role, error) {
	return s.repo.Find(ctx, id)
}

// GetAggregate fetches a role with its grants.
func (s *Service) GetAggregate(ctx context.Context, id string) (*Aggregate, error) {
	return s.repo.FindAggregate(ctx, id)
}

// List returns all roles ordered by name.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}
