package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

// RepositoryPort defines data access methods for the permission catalog.
type RepositoryPort interface {
	Create(ctx context.Context, p Permission) error
	Save(ctx context.Context, p Permission) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, id string) (*Permission, error)
	FindByCode(ctx context.Context, code string) (*Permission, error)
	CountChildren(ctx context.Context, parentID string) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]Permission, error)
}

// Service orchestrates permission catalog operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields for a new permission.
type CreateInput struct {
	Name      string
	Code      string
	Kind      Kind
	ParentID  string
	Path      string
	Component string
	Icon      string
	Sort      int
}

// Create inserts a new catalog entry. Codes are unique when present.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Permission, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name required", shared.ErrValidation)
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown permission kind %q", shared.ErrValidation, input.Kind)
	}
	if code := strings.TrimSpace(input.Code); code != "" {
		existing, err := s.repo.FindByCode(ctx, code)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: permission code already exists", shared.ErrValidation)
		}
	}
	if input.ParentID != "" {
		if _, err := s.repo.Find(ctx, input.ParentID); err != nil {
			return nil, err
		}
	}

	p := New(name, strings.TrimSpace(input.Code), input.Kind,
		input.ParentID, input.Path, input.Component, input.Icon, input.Sort)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateInput carries mutable permission fields. Nil pointers leave a field
// unchanged; a pointer to the empty string clears it.
type UpdateInput struct {
	Name      *string
	Code      *string
	Kind      *Kind
	ParentID  *string
	Path      *string
	Component *string
	Icon      *string
	Sort      *int
	Status    *Status
}

// Update modifies an existing catalog entry.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) error {
	p, err := s.repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return fmt.Errorf("%w: permission name required", shared.ErrValidation)
		}
		p.Name = name
	}
	if input.Code != nil {
		p.Code = strings.TrimSpace(*input.Code)
	}
	if input.Kind != nil {
		if !input.Kind.Valid() {
			return fmt.Errorf("%w: unknown permission kind %q", shared.ErrValidation, *input.Kind)
		}
		p.Kind = *input.Kind
	}
	if input.ParentID != nil {
		if *input.ParentID == id {
			return fmt.Errorf("%w: permission cannot parent itself", shared.ErrValidation)
		}
		p.ParentID = *input.ParentID
	}
	if input.Path != nil {
		p.Path = *input.Path
	}
	if input.Component != nil {
		p.Component = *input.Component
	}
	if input.Icon != nil {
		p.Icon = *input.Icon
	}
	if input.Sort != nil {
		p.Sort = *input.Sort
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	p.UpdatedAt = time.Now().UTC()
	return s.repo.Save(ctx, *p)
}

// Delete removes a catalog entry. Entries with children are refused.
func (s *Service) Delete(ctx context.Context, id string) error {
	count, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: permission has %d children", shared.ErrValidation, count)
	}
	return s.repo.Delete(ctx, id)
}

// Get fetches a permission by ID.
func (s *Service) Get(ctx context.Context, id string) (*Permission, error) {
	return s.repo.Find(ctx, id)
}

// GetByCode fetches a permission by code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Permission, error) {
	return s.repo.FindByCode(ctx, code)
}

// List returns catalog entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Permission, error) {
	return s.repo.List(ctx, filter)
}
