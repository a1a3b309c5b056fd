package rbac

import (
	"context"

	"github.com/anchorage-labs/anchorage/internal/permissions"
)

// Service resolves the effective permission set for a principal and derives
// the navigation menu from it. Storage errors propagate unchanged; there is
// nothing security-sensitive to normalize at this layer.
type Service struct {
	store Store
}

// NewService constructs a Service backed by the provided store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Resolve aggregates all permissions reachable through the principal's role
// assignments, deduplicated by permission identity. A principal with no
// assignments resolves to an empty set, not an error. No ordering guarantee
// is made; menu building owns ordering where it matters.
func (s *Service) Resolve(ctx context.Context, principalID string) ([]permissions.Permission, error) {
	roleIDs, err := s.store.RoleIDsForUser(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}

	permIDs, err := s.store.PermissionIDsForRoles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	if len(permIDs) == 0 {
		return nil, nil
	}

	records, err := s.store.PermissionsByIDs(ctx, permIDs)
	if err != nil {
		return nil, err
	}

	// The store already deduplicates grants; dedup again by identity so a
	// permission reachable via two roles can never appear twice regardless
	// of the backing query.
	seen := make(map[string]struct{}, len(records))
	result := make([]permissions.Permission, 0, len(records))
	for _, p := range records {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		result = append(result, p)
	}
	return result, nil
}

// ResolveCodes returns the deduplicated permission codes for a principal,
// the shape authorization middleware matches against.
func (s *Service) ResolveCodes(ctx context.Context, principalID string) ([]string, error) {
	perms, err := s.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		if p.Code != "" {
			codes = append(codes, p.Code)
		}
	}
	return codes, nil
}

// Menus resolves the principal's permissions and assembles the menu forest.
// The forest is rebuilt on every call, never cached.
func (s *Service) Menus(ctx context.Context, principalID string) ([]MenuNode, error) {
	perms, err := s.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return BuildMenuTree(perms), nil
}
