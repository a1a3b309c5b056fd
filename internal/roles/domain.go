package roles

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates role lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Role represents a permission grouping assignable to users.
type Role struct {
	ID          string
	Name        string
	Code        string
	Description string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Aggregate combines a role with its owned permission grants, persisted and
// mutated only as a unit.
type Aggregate struct {
	Role          Role
	PermissionIDs []string
}

// NewAggregate creates an active role aggregate with no grants.
func NewAggregate(name, code, description string) *Aggregate {
	now := time.Now().UTC()
	return &Aggregate{
		Role: Role{
			ID:          uuid.NewString(),
			Name:        name,
			Code:        code,
			Description: description,
			Status:      StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// Grant adds a permission edge. Returns false when the edge already exists.
func (a *Aggregate) Grant(permissionID string) bool {
	for _, id := range a.PermissionIDs {
		if id == permissionID {
			return false
		}
	}
	a.PermissionIDs = append(a.PermissionIDs, permissionID)
	a.touch()
	return true
}

// Ungrant removes a permission edge. Returns false when no such edge exists.
func (a *Aggregate) Ungrant(permissionID string) bool {
	for i, id := range a.PermissionIDs {
		if id == permissionID {
			a.PermissionIDs = append(a.PermissionIDs[:i], a.PermissionIDs[i+1:]...)
			a.touch()
			return true
		}
	}
	return false
}

// ReplaceGrants swaps the grant set wholesale, deduplicating the input.
func (a *Aggregate) ReplaceGrants(permissionIDs []string) {
	seen := make(map[string]struct{}, len(permissionIDs))
	next := make([]string, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	a.PermissionIDs = next
	a.touch()
}

func (a *Aggregate) touch() {
	a.Role.UpdatedAt = time.Now().UTC()
}
