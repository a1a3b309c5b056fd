package users

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates account lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusDeleted  Status = "deleted"
)

// User represents an account. The ID is opaque and immutable once created;
// PasswordHash is replaced wholesale on change or reset, never patched.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	RealName     string
	Avatar       string
	Phone        string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Aggregate combines a user with its owned role assignments. It is loaded,
// mutated in memory and persisted as one unit; edges are never mutated
// outside the aggregate's own assign/revoke operations, which keeps the
// no-duplicate-edge invariant in one place.
type Aggregate struct {
	User    User
	RoleIDs []string
}

// NewAggregate creates an active user aggregate with no role assignments.
func NewAggregate(username, email, passwordHash, realName, phone string) *Aggregate {
	now := time.Now().UTC()
	return &Aggregate{
		User: User{
			ID:           uuid.NewString(),
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			RealName:     realName,
			Phone:        phone,
			Status:       StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// AssignRole adds a role edge. Returns false when the edge already exists.
func (a *Aggregate) AssignRole(roleID string) bool {
	for _, id := range a.RoleIDs {
		if id == roleID {
			return false
		}
	}
	a.RoleIDs = append(a.RoleIDs, roleID)
	a.touch()
	return true
}

// RevokeRole removes a role edge. Returns false when no such edge exists.
func (a *Aggregate) RevokeRole(roleID string) bool {
	for i, id := range a.RoleIDs {
		if id == roleID {
			a.RoleIDs = append(a.RoleIDs[:i], a.RoleIDs[i+1:]...)
			a.touch()
			return true
		}
	}
	return false
}

// ResetPassword replaces the stored hash.
func (a *Aggregate) ResetPassword(passwordHash string) {
	a.User.PasswordHash = passwordHash
	a.touch()
}

// SetStatus transitions the account state.
func (a *Aggregate) SetStatus(status Status) {
	a.User.Status = status
	a.touch()
}

func (a *Aggregate) touch() {
	a.User.UpdatedAt = time.Now().UTC()
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool {
	return u.Status == StatusActive
}
