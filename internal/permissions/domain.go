package permissions

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates what a permission gates.
type Kind string

const (
	KindMenu   Kind = "menu"
	KindButton Kind = "button"
	KindAPI    Kind = "api"
)

// Valid reports whether the kind is one of the known discriminators.
func (k Kind) Valid() bool {
	switch k {
	case KindMenu, KindButton, KindAPI:
		return true
	}
	return false
}

// Status enumerates permission lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// Permission is an atomic capability. ParentID references another
// permission, forming a tree; an empty ParentID marks a root. The data
// model does not prevent reference cycles; tree consumers must tolerate
// them.
type Permission struct {
	ID        string
	Name      string
	Code      string
	Kind      Kind
	ParentID  string
	Path      string
	Component string
	Icon      string
	Sort      int
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an active permission record.
func New(name, code string, kind Kind, parentID, path, component, icon string, sort int) Permission {
	now := time.Now().UTC()
	return Permission{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		Kind:      kind,
		ParentID:  parentID,
		Path:      path,
		Component: component,
		Icon:      icon,
		Sort:      sort,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
