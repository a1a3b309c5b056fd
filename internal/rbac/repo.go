package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anchorage-labs/anchorage/internal/permissions"
)

// Store defines the edge and record lookups permission resolution needs.
// Each method distinguishes "nothing found" (empty result) from an error.
type Store interface {
	RoleIDsForUser(ctx context.Context, userID string) ([]string, error)
	PermissionIDsForRoles(ctx context.Context, roleIDs []string) ([]string, error)
	PermissionsByIDs(ctx context.Context, ids []string) ([]permissions.Permission, error)
}

// PGStore implements Store with read-only queries over the assignment and
// grant edge tables.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PGStore.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// RoleIDsForUser returns role identifiers assigned to the user.
func (s *PGStore) RoleIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PermissionIDsForRoles returns distinct permission identifiers granted to
// any of the given roles.
func (s *PGStore) PermissionIDsForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT permission_id FROM role_permissions WHERE role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PermissionsByIDs returns full permission records for the identifiers,
// excluding deleted entries.
func (s *PGStore) PermissionsByIDs(ctx context.Context, ids []string) ([]permissions.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, code, kind, parent_id, path, component, icon, sort, status, created_at, updated_at
		FROM permissions
		WHERE id = ANY($1) AND status <> 'deleted'`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []permissions.Permission
	for rows.Next() {
		var p permissions.Permission
		var code, parentID, path, component, icon *string
		var kind, status string
		if err := rows.Scan(&p.ID, &p.Name, &code, &kind, &parentID, &path,
			&component, &icon, &p.Sort, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Code = strDeref(code)
		p.Kind = permissions.Kind(kind)
		p.ParentID = strDeref(parentID)
		p.Path = strDeref(path)
		p.Component = strDeref(component)
		p.Icon = strDeref(icon)
		p.Status = permissions.Status(status)
		result = append(result, p)
	}
	return result, rows.Err()
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Store = (*PGStore)(nil)
