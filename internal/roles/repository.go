package roles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anchorage-labs/anchorage/internal/platform/db"
	"github.com/anchorage-labs/anchorage/internal/shared"
)

const roleColumns = `id, name, code, description, status, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for role aggregates,
// sharing the consistency guard used by all aggregate writers.
type Repository struct {
	pool  *pgxpool.Pool
	guard *db.Guard
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, guard *db.Guard) *Repository {
	return &Repository{pool: pool, guard: guard}
}

// FindAggregate loads a role with its permission grants.
func (r *Repository) FindAggregate(ctx context.Context, id string) (*Aggregate, error) {
	role, err := r.scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agg := &Aggregate{Role: *role}
	for rows.Next() {
		var permID string
		if err := rows.Scan(&permID); err != nil {
			return nil, err
		}
		agg.PermissionIDs = append(agg.PermissionIDs, permID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agg, nil
}

// CreateAggregate persists a new role and its grants: root insert first,
// each write confirmed visible before the next.
func (r *Repository) CreateAggregate(ctx context.Context, agg *Aggregate) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		role := agg.Role
		if err := r.guard.Write(ctx,
			func() error {
				_, err := tx.Exec(ctx, `
					INSERT INTO roles (`+roleColumns+`)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					role.ID, role.Name, role.Code, role.Description,
					string(role.Status), role.CreatedAt, role.UpdatedAt)
				return err
			},
			func(ctx context.Context) (bool, error) {
				var exists bool
				err := tx.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, role.ID).Scan(&exists)
				return exists, err
			},
		); err != nil {
			return err
		}
		return r.insertGrantEdges(ctx, tx, role.ID, agg.PermissionIDs)
	})
}

// SaveAggregate updates the root record, deletes existing grants and
// re-inserts the current set. Last-writer-wins across concurrent saves.
func (r *Repository) SaveAggregate(ctx context.Context, agg *Aggregate) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		role := agg.Role
		tag, err := tx.Exec(ctx, `
			UPDATE roles
			SET name = $2, code = $3, description = $4, status = $5, updated_at = $6
			WHERE id = $1`,
			role.ID, role.Name, role.Code, role.Description,
			string(role.Status), role.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return err
		}
		return r.insertGrantEdges(ctx, tx, role.ID, agg.PermissionIDs)
	})
}

func (r *Repository) insertGrantEdges(ctx context.Context, tx pgx.Tx, roleID string, permissionIDs []string) error {
	for _, permID := range permissionIDs {
		permID := permID
		if err := r.guard.Write(ctx,
			func() error {
				_, err := tx.Exec(ctx, `
					INSERT INTO role_permissions (id, role_id, permission_id, created_at)
					VALUES ($1, $2, $3, $4)`,
					uuid.NewString(), roleID, permID, time.Now().UTC())
				return err
			},
			func(ctx context.Context) (bool, error) {
				var exists bool
				err := tx.QueryRow(ctx, `
					SELECT EXISTS (
						SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_id = $2
					)`, roleID, permID).Scan(&exists)
				return exists, err
			},
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a role and its grants.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Find fetches a role by ID.
func (r *Repository) Find(ctx context.Context, id string) (*Role, error) {
	return r.scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// FindByIDs fetches roles for a set of identifiers.
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// Exists reports whether a role is present.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ExistsByCode reports whether a role code is taken.
func (r *Repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

// List returns all roles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

// CountAssignments counts users currently holding the role.
func (r *Repository) CountAssignments(ctx context.Context, roleID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM user_roles WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

func (r *Repository) scanRole(row pgx.Row) (*Role, error) {
	var role Role
	var status string
	err := row.Scan(&role.ID, &role.Name, &role.Code, &role.Description,
		&status, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	role.Status = Status(status)
	return &role, nil
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	var result []Role
	for rows.Next() {
		var role Role
		var status string
		if err := rows.Scan(&role.ID, &role.Name, &role.Code, &role.Description,
			&status, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Status = Status(status)
		result = append(result, role)
	}
	return result, rows.Err()
}
