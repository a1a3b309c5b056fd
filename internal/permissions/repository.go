package permissions

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anchorage-labs/anchorage/internal/platform/db"
	"github.com/anchorage-labs/anchorage/internal/shared"
)

const permColumns = `id, name, code, kind, parent_id, path, component, icon, sort, status, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for the permission
// catalog. Creates go through the consistency guard like every other
// aggregate write.
type Repository struct {
	pool  *pgxpool.Pool
	guard *db.Guard
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, guard *db.Guard) *Repository {
	return &Repository{pool: pool, guard: guard}
}

// Create inserts a permission and confirms its visibility.
func (r *Repository) Create(ctx context.Context, p Permission) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return r.guard.Write(ctx,
			func() error {
				_, err := tx.Exec(ctx, `
					INSERT INTO permissions (`+permColumns+`)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
					p.ID, p.Name, nullable(p.Code), string(p.Kind), nullable(p.ParentID),
					nullable(p.Path), nullable(p.Component), nullable(p.Icon),
					p.Sort, string(p.Status), p.CreatedAt, p.UpdatedAt)
				return err
			},
			func(ctx context.Context) (bool, error) {
				var exists bool
				err := tx.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM permissions WHERE id = $1)`, p.ID).Scan(&exists)
				return exists, err
			},
		)
	})
}

// Save updates an existing permission record.
func (r *Repository) Save(ctx context.Context, p Permission) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions
		SET name = $2, code = $3, kind = $4, parent_id = $5, path = $6,
		    component = $7, icon = $8, sort = $9, status = $10, updated_at = $11
		WHERE id = $1`,
		p.ID, p.Name, nullable(p.Code), string(p.Kind), nullable(p.ParentID),
		nullable(p.Path), nullable(p.Component), nullable(p.Icon),
		p.Sort, string(p.Status), p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a permission record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Find fetches a permission by ID.
func (r *Repository) Find(ctx context.Context, id string) (*Permission, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+permColumns+` FROM permissions WHERE id = $1`, id))
}

// FindByCode fetches a permission by its unique code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Permission, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+permColumns+` FROM permissions WHERE code = $1`, code))
}

// CountChildren counts permissions referencing the given parent.
func (r *Repository) CountChildren(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM permissions WHERE parent_id = $1`, parentID).Scan(&count)
	return count, err
}

// ListFilter narrows List output. Zero values leave a dimension unfiltered;
// deleted records are excluded unless IncludeDeleted is set.
type ListFilter struct {
	Kind           Kind
	Status         Status
	ParentID       string
	IncludeDeleted bool
}

// List returns catalog entries matching the filter, ordered by sort key.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Permission, error) {
	query := `SELECT ` + permColumns + ` FROM permissions WHERE 1=1`
	args := []any{}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += ` AND kind = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	} else if !filter.IncludeDeleted {
		args = append(args, string(StatusDeleted))
		query += ` AND status <> $` + strconv.Itoa(len(args))
	}
	if filter.ParentID != "" {
		args = append(args, filter.ParentID)
		query += ` AND parent_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY sort, name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Permission
	for rows.Next() {
		p, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *Repository) scan(row pgx.Row) (*Permission, error) {
	p, err := scanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanRow(row pgx.Row) (*Permission, error) {
	var p Permission
	var code, parentID, path, component, icon *string
	var kind, status string
	err := row.Scan(&p.ID, &p.Name, &code, &kind, &parentID, &path,
		&component, &icon, &p.Sort, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Code = deref(code)
	p.Kind = Kind(kind)
	p.ParentID = deref(parentID)
	p.Path = deref(path)
	p.Component = deref(component)
	p.Icon = deref(icon)
	p.Status = Status(status)
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
