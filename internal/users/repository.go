package users

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

const userColumns = `id, username, email, password_hash, real_name, avatar, phone, status, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for user aggregates.
// Aggregate writes go through the consistency guard: the backend has been
// observed delaying read-after-write visibility on the shared pool.
type Repository struct {
	pool  *pgxpool.Pool
	guard *db.Guard
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, guard *db.Guard) *Repository {
	return &Repository{pool: pool, guard: guard}
}

// FindAggregate loads a user with its role assignments.
func (r *Repository) FindAggregate(ctx context.Context, id string) (*Aggregate, error) {
	user, err := r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agg := &Aggregate{User: *user}
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, err
		}
		agg.RoleIDs = append(agg.RoleIDs, roleID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agg, nil
}

// CreateAggregate persists a new user and its role edges in one
// transaction. The root insert precedes all edge inserts, and each write is
// confirmed visible before the next proceeds.
func (r *Repository) CreateAggregate(ctx context.Context, agg *Aggregate) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		u := agg.User
		if err := r.guard.Write(ctx,
			func() error {
				_, err := tx.Exec(ctx, `
					INSERT INTO users (`+userColumns+`)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
					u.ID, u.Username, u.Email, u.PasswordHash,
					nullable(u.RealName), nullable(u.Avatar), nullable(u.Phone),
					string(u.Status), u.CreatedAt, u.UpdatedAt)
				return err
			},
			userProbe(tx, u.ID),
		); err != nil {
			return err
		}
		return r.insertRoleEdges(ctx, tx, u.ID, agg.RoleIDs)
	})
}

// SaveAggregate persists the complete aggregate: the root record is
// updated, existing edges are deleted and the current edge set re-inserted.
// Concurrent saves of the same aggregate interleave last-writer-wins; there
// is no version check.
func (r *Repository) SaveAggregate(ctx context.Context, agg *Aggregate) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		u := agg.User
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET username = $2, email = $3, password_hash = $4, real_name = $5,
			    avatar = $6, phone = $7, status = $8, updated_at = $9
			WHERE id = $1`,
			u.ID, u.Username, u.Email, u.PasswordHash,
			nullable(u.RealName), nullable(u.Avatar), nullable(u.Phone),
			string(u.Status), u.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_roles WHERE user_id = $1`, u.ID); err != nil {
			return err
		}
		return r.insertRoleEdges(ctx, tx, u.ID, agg.RoleIDs)
	})
}

func (r *Repository) insertRoleEdges(ctx context.Context, tx pgx.Tx, userID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		roleID := roleID
		if err := r.guard.Write(ctx,
			func() error {
				_, err := tx.Exec(ctx, `
					INSERT INTO user_roles (id, user_id, role_id, created_at)
					VALUES ($1, $2, $3, $4)`,
					uuid.NewString(), userID, roleID, time.Now().UTC())
				return err
			},
			func(ctx context.Context) (bool, error) {
				var exists bool
				err := tx.QueryRow(ctx, `
					SELECT EXISTS (
						SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2
					)`, userID, roleID).Scan(&exists)
				return exists, err
			},
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user and its role edges.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByUsername fetches a user by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// Find fetches a user by ID.
func (r *Repository) Find(ctx context.Context, id string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// List returns users ordered by creation time.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		var u User
		var realName, avatar, phone *string
		var status string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&realName, &avatar, &phone, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.RealName = deref(realName)
		u.Avatar = deref(avatar)
		u.Phone = deref(phone)
		u.Status = Status(status)
		result = append(result, u)
	}
	return result, rows.Err()
}

// ExistsByUsername reports whether a username is taken.
func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

// ExistsByEmail reports whether an email is taken.
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *Repository) scanUser(row pgx.Row) (*User, error) {
	var u User
	var realName, avatar, phone *string
	var status string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&realName, &avatar, &phone, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	u.RealName = deref(realName)
	u.Avatar = deref(avatar)
	u.Phone = deref(phone)
	u.Status = Status(status)
	return &u, nil
}

func userProbe(tx pgx.Tx, id string) db.Probe {
	return func(ctx context.Context) (bool, error) {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
		return exists, err
	}
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
