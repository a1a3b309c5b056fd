package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGBlacklist implements Blacklist on PostgreSQL.
type PGBlacklist struct {
	pool *pgxpool.Pool
}

// NewBlacklist constructs a PostgreSQL-backed blacklist.
func NewBlacklist(pool *pgxpool.Pool) *PGBlacklist {
	return &PGBlacklist{pool: pool}
}

// Add records a revocation. Inserting the same token twice is a no-op, so
// revocation stays idempotent at the storage layer.
func (b *PGBlacklist) Add(ctx context.Context, tokenID, principalID string, expiresAt time.Time) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO token_blacklist (id, jti, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (jti) DO NOTHING`,
		uuid.NewString(), tokenID, principalID, expiresAt.UTC())
	return err
}

// Exists reports whether a revocation record is present for the token.
func (b *PGBlacklist) Exists(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := b.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`, tokenID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteExpired removes records whose expiry has passed. Tokens already
// fail validation once their embedded expiry passes, so this is storage
// hygiene only; records are never removed before expiry.
func (b *PGBlacklist) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx,
		`DELETE FROM token_blacklist WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Blacklist = (*PGBlacklist)(nil)
