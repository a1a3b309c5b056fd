package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

// Blacklist persists revocation records for tokens that must fail
// validation before their embedded expiry passes.
type Blacklist interface {
	Add(ctx context.Context, tokenID, principalID string, expiresAt time.Time) error
	Exists(ctx context.Context, tokenID string) (bool, error)
}

// TokenManager issues and checks signed, time-bounded tokens. A token's
// logical lifetime is Issued -> Valid -> Expired or Revoked; both terminal
// states are permanent.
//
// Validity is derived state: the pure signature/expiry check combined with
// a revocation lookup against the blacklist. The two stages are kept
// separate so each is independently testable.
type TokenManager struct {
	secret    []byte
	lifetime  time.Duration
	blacklist Blacklist
	logger    *slog.Logger
	now       func() time.Time
}

// NewTokenManager constructs a TokenManager. Secret and lifetime are
// injected configuration.
func NewTokenManager(secret string, lifetime time.Duration, blacklist Blacklist, logger *slog.Logger) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		lifetime:  lifetime,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

// TokenID derives the blacklist key for a token. Raw tokens are never
// persisted; the fingerprint is enough to match on later validations.
func TokenID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Issue creates a signed token carrying the principal identity and an
// expiry of now plus the configured lifetime. The blacklist is never
// consulted on issue.
func (m *TokenManager) Issue(principalID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   principalID,
		ExpiresAt: jwt.NewNumericDate(m.now().Add(m.lifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", shared.ErrEncoding, err)
	}
	return signed, nil
}

// Validate checks signature and expiry first, then revocation. An invalid
// signature is never treated as evidence of identity, not even to perform
// the blacklist lookup. Storage failures during the lookup normalize to
// the generic authentication error.
func (m *TokenManager) Validate(ctx context.Context, token string) (shared.Claims, error) {
	claims, err := m.decode(token, true)
	if err != nil {
		return shared.Claims{}, shared.ErrInvalidCredentials
	}
	revoked, err := m.blacklist.Exists(ctx, TokenID(token))
	if err != nil {
		if m.logger != nil {
			m.logger.Error("blacklist lookup", slog.Any("error", err))
		}
		return shared.Claims{}, shared.ErrInvalidCredentials
	}
	if revoked {
		return shared.Claims{}, shared.ErrInvalidCredentials
	}
	return claims, nil
}

// Revoke records the token in the blacklist. The token is decoded with
// signature and structure checks only; the blacklist is bypassed to avoid
// a self-referential lookup. Revoking an already-expired token is a no-op
// success, and revoking twice leaves the same end state.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.decode(token, false)
	if err != nil {
		return shared.ErrInvalidCredentials
	}
	expiresAt := time.Unix(claims.ExpiresAt, 0)
	if !expiresAt.After(m.now()) {
		return nil
	}
	if err := m.blacklist.Add(ctx, TokenID(token), claims.PrincipalID, expiresAt); err != nil {
		if m.logger != nil {
			m.logger.Error("blacklist add", slog.Any("error", err))
		}
		return shared.ErrInvalidCredentials
	}
	return nil
}

// Identity decodes the principal identity without a blacklist lookup. Only
// for callers that already validated the token in the same request.
func (m *TokenManager) Identity(token string) (string, error) {
	claims, err := m.decode(token, true)
	if err != nil {
		return "", shared.ErrInvalidCredentials
	}
	return claims.PrincipalID, nil
}

// decode parses and verifies the signature. With checkExpiry false the
// embedded expiry is returned but not enforced.
func (m *TokenManager) decode(token string, checkExpiry bool) (shared.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return shared.Claims{}, shared.ErrInvalidCredentials
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.ExpiresAt == nil {
		return shared.Claims{}, shared.ErrInvalidCredentials
	}
	return shared.Claims{PrincipalID: claims.Subject, ExpiresAt: claims.ExpiresAt.Unix()}, nil
}
