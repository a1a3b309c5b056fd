package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

type memoryBlacklist struct {
	entries map[string]time.Time
	failOn  string
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{entries: make(map[string]time.Time)}
}

func (m *memoryBlacklist) Add(ctx context.Context, tokenID, principalID string, expiresAt time.Time) error {
	if m.failOn == "add" {
		return errors.New("storage down")
	}
	m.entries[tokenID] = expiresAt
	return nil
}

func (m *memoryBlacklist) Exists(ctx context.Context, tokenID string) (bool, error) {
	if m.failOn == "exists" {
		return false, errors.New("storage down")
	}
	_, ok := m.entries[tokenID]
	return ok, nil
}

func newTestManager(t *testing.T, blacklist Blacklist) *TokenManager {
	t.Helper()
	return NewTokenManager("unit-test-secret", time.Hour, blacklist, nil)
}

func TestIssueAndValidate(t *testing.T) {
	bl := newMemoryBlacklist()
	m := newTestManager(t, bl)

	token, err := m.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.PrincipalID)
	require.Greater(t, claims.ExpiresAt, time.Now().Unix())
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t, newMemoryBlacklist())

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = m.Validate(context.Background(), tampered)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	bl := newMemoryBlacklist()
	issuer := NewTokenManager("issuer-secret", time.Hour, bl, nil)
	verifier := NewTokenManager("other-secret", time.Hour, bl, nil)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = verifier.Validate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	bl := newMemoryBlacklist()
	m := newTestManager(t, bl)

	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, err := m.Issue("user-1")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRevokeBlocksValidation(t *testing.T) {
	bl := newMemoryBlacklist()
	m := newTestManager(t, bl)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	_, err = m.Validate(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), token))

	_, err = m.Validate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRevokeIsIdempotent(t *testing.T) {
	bl := newMemoryBlacklist()
	m := newTestManager(t, bl)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), token))
	require.NoError(t, m.Revoke(context.Background(), token))

	_, err = m.Validate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	bl := newMemoryBlacklist()
	m := newTestManager(t, bl)

	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, err := m.Issue("user-1")
	require.NoError(t, err)

	m.now = time.Now
	require.NoError(t, m.Revoke(context.Background(), token))
	require.Empty(t, bl.entries)
}

func TestRevokeRejectsForgedToken(t *testing.T) {
	bl := newMemoryBlacklist()
	m := newTestManager(t, bl)

	forger := NewTokenManager("other-secret", time.Hour, newMemoryBlacklist(), nil)
	token, err := forger.Issue("user-1")
	require.NoError(t, err)

	err = m.Revoke(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Empty(t, bl.entries)
}

func TestValidateNormalizesStorageFailure(t *testing.T) {
	bl := newMemoryBlacklist()
	bl.failOn = "exists"
	m := newTestManager(t, bl)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	_, err = m.Validate(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenIDIsStable(t *testing.T) {
	require.Equal(t, TokenID("abc"), TokenID("abc"))
	require.NotEqual(t, TokenID("abc"), TokenID("abd"))
}
