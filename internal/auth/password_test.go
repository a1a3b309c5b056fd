package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

func TestHasherHashAndVerify(t *testing.T) {
	h := Hasher{}

	hashed, err := h.Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hashed)

	require.True(t, h.Verify(hashed, "s3cret"))
	require.False(t, h.Verify(hashed, "wrong"))
}

func TestHasherSaltsIndependently(t *testing.T) {
	h := Hasher{}

	first, err := h.Hash("same-secret")
	require.NoError(t, err)
	second, err := h.Hash("same-secret")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, h.Verify(first, "same-secret"))
	require.True(t, h.Verify(second, "same-secret"))
}

func TestHasherRejectsEmptySecret(t *testing.T) {
	h := Hasher{}

	_, err := h.Hash("")
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestHasherVerifyMalformedHash(t *testing.T) {
	h := Hasher{}

	require.False(t, h.Verify("not-a-bcrypt-hash", "anything"))
	require.False(t, h.Verify("", "anything"))
}
