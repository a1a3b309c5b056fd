package db

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

func testGuard() *Guard {
	return NewGuard(3, time.Millisecond, slog.Default())
}

func TestWriteVisibleOnFirstProbe(t *testing.T) {
	g := testGuard()
	probes := 0
	err := g.Write(context.Background(),
		func() error { return nil },
		func(ctx context.Context) (bool, error) {
			probes++
			return true, nil
		})
	require.NoError(t, err)
	require.Equal(t, 1, probes)
}

func TestWriteAbsorbsDelayedVisibility(t *testing.T) {
	g := testGuard()
	probes := 0
	err := g.Write(context.Background(),
		func() error { return nil },
		func(ctx context.Context) (bool, error) {
			probes++
			return probes >= 3, nil
		})
	require.NoError(t, err)
	require.Equal(t, 3, probes)
}

func TestWriteNeverVisible(t *testing.T) {
	g := testGuard()
	probes := 0
	err := g.Write(context.Background(),
		func() error { return nil },
		func(ctx context.Context) (bool, error) {
			probes++
			return false, nil
		})
	require.ErrorIs(t, err, shared.ErrUnconfirmedWrite)
	require.Equal(t, 3, probes)
}

func TestWriteInvokesRetryHook(t *testing.T) {
	g := testGuard()
	retries := 0
	g.OnRetry(func() { retries++ })

	probes := 0
	err := g.Write(context.Background(),
		func() error { return nil },
		func(ctx context.Context) (bool, error) {
			probes++
			return probes >= 3, nil
		})
	require.NoError(t, err)
	require.Equal(t, 2, retries)
}

func TestWriteSpuriousFailureButVisible(t *testing.T) {
	g := testGuard()
	err := g.Write(context.Background(),
		func() error { return errors.New("backend claims failure") },
		func(ctx context.Context) (bool, error) { return true, nil })
	require.NoError(t, err)
}

func TestWriteRealFailure(t *testing.T) {
	g := testGuard()
	writeErr := errors.New("insert rejected")
	err := g.Write(context.Background(),
		func() error { return writeErr },
		func(ctx context.Context) (bool, error) { return false, nil })
	require.ErrorIs(t, err, writeErr)
}

func TestWriteProbeError(t *testing.T) {
	g := testGuard()
	probeErr := errors.New("probe query failed")
	err := g.Write(context.Background(),
		func() error { return nil },
		func(ctx context.Context) (bool, error) { return false, probeErr })
	require.ErrorIs(t, err, probeErr)
}

func TestWriteContextCancelledBetweenProbes(t *testing.T) {
	g := NewGuard(3, 50*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	err := g.Write(ctx,
		func() error { return nil },
		func(ctx context.Context) (bool, error) {
			cancel()
			return false, nil
		})
	require.ErrorIs(t, err, context.Canceled)
}
