package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

const (
	// DefaultGuardAttempts bounds read-back attempts per written record.
	DefaultGuardAttempts = 3
	// DefaultGuardDelay is the pause between read-back attempts.
	DefaultGuardDelay = 100 * time.Millisecond
)

// Probe reports whether the record written by the preceding statement is
// visible to a read on the same logical connection.
type Probe func(ctx context.Context) (bool, error)

// Guard implements the write-then-verify-with-bounded-retry protocol for
// storage backends whose writes are not immediately visible to subsequent
// reads. Every aggregate writer shares one retry policy through it.
type Guard struct {
	attempts int
	delay    time.Duration
	logger   *slog.Logger
	onRetry  func()
}

// NewGuard constructs a Guard. Non-positive attempts or delay fall back to
// the defaults.
func NewGuard(attempts int, delay time.Duration, logger *slog.Logger) *Guard {
	if attempts <= 0 {
		attempts = DefaultGuardAttempts
	}
	if delay <= 0 {
		delay = DefaultGuardDelay
	}
	return &Guard{attempts: attempts, delay: delay, logger: logger}
}

// OnRetry installs a hook invoked once per repeated probe attempt. Set it
// during wiring, before the Guard is shared.
func (g *Guard) OnRetry(hook func()) {
	g.onRetry = hook
}

// Write executes one write statement and confirms its visibility.
//
// A write that reports failure is probed anyway before the failure is
// believed: the backend has been observed returning spurious errors for
// rows that were in fact committed. A write that reports success must
// still become visible within the attempt budget, otherwise the operation
// fails with shared.ErrUnconfirmedWrite and the caller must treat the
// enclosing transaction as failed.
func (g *Guard) Write(ctx context.Context, exec func() error, probe Probe) error {
	writeErr := exec()

	visible, probeErr := g.confirm(ctx, probe)
	if probeErr != nil {
		if writeErr != nil {
			return fmt.Errorf("platform/db: write failed: %w", writeErr)
		}
		return probeErr
	}
	if visible {
		if writeErr != nil && g.logger != nil {
			g.logger.Warn("write reported failure but record is visible",
				slog.Any("error", writeErr))
		}
		return nil
	}
	if writeErr != nil {
		return fmt.Errorf("platform/db: write failed: %w", writeErr)
	}
	return shared.ErrUnconfirmedWrite
}

// confirm probes up to the attempt budget, pausing between attempts. The
// budget is counted in attempts, not wall-clock time; callers needing an
// overall deadline bound the context themselves.
func (g *Guard) confirm(ctx context.Context, probe Probe) (bool, error) {
	for attempt := 0; attempt < g.attempts; attempt++ {
		if attempt > 0 {
			if g.onRetry != nil {
				g.onRetry()
			}
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(g.delay):
			}
		}
		visible, err := probe(ctx)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}
