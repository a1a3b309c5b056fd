package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// BlacklistSweeper deletes revocation records whose expiry has passed.
// Expired tokens fail validation on their own; the records only need to go
// away to keep the table bounded.
type BlacklistSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewBlacklistSweepHandler builds the handler for TaskBlacklistSweep tasks.
func NewBlacklistSweepHandler(sweeper BlacklistSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BlacklistSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		cutoff := payload.Cutoff
		if cutoff.IsZero() {
			cutoff = time.Now().UTC()
		}
		removed, err := sweeper.DeleteExpired(ctx, cutoff)
		if err != nil {
			logger.Error("blacklist sweep", slog.Any("error", err))
			return err
		}
		if removed > 0 {
			logger.Info("blacklist sweep", slog.Int64("removed", removed))
		}
		return nil
	}
}
