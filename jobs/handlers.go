package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SessionSweeper removes expired sessions, returning the number reaped.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// PostPurger permanently deletes trashed posts older than the retention
// window, returning the number removed.
type PostPurger interface {
	PurgeTrashed(ctx context.Context, retention time.Duration) (int64, error)
}

// NewSessionsSweepHandler builds the handler for TaskSessionsSweep.
func NewSessionsSweepHandler(sweeper SessionSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		reaped, err := sweeper.DeleteExpired(ctx)
		if err != nil {
			logger.Error("sessions sweep", slog.Any("error", err))
			return err
		}
		logger.Info("sessions sweep", slog.Int64("reaped", reaped))
		return nil
	}
}

// NewPostsPurgeHandler builds the handler for TaskPostsPurge. A zero or
// missing retention falls back to the configured default.
func NewPostsPurgeHandler(purger PostPurger, defaultRetention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PostsPurgePayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		retention := defaultRetention
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
		purged, err := purger.PurgeTrashed(ctx, retention)
		if err != nil {
			logger.Error("posts purge", slog.Any("error", err))
			return err
		}
		logger.Info("posts purge", slog.Int64("purged", purged), slog.Duration("retention", retention))
		return nil
	}
}
