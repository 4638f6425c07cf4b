package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/task-sync/internal/events"
)

// StartEventLogWorker subscribes to the bus and writes an audit line for every
// change event until ctx is done or the bus closes. The returned channel is
// closed when the worker exits.
func StartEventLogWorker(ctx context.Context, bus *events.Bus, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	logger = logger.Named("event_log")

	go func() {
		defer close(done)
		defer sub.Close()
		for {
			event, missed, err := sub.Next(ctx)
			if err != nil {
				if !errors.Is(err, events.ErrClosed) && !errors.Is(err, context.Canceled) {
					logger.Warn("event log worker stopped", zap.Error(err))
				}
				return
			}
			if missed > 0 {
				logger.Warn("event log lagged", zap.Uint64("missed", missed))
			}
			fields := []zap.Field{
				zap.String("type", string(event.Type)),
				zap.Int64("item_id", event.ItemID),
			}
			if event.Item != nil {
				fields = append(fields, zap.Int64("owner_id", event.Item.OwnerID))
			}
			logger.Info("change event", fields...)
		}
	}()
	return done
}
