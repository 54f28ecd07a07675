package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DevDeskHQ/devdesk_api/internal/repository"
)

// RetentionWorker prunes activity-log entries older than the configured
// retention period so the audit table does not grow without bound.
type RetentionWorker struct {
	activityRepo *repository.ActivityRepository
	retention    time.Duration
	interval     time.Duration
}

// NewRetentionWorker constructs a RetentionWorker.
func NewRetentionWorker(activityRepo *repository.ActivityRepository, retention, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{
		activityRepo: activityRepo,
		retention:    retention,
		interval:     interval,
	}
}

// Start begins the periodic pruning loop until context is canceled.
func (w *RetentionWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Dur("retention", w.retention).Msg("Starting activity retention worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run()
		case <-ctx.Done():
			log.Info().Msg("Activity retention worker stopped")
			return
		}
	}
}

func (w *RetentionWorker) run() {
	cutoff := time.Now().Add(-w.retention)
	pruned, err := w.activityRepo.DeleteOlderThan(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune activity logs")
		return
	}
	if pruned > 0 {
		log.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("Pruned old activity logs")
	}
}
