package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/DevDeskHQ/devdesk_api/internal/cache"
	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/ws"
)

// ActivityService records audit entries and serves the activity feed. Every
// successful write is pushed to the websocket notifier; push failures never
// surface to the caller.
type ActivityService struct {
	repo     *repository.ActivityRepository
	cache    *cache.ActivityCache
	notifier ws.ActivityNotifier
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo *repository.ActivityRepository, activityCache *cache.ActivityCache, notifier ws.ActivityNotifier) *ActivityService {
	if notifier == nil {
		notifier = &ws.NopNotifier{}
	}
	return &ActivityService{repo: repo, cache: activityCache, notifier: notifier}
}

// Record inserts one activity entry, invalidates the recent-page cache, and
// broadcasts the entry to connected dashboards.
func (s *ActivityService) Record(ctx context.Context, userID *int, agent, action, details, level string) (*models.ActivityLog, error) {
	if !models.IsValidLevel(level) {
		level = models.LevelInfo
	}
	if agent == "" {
		agent = "system"
	}

	entry := &models.ActivityLog{
		UserID:  userID,
		Agent:   agent,
		Action:  action,
		Details: details,
		Level:   level,
	}
	if err := s.repo.Create(entry); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.notifier.NotifyActivity(entry)
	return entry, nil
}

// RecordAsync records an entry from code paths where the write is incidental
// (audit trail of another operation) and its failure should only be logged.
func (s *ActivityService) RecordAsync(ctx context.Context, userID *int, agent, action, details, level string) {
	if _, err := s.Record(ctx, userID, agent, action, details, level); err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to record activity")
	}
}

// List returns one page of activity entries plus the filtered total. The
// unfiltered first page is served from Redis when possible.
func (s *ActivityService) List(ctx context.Context, page, limit int, filter repository.ListFilter) ([]*models.ActivityLog, int, error) {
	firstPlainPage := page == 1 && filter == (repository.ListFilter{}) && s.cache != nil

	if firstPlainPage {
		if entries, ok := s.cache.GetRecent(ctx); ok && len(entries) >= limit {
			total, err := s.repo.Count(filter)
			if err != nil {
				return nil, 0, err
			}
			return entries[:limit], total, nil
		}
	}

	entries, err := s.repo.List(page, limit, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(filter)
	if err != nil {
		return nil, 0, err
	}

	if firstPlainPage {
		s.cache.SetRecent(ctx, entries)
	}
	return entries, total, nil
}
