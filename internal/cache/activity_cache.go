package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

const (
	recentActivityKey = "activity:recent"
	recentActivityTTL = 30 * time.Second
)

// ActivityCache keeps the most recent activity page in Redis so dashboard
// loads do not hit Postgres on every refresh. It is strictly best-effort:
// every error degrades to a cache miss.
type ActivityCache struct {
	redis *RedisClient
}

// NewActivityCache creates a new ActivityCache.
func NewActivityCache(redis *RedisClient) *ActivityCache {
	return &ActivityCache{redis: redis}
}

// GetRecent returns the cached first page of activity entries, or ok=false.
func (c *ActivityCache) GetRecent(ctx context.Context) ([]*models.ActivityLog, bool) {
	raw, err := c.redis.Get(ctx, recentActivityKey)
	if err != nil {
		return nil, false
	}
	var entries []*models.ActivityLog
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// SetRecent stores the first page of activity entries.
func (c *ActivityCache) SetRecent(ctx context.Context, entries []*models.ActivityLog) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, recentActivityKey, string(data), recentActivityTTL)
}

// Invalidate drops the cached page. Called on every activity write.
func (c *ActivityCache) Invalidate(ctx context.Context) {
	_ = c.redis.Delete(ctx, recentActivityKey)
}
