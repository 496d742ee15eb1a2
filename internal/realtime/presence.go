package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const presenceKeyPrefix = "presence:staff:"

// PresenceTracker mirrors session-registry online transitions into Redis so
// other parts of the application can show who is online. Presence is
// advisory state: failures are logged and never surfaced.
type PresenceTracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewPresenceTracker builds a tracker with the given key TTL.
func NewPresenceTracker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PresenceTracker {
	return &PresenceTracker{client: client, ttl: ttl, logger: logger}
}

// Hooks returns registry hooks that mark staff online and offline.
func (t *PresenceTracker) Hooks() PresenceHooks {
	if t == nil || t.client == nil {
		return PresenceHooks{}
	}
	return PresenceHooks{
		OnOnline:  func(staffID string) { go t.markOnline(staffID) },
		OnOffline: func(staffID string) { go t.markOffline(staffID) },
	}
}

// IsOnline reports whether the staff member has a live session anywhere.
func (t *PresenceTracker) IsOnline(ctx context.Context, staffID string) bool {
	if t == nil || t.client == nil {
		return false
	}
	n, err := t.client.Exists(ctx, presenceKeyPrefix+staffID).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (t *PresenceTracker) markOnline(staffID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.client.Set(ctx, presenceKeyPrefix+staffID, "1", t.ttl).Err(); err != nil {
		t.logger.Warn("presence set failed", zap.String("staff_id", staffID), zap.Error(err))
	}
}

func (t *PresenceTracker) markOffline(staffID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.client.Del(ctx, presenceKeyPrefix+staffID).Err(); err != nil {
		t.logger.Warn("presence clear failed", zap.String("staff_id", staffID), zap.Error(err))
	}
}
