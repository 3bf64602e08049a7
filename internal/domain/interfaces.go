package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// EntityType names a per-user document family in the Persistence Gateway.
type EntityType string

const (
	EntityProgress     EntityType = "progress"
	EntityPet          EntityType = "pet"
	EntityAchievements EntityType = "achievements"
	EntityChallenges   EntityType = "challenges"
	EntityFoodLogs     EntityType = "food_logs"
)

// SingletonKey is the key used for single-document entity types.
const SingletonKey = "current"

// Gateway is the per-user document store the engine reads on load and
// writes on mutate. Documents are opaque JSON bytes. Writes are
// last-write-wins.
type Gateway interface {
	// Load returns the document, or found=false if none is stored.
	Load(ctx context.Context, userID string, entity EntityType, key string) (doc []byte, found bool, err error)

	// Save upserts a document.
	Save(ctx context.Context, userID string, entity EntityType, key string, doc []byte) error

	// List returns every document of an entity type in insertion order.
	List(ctx context.Context, userID string, entity EntityType) ([][]byte, error)
}

// LeaderboardStore persists public ranking rows.
type LeaderboardStore interface {
	UpsertLeaderboard(ctx context.Context, entry LeaderboardEntry) error
	TopLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// NotificationStore persists the activity feed.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) (int64, error)
	NotificationCountSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListPendingNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationShown(ctx context.Context, userID string, id int64) error
}
