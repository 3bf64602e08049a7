package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/chompy-labs/chompy/internal/domain"
)

// FeedService manages the gamification activity feed.
// Only achievement unlocks, level-ups and challenge completions are posted.
// Each user gets at most MaxPerDay items per calendar day; excess is
// suppressed silently.
type FeedService struct {
	store  domain.NotificationStore
	policy domain.NotificationPolicy
	clock  Clock
}

// NewFeedService creates a feed service with default policy.
func NewFeedService(store domain.NotificationStore, clock Clock) *FeedService {
	return NewFeedServiceWithPolicy(store, domain.DefaultNotificationPolicy(), clock)
}

// NewFeedServiceWithPolicy creates a feed service with custom policy.
func NewFeedServiceWithPolicy(store domain.NotificationStore, policy domain.NotificationPolicy, clock Clock) *FeedService {
	if clock == nil {
		clock = SystemClock(nil)
	}
	return &FeedService{store: store, policy: policy, clock: clock}
}

// Notify creates a notification if policy allows it.
// Returns the notification ID (0 if suppressed by policy) and any error.
func (f *FeedService) Notify(ctx context.Context, n domain.Notification) (int64, error) {
	if n.UserID == "" {
		return 0, domain.ErrEmptyUserID
	}

	count, err := f.TodayCount(ctx, n.UserID)
	if err != nil {
		return 0, fmt.Errorf("count today: %w", err)
	}
	if count >= f.policy.MaxPerDay {
		return 0, nil // Suppressed — daily limit reached
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = f.clock().UTC()
	}
	n.Shown = false

	id, err := f.store.InsertNotification(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// Pending returns unshown notifications, oldest first.
func (f *FeedService) Pending(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return f.store.ListPendingNotifications(ctx, userID, limit)
}

// MarkShown marks a notification as shown.
func (f *FeedService) MarkShown(ctx context.Context, userID string, id int64) error {
	return f.store.MarkNotificationShown(ctx, userID, id)
}

// TodayCount returns how many notifications userID received since local midnight.
func (f *FeedService) TodayCount(ctx context.Context, userID string) (int, error) {
	now := f.clock()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return f.store.NotificationCountSince(ctx, userID, midnight)
}

// Policy returns the current notification policy.
func (f *FeedService) Policy() domain.NotificationPolicy {
	return f.policy
}
