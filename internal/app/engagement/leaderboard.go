package engagement

import (
	"context"

	"github.com/chompy-labs/chompy/internal/domain"
)

// DefaultLeaderboardLimit is the page size when callers pass limit <= 0.
const DefaultLeaderboardLimit = 10

// Leaderboard keeps the public ranking in step with user progress.
type Leaderboard struct {
	store domain.LeaderboardStore
}

// NewLeaderboard wraps a ranking store.
func NewLeaderboard(store domain.LeaderboardStore) *Leaderboard {
	return &Leaderboard{store: store}
}

// Sync upserts one user's row.
func (l *Leaderboard) Sync(ctx context.Context, entry domain.LeaderboardEntry) error {
	if entry.UserID == "" {
		return domain.ErrEmptyUserID
	}
	return l.store.UpsertLeaderboard(ctx, entry)
}

// Top returns the best rows ordered by level, xp and streak, highest first.
// Ties fall back to user id.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return l.store.TopLeaderboard(ctx, limit)
}
