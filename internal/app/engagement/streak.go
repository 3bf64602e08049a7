// Package engagement implements the chompy gamification engine.
// Streaks, the XP/level ledger, achievements, challenges, the virtual pet
// and the per-user service that orchestrates them over a document gateway.
package engagement

import (
	"sort"
	"time"

	"github.com/chompy-labs/chompy/internal/domain"
)

// ComputeStreak counts consecutive calendar days with at least one log,
// walking backward from today.
//
// A log's day is the date prefix of its timestamp. today is evaluated in its
// own location. The walk only continues on exact consecutive matches: if
// today has no log the streak is 0, and any gap ends it. Future-dated days
// are skipped.
func ComputeStreak(logs []domain.FoodLogEntry, today time.Time) int {
	if len(logs) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(logs))
	days := make([]string, 0, len(logs))
	for _, l := range logs {
		day, ok := DayKey(l.Timestamp)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	streak := 0
	expected := LocalDay(today)
	for _, day := range days {
		if day == expected {
			streak++
			expected = PrevDay(expected)
			continue
		}
		if day < expected {
			break // Gap; no grace day
		}
	}
	return streak
}

// streakMilestones maps streak lengths to the achievement they report.
var streakMilestones = []struct {
	days    int
	trigger domain.Trigger
}{
	{7, domain.Trigger7DayStreak},
	{14, domain.Trigger14DayStreak},
	{30, domain.Trigger30DayStreak},
}

// StreakTriggers returns the streak achievements a streak of n days reports.
func StreakTriggers(n int) []domain.Trigger {
	var out []domain.Trigger
	for _, m := range streakMilestones {
		if n >= m.days {
			out = append(out, m.trigger)
		}
	}
	return out
}
