package engagement

import (
	"math"

	"github.com/chompy-labs/chompy/internal/domain"
)

// Threshold returns the XP needed to advance from level to level+1.
func Threshold(level int) int64 {
	return int64(level) * domain.XPPerLevel
}

// AddXP applies the level-up rollover rule and returns the new state.
// Pure: the caller persists. Negative amounts are treated as zero and
// amounts above domain.MaxXPGrant are capped to it.
//
// While xp >= Threshold(level), the threshold is subtracted and the level
// incremented, so one large grant can cascade several levels.
func AddXP(p domain.UserProgress, amount int64) domain.UserProgress {
	if amount < 0 {
		amount = 0
	}
	if amount > domain.MaxXPGrant {
		amount = domain.MaxXPGrant
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.XP < 0 {
		p.XP = 0
	}

	if p.XP > math.MaxInt64-amount {
		p.XP = math.MaxInt64
	} else {
		p.XP += amount
	}
	for p.XP >= Threshold(p.Level) {
		p.XP -= Threshold(p.Level)
		p.Level++
	}
	return p
}

// TotalXP returns the effective lifetime XP of a state:
// the sum of every threshold below the current level plus the in-level XP.
func TotalXP(p domain.UserProgress) int64 {
	n := int64(p.Level - 1)
	return domain.XPPerLevel*n*(n+1)/2 + p.XP
}

// XPToNextLevel returns XP remaining until the next level.
func XPToNextLevel(p domain.UserProgress) int64 {
	remaining := Threshold(p.Level) - p.XP
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ProgressPct returns progress toward the next level (0.0–100.0).
func ProgressPct(p domain.UserProgress) float64 {
	span := Threshold(p.Level)
	if span <= 0 {
		return 100.0
	}
	progress := float64(p.XP) / float64(span) * 100.0
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}
