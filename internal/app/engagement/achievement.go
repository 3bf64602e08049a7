package engagement

import (
	"time"

	"github.com/chompy-labs/chompy/internal/domain"
)

// CheckAndUnlock resolves a reported trigger against the catalog.
// It returns the newly unlocked achievement stamped with now, or ok=false
// when the trigger matches no entry or the entry is already in unlocked.
// Both skip cases are normal and silent. The caller persists the unlock,
// records it in unlocked and applies the pet reward.
func CheckAndUnlock(catalog []domain.AchievementDef, unlocked map[string]bool, trigger domain.Trigger, now time.Time) (domain.Achievement, bool) {
	def, ok := FindByTrigger(catalog, trigger)
	if !ok || unlocked[def.ID] {
		return domain.Achievement{}, false
	}
	at := now
	return domain.Achievement{AchievementDef: def, UnlockedAt: &at}, true
}

// FindByTrigger returns the catalog entry bound to trigger.
func FindByTrigger(catalog []domain.AchievementDef, trigger domain.Trigger) (domain.AchievementDef, bool) {
	for _, def := range catalog {
		if def.Trigger == trigger {
			return def, true
		}
	}
	return domain.AchievementDef{}, false
}

// MergeUnlocked overlays unlock records onto the catalog for display,
// in catalog order. Records for ids not in the catalog are dropped.
func MergeUnlocked(catalog []domain.AchievementDef, records []domain.Achievement) []domain.Achievement {
	stamps := make(map[string]*time.Time, len(records))
	for _, r := range records {
		stamps[r.ID] = r.UnlockedAt
	}
	out := make([]domain.Achievement, len(catalog))
	for i, def := range catalog {
		out[i] = domain.Achievement{AchievementDef: def, UnlockedAt: stamps[def.ID]}
	}
	return out
}

// ─── Achievement Definitions ────────────────────────────────────────────────
// 16 achievements, one trigger each. Detection is the caller's job.

// AllAchievements returns the full achievement catalog.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// ── Streaks ────────────────────────────────────────────────────
		{ID: "iron_will", Title: "Iron Will", Description: "Log meals for 7 days in a row", Icon: "🏆", Trigger: domain.Trigger7DayStreak},
		{ID: "consistency_king", Title: "Consistency King", Description: "Log meals every day for 14 days straight", Icon: "🎯", Trigger: domain.Trigger14DayStreak},
		{ID: "streak_master", Title: "Streak Master", Description: "30-day logging streak", Icon: "🔥", Trigger: domain.Trigger30DayStreak},
		{ID: "hydration_hero", Title: "Hydration Hero", Description: "Log water intake for 14 consecutive days", Icon: "💧", Trigger: domain.Trigger14DayWater},

		// ── Logging ────────────────────────────────────────────────────
		{ID: "first_log", Title: "First Steps", Description: "Log your first meal", Icon: "👣", Trigger: domain.TriggerFirstLog},
		{ID: "diamond_logger", Title: "Diamond Logger", Description: "Log 100 total meals", Icon: "💎", Trigger: domain.Trigger100Logs},
		{ID: "snap_master", Title: "Snap Master", Description: "Scan 10 food photos with AI", Icon: "📸", Trigger: domain.Trigger10Scans},
		{ID: "workout_fuel", Title: "Workout Fuel", Description: "Log pre/post workout meals 5 times", Icon: "🏃", Trigger: domain.Trigger5WorkoutMeals},

		// ── Eating ─────────────────────────────────────────────────────
		{ID: "veggie_voyager", Title: "Veggie Voyager", Description: "Eat 15 different vegetables in a month", Icon: "🥬", Trigger: domain.Trigger15Veggies},
		{ID: "salad_champion", Title: "Salad Champion", Description: "Eat salads 5 days in a row", Icon: "🥗", Trigger: domain.Trigger5DaySalad},
		{ID: "top_chef", Title: "Top Chef", Description: "Try recipes from 5 different cuisines", Icon: "🥇", Trigger: domain.Trigger5Cuisines},

		// ── Planning ───────────────────────────────────────────────────
		{ID: "meal_planner_pro", Title: "Meal Planner Pro", Description: "Generate 10 meal plans", Icon: "🧠", Trigger: domain.Trigger10Plans},
		{ID: "night_owl", Title: "Night Owl Planner", Description: "Generate a meal plan after 10 PM", Icon: "🌙", Trigger: domain.TriggerLatePlan},
		{ID: "budget_boss", Title: "Budget Boss", Description: "Stay under weekly budget 4 weeks in a row", Icon: "💰", Trigger: domain.Trigger4WeekBudget},

		// ── Social ─────────────────────────────────────────────────────
		{ID: "social_butterfly", Title: "Social Butterfly", Description: "Share your first meal plan", Icon: "🦋", Trigger: domain.TriggerFirstShare},
		{ID: "community_star", Title: "Community Star", Description: "Get 10 likes on your community posts", Icon: "🤝", Trigger: domain.Trigger10Likes},
	}
}
