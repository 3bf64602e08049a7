// Package domain holds the chompy gamification types.
// The engagement engine drives food-logging habits through XP, levels,
// streaks, achievements, weekly challenges and a virtual pet.
package domain

import "time"

// ─── Level / XP Types ───────────────────────────────────────────────────────

// XPPerLevel is the per-level threshold multiplier: level N needs N*100 XP.
const XPPerLevel = 100

// UserProgress is the user's level and the XP held within that level.
// Invariant: 0 <= XP < Level*XPPerLevel.
type UserProgress struct {
	Level int   `json:"level"`
	XP    int64 `json:"xp"`
}

// DefaultProgress is the state of a freshly created account.
func DefaultProgress() UserProgress {
	return UserProgress{Level: 1, XP: 0}
}

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPMealPlan    XPSource = "meal_plan"
	XPPlannedMeal XPSource = "planned_meal"
	XPChallenge   XPSource = "challenge"
	XPManual      XPSource = "manual"
)

// Fixed XP grants issued by the orchestrating layer.
const (
	MealPlanXP    int64 = 15
	PlannedMealXP int64 = 10
)

// Upper bounds for one XP grant and one challenge increment.
const (
	MaxXPGrant            int64 = 1_000_000
	MaxChallengeIncrement       = 1_000_000
)

// FixedXP returns the grant for sources that always award the same amount.
func (s XPSource) FixedXP() (int64, bool) {
	switch s {
	case XPMealPlan:
		return MealPlanXP, true
	case XPPlannedMeal:
		return PlannedMealXP, true
	}
	return 0, false
}

// ─── Pet Types ──────────────────────────────────────────────────────────────

// Mood is a presentation tag overwritten by whichever pet mutation ran last.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSleepy  Mood = "sleepy"
	MoodExcited Mood = "excited"
)

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodNeutral, MoodSleepy, MoodExcited:
		return true
	}
	return false
}

// Pet reward and happiness constants.
const (
	MaxHappiness         = 100
	DefaultPetName       = "Chompy"
	DefaultPetHappiness  = 70
	FeedHappiness        = 5
	AchievementPetXP     = 25
	AchievementHappiness = 10
	ChallengeHappiness   = 15
)

// PetState is the virtual pet. XP and Level follow the same rollover rule as
// UserProgress but are never combined with it.
type PetState struct {
	Name            string    `json:"name"`
	Happiness       int       `json:"happiness"`
	XP              int64     `json:"xp"`
	Level           int       `json:"level"`
	Mood            Mood      `json:"mood"`
	LastInteraction time.Time `json:"last_interaction"`
}

// DefaultPet returns the pet a user gets on first read.
func DefaultPet(now time.Time) PetState {
	return PetState{
		Name:            DefaultPetName,
		Happiness:       DefaultPetHappiness,
		XP:              0,
		Level:           1,
		Mood:            MoodNeutral,
		LastInteraction: now,
	}
}

// Progress views the pet's XP counters as a ledger state.
func (p PetState) Progress() UserProgress {
	return UserProgress{Level: p.Level, XP: p.XP}
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// Trigger is the closed set of conditions calling code may report.
// The wire form is the condition key used by the app ("first_log", ...).
type Trigger string

const (
	Trigger7DayStreak    Trigger = "7_day_streak"
	Trigger15Veggies     Trigger = "15_veggies"
	Trigger14DayWater    Trigger = "14_day_water"
	Trigger30DayStreak   Trigger = "30_day_streak"
	Trigger10Plans       Trigger = "10_plans"
	TriggerFirstLog      Trigger = "first_log"
	Trigger4WeekBudget   Trigger = "4_week_budget"
	TriggerFirstShare    Trigger = "first_share"
	Trigger5DaySalad     Trigger = "5_day_salad"
	Trigger10Scans       Trigger = "10_scans"
	TriggerLatePlan      Trigger = "late_plan"
	Trigger10Likes       Trigger = "10_likes"
	Trigger5WorkoutMeals Trigger = "5_workout_meals"
	Trigger14DayStreak   Trigger = "14_day_streak"
	Trigger5Cuisines     Trigger = "5_cuisines"
	Trigger100Logs       Trigger = "100_logs"
)

var knownTriggers = map[Trigger]bool{
	Trigger7DayStreak: true, Trigger15Veggies: true, Trigger14DayWater: true,
	Trigger30DayStreak: true, Trigger10Plans: true, TriggerFirstLog: true,
	Trigger4WeekBudget: true, TriggerFirstShare: true, Trigger5DaySalad: true,
	Trigger10Scans: true, TriggerLatePlan: true, Trigger10Likes: true,
	Trigger5WorkoutMeals: true, Trigger14DayStreak: true, Trigger5Cuisines: true,
	Trigger100Logs: true,
}

// ParseTrigger maps a condition key to a Trigger. ok is false for unknown keys.
func ParseTrigger(s string) (Trigger, bool) {
	t := Trigger(s)
	return t, knownTriggers[t]
}

// AchievementDef is an immutable catalog entry.
type AchievementDef struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Trigger     Trigger `json:"condition"`
}

// Achievement is a catalog entry plus the user's unlock stamp.
type Achievement struct {
	AchievementDef
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Unlocked reports whether the achievement has been earned.
func (a Achievement) Unlocked() bool { return a.UnlockedAt != nil }

// ─── Challenge Types ────────────────────────────────────────────────────────

// ChallengeWindow is the fixed lifetime of an accepted challenge.
const ChallengeWindow = 7 * 24 * time.Hour

// ChallengeTemplate is an immutable challenge catalog entry.
type ChallengeTemplate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unit        string `json:"unit"`
	Target      int    `json:"target"`
	XPReward    int64  `json:"xp_reward"`
}

// ChallengeStatus is a display classification of a challenge instance.
type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeExpired   ChallengeStatus = "expired"
)

// Challenge is an accepted template with progress tracking.
// Current is stored raw and may overshoot Target on the completing increment.
type Challenge struct {
	ID string `json:"id"`
	ChallengeTemplate
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Current   int       `json:"current"`
	Completed bool      `json:"completed"`
}

// DisplayCurrent clamps Current to Target for rendering.
func (c Challenge) DisplayCurrent() int {
	if c.Current > c.Target {
		return c.Target
	}
	return c.Current
}

// ProgressPct returns completion percentage (0-100).
func (c Challenge) ProgressPct() float64 {
	if c.Target <= 0 {
		return 100.0
	}
	return float64(c.DisplayCurrent()) / float64(c.Target) * 100.0
}

// Status classifies the challenge at the given time. Expiry is informational.
func (c Challenge) Status(now time.Time) ChallengeStatus {
	switch {
	case c.Completed:
		return ChallengeCompleted
	case now.After(c.EndDate):
		return ChallengeExpired
	default:
		return ChallengeActive
	}
}

// ─── Food Log Types ─────────────────────────────────────────────────────────

// FoodLogEntry is an externally owned meal log. Timestamp is ISO-8601 and
// keeps the offset it was written with.
type FoodLogEntry struct {
	ID          string  `json:"id"`
	Timestamp   string  `json:"timestamp"`
	Meal        string  `json:"meal"`
	Description string  `json:"description"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fats        float64 `json:"fats"`
}

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// LeaderboardEntry is the public ranking row synced from a user's progress.
type LeaderboardEntry struct {
	UserID    string    `json:"user_id"`
	Level     int       `json:"level"`
	XP        int64     `json:"xp"`
	Streak    int       `json:"streak"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes activity feed items.
type NotificationType string

const (
	NotifyAchievement       NotificationType = "achievement"
	NotifyLevelUp           NotificationType = "level_up"
	NotifyPetLevelUp        NotificationType = "pet_level_up"
	NotifyChallengeComplete NotificationType = "challenge_complete"
)

// Notification is a user-facing activity item.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy caps how many feed items a user receives per day.
type NotificationPolicy struct {
	MaxPerDay int `json:"max_per_day" toml:"max_per_day"`
}

// DefaultNotificationPolicy returns the default feed policy.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{MaxPerDay: 20}
}
