package engagement

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/chompy-labs/chompy/internal/domain"
)

// challengeTemplates is the catalog users accept challenges from.
// Index order is part of the contract: AcceptChallenge takes an index.
var challengeTemplates = []domain.ChallengeTemplate{
	{Title: "No artificial sugar for 2 days", Description: "Avoid added sugars for 48 hours", Icon: "🚫🍬", Target: 2, Unit: "days", XPReward: 50},
	{Title: "Eat 5 servings of fruit", Description: "Log 5 fruit servings this week", Icon: "🍎", Target: 5, Unit: "servings", XPReward: 30},
	{Title: "Log every meal for 3 days", Description: "Don't miss a single meal log", Icon: "📝", Target: 9, Unit: "meals", XPReward: 40},
	{Title: "Try a new cuisine", Description: "Cook something from a new cuisine", Icon: "🌍", Target: 1, Unit: "meal", XPReward: 25},
	{Title: "Drink 8 glasses of water", Description: "Hit 8 glasses today", Icon: "💧", Target: 8, Unit: "glasses", XPReward: 20},
	{Title: "Cook at home for 5 days", Description: "Home-cooked meals for 5 days", Icon: "👨‍🍳", Target: 5, Unit: "days", XPReward: 60},
}

// AllChallengeTemplates returns a copy of the challenge catalog.
func AllChallengeTemplates() []domain.ChallengeTemplate {
	out := make([]domain.ChallengeTemplate, len(challengeTemplates))
	copy(out, challengeTemplates)
	return out
}

// TemplateAt returns the template at index.
func TemplateAt(templates []domain.ChallengeTemplate, index int) (domain.ChallengeTemplate, error) {
	if index < 0 || index >= len(templates) {
		return domain.ChallengeTemplate{}, fmt.Errorf("template %d: %w", index, domain.ErrTemplateNotFound)
	}
	return templates[index], nil
}

// HasActiveChallenge reports whether an uncompleted challenge with title exists.
// Completed ones do not block re-acceptance.
func HasActiveChallenge(challenges []domain.Challenge, title string) bool {
	for _, c := range challenges {
		if c.Title == title && !c.Completed {
			return true
		}
	}
	return false
}

// NewChallenge instantiates a template at now. Fields are copied by value.
func NewChallenge(tmpl domain.ChallengeTemplate, id string, now time.Time) domain.Challenge {
	return domain.Challenge{
		ID:                id,
		ChallengeTemplate: tmpl,
		StartDate:         now,
		EndDate:           now.Add(domain.ChallengeWindow),
		Current:           0,
		Completed:         false,
	}
}

// NewChallengeID derives a unique id from the generation time.
func NewChallengeID(now time.Time) string {
	return fmt.Sprintf("ch_%d_%s", now.UnixMilli(), uuid.New().String()[:8])
}

// ApplyProgress adds increment to an uncompleted challenge.
// It returns the updated challenge and whether this call completed it.
// A completed challenge is returned unchanged: progress is frozen.
// Current is not clamped, so the completing increment may overshoot Target.
// Negative increments count as zero and the sum saturates at math.MaxInt.
func ApplyProgress(c domain.Challenge, increment int) (domain.Challenge, bool) {
	if c.Completed {
		return c, false
	}
	if increment < 0 {
		increment = 0
	}
	if c.Current < 0 {
		c.Current = 0
	}
	if c.Current > math.MaxInt-increment {
		c.Current = math.MaxInt
	} else {
		c.Current += increment
	}
	if c.Current >= c.Target {
		c.Completed = true
		return c, true
	}
	return c, false
}

// FindChallenge returns the index of the challenge with id, or -1.
func FindChallenge(challenges []domain.Challenge, id string) int {
	for i, c := range challenges {
		if c.ID == id {
			return i
		}
	}
	return -1
}
