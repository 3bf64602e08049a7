package engagement

import (
	"time"

	"github.com/chompy-labs/chompy/internal/domain"
)

// clampHappiness keeps happiness inside [0, MaxHappiness].
func clampHappiness(h int) int {
	if h < 0 {
		return 0
	}
	if h > domain.MaxHappiness {
		return domain.MaxHappiness
	}
	return h
}

// FeedPet is the direct feed interaction: +5 happiness, mood happy, no XP.
func FeedPet(p domain.PetState, now time.Time) domain.PetState {
	p.Happiness = clampHappiness(p.Happiness + domain.FeedHappiness)
	p.Mood = domain.MoodHappy
	p.LastInteraction = now
	return p
}

// RewardPet grants XP through the level ledger and adds happiness.
// Mood becomes excited. leveledUp reports a pet level change.
func RewardPet(p domain.PetState, xp int64, happiness int) (pet domain.PetState, leveledUp bool) {
	before := p.Level
	next := AddXP(p.Progress(), xp)
	p.XP, p.Level = next.XP, next.Level
	p.Happiness = clampHappiness(p.Happiness + happiness)
	p.Mood = domain.MoodExcited
	return p, p.Level > before
}

// normalizePet repairs a loaded pet so every invariant holds.
// Documents written by older clients may carry out-of-range values.
func normalizePet(p domain.PetState, now time.Time) domain.PetState {
	if p.Name == "" {
		p.Name = domain.DefaultPetName
	}
	p.Happiness = clampHappiness(p.Happiness)
	if !p.Mood.Valid() {
		p.Mood = domain.MoodNeutral
	}
	if p.LastInteraction.IsZero() {
		p.LastInteraction = now
	}
	next := AddXP(p.Progress(), 0)
	p.XP, p.Level = next.XP, next.Level
	return p
}
