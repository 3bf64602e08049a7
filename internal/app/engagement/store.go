package engagement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chompy-labs/chompy/internal/domain"
)

// Store is the typed view of one user's documents in a Gateway.
// Singleton entities live under domain.SingletonKey; collections are keyed
// by item id.
type Store struct {
	gw     domain.Gateway
	userID string
}

// NewStore binds a gateway to a user.
func NewStore(gw domain.Gateway, userID string) *Store {
	return &Store{gw: gw, userID: userID}
}

// loadOne decodes a singleton document. found is false when absent.
func loadOne[T any](ctx context.Context, s *Store, entity domain.EntityType) (v T, found bool, err error) {
	doc, found, err := s.gw.Load(ctx, s.userID, entity, domain.SingletonKey)
	if err != nil || !found {
		return v, false, err
	}
	if err := json.Unmarshal(doc, &v); err != nil {
		return v, false, fmt.Errorf("%s: %w: %v", entity, domain.ErrCorruptDocument, err)
	}
	return v, true, nil
}

// loadAll decodes every document of a collection in insertion order.
func loadAll[T any](ctx context.Context, s *Store, entity domain.EntityType) ([]T, error) {
	docs, err := s.gw.List(ctx, s.userID, entity)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", entity, domain.ErrCorruptDocument, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func save(ctx context.Context, s *Store, entity domain.EntityType, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entity, err)
	}
	if err := s.gw.Save(ctx, s.userID, entity, key, doc); err != nil {
		return fmt.Errorf("save %s/%s: %w", entity, key, err)
	}
	return nil
}

// ─── Singletons ─────────────────────────────────────────────────────────────

// LoadProgress returns the stored progress, or found=false.
func (s *Store) LoadProgress(ctx context.Context) (domain.UserProgress, bool, error) {
	return loadOne[domain.UserProgress](ctx, s, domain.EntityProgress)
}

// SaveProgress upserts the user's progress.
func (s *Store) SaveProgress(ctx context.Context, p domain.UserProgress) error {
	return save(ctx, s, domain.EntityProgress, domain.SingletonKey, p)
}

// LoadPet returns the stored pet, or found=false.
func (s *Store) LoadPet(ctx context.Context) (domain.PetState, bool, error) {
	return loadOne[domain.PetState](ctx, s, domain.EntityPet)
}

// SavePet upserts the pet.
func (s *Store) SavePet(ctx context.Context, p domain.PetState) error {
	return save(ctx, s, domain.EntityPet, domain.SingletonKey, p)
}

// ─── Collections ────────────────────────────────────────────────────────────

// LoadAchievements returns the unlock records.
func (s *Store) LoadAchievements(ctx context.Context) ([]domain.Achievement, error) {
	return loadAll[domain.Achievement](ctx, s, domain.EntityAchievements)
}

// SaveAchievement upserts one unlock record keyed by achievement id.
func (s *Store) SaveAchievement(ctx context.Context, a domain.Achievement) error {
	return save(ctx, s, domain.EntityAchievements, a.ID, a)
}

// LoadChallenges returns accepted challenges in acceptance order.
func (s *Store) LoadChallenges(ctx context.Context) ([]domain.Challenge, error) {
	return loadAll[domain.Challenge](ctx, s, domain.EntityChallenges)
}

// SaveChallenge upserts one challenge keyed by challenge id.
func (s *Store) SaveChallenge(ctx context.Context, c domain.Challenge) error {
	return save(ctx, s, domain.EntityChallenges, c.ID, c)
}

// LoadFoodLogs returns food logs in insertion order.
func (s *Store) LoadFoodLogs(ctx context.Context) ([]domain.FoodLogEntry, error) {
	return loadAll[domain.FoodLogEntry](ctx, s, domain.EntityFoodLogs)
}

// SaveFoodLog upserts one food log keyed by entry id.
func (s *Store) SaveFoodLog(ctx context.Context, e domain.FoodLogEntry) error {
	return save(ctx, s, domain.EntityFoodLogs, e.ID, e)
}
