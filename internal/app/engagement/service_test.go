package engagement_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/infra/metrics"
	"github.com/chompy-labs/chompy/internal/infra/sqlite"
	"github.com/chompy-labs/chompy/internal/logger"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fixedClock(t time.Time) engagement.Clock {
	return func() time.Time { return t }
}

func newService(t *testing.T, gw domain.Gateway, opts engagement.Options) *engagement.Service {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = fixedClock(today)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	svc := engagement.NewService("u1", gw, opts)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return svc
}

// storedCount returns how many documents u1 holds for entity.
func storedCount(t *testing.T, gw domain.Gateway, entity domain.EntityType) int {
	t.Helper()
	docs, err := gw.List(context.Background(), "u1", entity)
	if err != nil {
		t.Fatalf("list %s: %v", entity, err)
	}
	return len(docs)
}

// flakyGateway fails every Save while failing is set.
type flakyGateway struct {
	mu      sync.Mutex
	docs    map[string][]byte
	order   []string
	failing bool
}

func newFlakyGateway() *flakyGateway {
	return &flakyGateway{docs: make(map[string][]byte)}
}

func (g *flakyGateway) key(userID string, entity domain.EntityType, key string) string {
	return userID + "/" + string(entity) + "/" + key
}

func (g *flakyGateway) Load(_ context.Context, userID string, entity domain.EntityType, key string) ([]byte, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.docs[g.key(userID, entity, key)]
	return doc, ok, nil
}

func (g *flakyGateway) Save(_ context.Context, userID string, entity domain.EntityType, key string, doc []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return errors.New("network unreachable")
	}
	k := g.key(userID, entity, key)
	if _, ok := g.docs[k]; !ok {
		g.order = append(g.order, k)
	}
	g.docs[k] = doc
	return nil
}

func (g *flakyGateway) List(_ context.Context, userID string, entity domain.EntityType) ([][]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	prefix := userID + "/" + string(entity) + "/"
	var out [][]byte
	for _, k := range g.order {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, g.docs[k])
		}
	}
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Load / Defaults
// ═══════════════════════════════════════════════════════════════════════════

func TestService_LoadDefaults(t *testing.T) {
	svc := newService(t, testDB(t), engagement.Options{})
	s := svc.Snapshot()

	if s.Progress != domain.DefaultProgress() {
		t.Errorf("expected default progress, got %+v", s.Progress)
	}
	want := domain.DefaultPet(today.UTC())
	if s.Pet != want {
		t.Errorf("expected default pet %+v, got %+v", want, s.Pet)
	}
	if s.Streak != 0 || s.UnlockedCount != 0 || len(s.Challenges) != 0 {
		t.Errorf("expected empty state, got %+v", s)
	}
	if len(s.Achievements) != 16 {
		t.Errorf("summary should list the full catalog, got %d", len(s.Achievements))
	}
}

func TestService_EmptyUserID(t *testing.T) {
	svc := engagement.NewService("", testDB(t), engagement.Options{Logger: logger.Discard()})
	if err := svc.Load(context.Background()); !errors.Is(err, domain.ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestService_CorruptPetFallsBackToDefault(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.Save(ctx, "u1", domain.EntityPet, domain.SingletonKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := newService(t, db, engagement.Options{})
	if got := svc.Snapshot().Pet; got.Name != domain.DefaultPetName || got.Happiness != domain.DefaultPetHappiness {
		t.Errorf("expected default pet, got %+v", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// XP
// ═══════════════════════════════════════════════════════════════════════════

func TestService_AddXP_Persists(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newService(t, db, engagement.Options{})

	if _, err := svc.AddXP(ctx, 90, domain.XPManual); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := svc.AddXP(ctx, 30, domain.XPManual)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !out.LeveledUp {
		t.Error("expected level up")
	}

	reloaded := newService(t, db, engagement.Options{})
	if got := reloaded.Snapshot().Progress; got != (domain.UserProgress{Level: 2, XP: 20}) {
		t.Errorf("expected level 2 xp 20 after reload, got %+v", got)
	}
}

func TestService_AddXP_RejectsNegative(t *testing.T) {
	svc := newService(t, testDB(t), engagement.Options{})
	if _, err := svc.AddXP(context.Background(), -5, domain.XPManual); !errors.Is(err, domain.ErrNegativeXP) {
		t.Errorf("expected ErrNegativeXP, got %v", err)
	}
	if got := svc.Snapshot().Progress; got != domain.DefaultProgress() {
		t.Errorf("progress should be unchanged, got %+v", got)
	}
}

func TestService_AddXP_Limits(t *testing.T) {
	svc := newService(t, testDB(t), engagement.Options{})
	ctx := context.Background()

	if _, err := svc.AddXP(ctx, domain.MaxXPGrant+1, domain.XPManual); !errors.Is(err, domain.ErrXPOutOfRange) {
		t.Errorf("expected ErrXPOutOfRange, got %v", err)
	}
	if _, err := svc.AddXP(ctx, 99, domain.XPMealPlan); !errors.Is(err, domain.ErrXPAmountMismatch) {
		t.Errorf("expected ErrXPAmountMismatch, got %v", err)
	}
	if got := svc.Snapshot().Progress; got != domain.DefaultProgress() {
		t.Errorf("rejected grants should not change progress, got %+v", got)
	}

	if _, err := svc.AddXP(ctx, domain.MaxXPGrant, domain.XPManual); err != nil {
		t.Fatalf("grant at the limit: %v", err)
	}
	if got := engagement.TotalXP(svc.Snapshot().Progress); got != domain.MaxXPGrant {
		t.Errorf("expected total %d, got %d", domain.MaxXPGrant, got)
	}
}

func TestService_Grant_FixedSources(t *testing.T) {
	tests := []struct {
		source domain.XPSource
		want   int64
		err    error
	}{
		{domain.XPMealPlan, 15, nil},
		{domain.XPPlannedMeal, 10, nil},
		{domain.XPManual, 0, domain.ErrNoFixedGrant},
		{domain.XPChallenge, 0, domain.ErrNoFixedGrant},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			svc := newService(t, testDB(t), engagement.Options{})
			_, err := svc.Grant(context.Background(), tt.source)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Grant(%s) error = %v, want %v", tt.source, err, tt.err)
			}
			if got := svc.Snapshot().Progress.XP; got != tt.want {
				t.Errorf("Grant(%s) xp = %d, want %d", tt.source, got, tt.want)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievements
// ═══════════════════════════════════════════════════════════════════════════

func TestService_UnlockIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newService(t, db, engagement.Options{})

	first := svc.CheckAndUnlock(ctx, domain.TriggerFirstShare)
	if !first.Changed || len(first.Unlocked) != 1 || first.Unlocked[0].ID != "social_butterfly" {
		t.Fatalf("expected social_butterfly unlock, got %+v", first)
	}
	pet := svc.Snapshot().Pet
	if pet.XP != 25 || pet.Happiness != 80 || pet.Mood != domain.MoodExcited {
		t.Errorf("expected pet reward (25 xp, 80 happiness, excited), got %+v", pet)
	}

	second := svc.CheckAndUnlock(ctx, domain.TriggerFirstShare)
	if second.Changed || len(second.Unlocked) != 0 {
		t.Errorf("second unlock should be a no-op, got %+v", second)
	}
	if after := svc.Snapshot().Pet; after != pet {
		t.Errorf("pet should not be rewarded twice: %+v vs %+v", after, pet)
	}

	if count := storedCount(t, db, domain.EntityAchievements); count != 1 {
		t.Errorf("expected 1 stored unlock, got %d", count)
	}

	// Unlock survives a reload and is still idempotent.
	reloaded := newService(t, db, engagement.Options{})
	if reloaded.Snapshot().UnlockedCount != 1 {
		t.Error("unlock should persist")
	}
	if out := reloaded.CheckAndUnlock(ctx, domain.TriggerFirstShare); out.Changed {
		t.Error("reloaded session should remember the unlock")
	}
}

func TestService_UnknownTrigger(t *testing.T) {
	svc := newService(t, testDB(t), engagement.Options{})
	out := svc.CheckAndUnlock(context.Background(), domain.Trigger("does_not_exist"))
	if out.Changed || out.PersistErr != nil {
		t.Errorf("unknown trigger should be silent, got %+v", out)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenges
// ═══════════════════════════════════════════════════════════════════════════

func TestService_AcceptChallenge_Duplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newService(t, db, engagement.Options{})

	first, err := svc.AcceptChallenge(ctx, 1)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !first.Changed || first.Challenge == nil {
		t.Fatal("expected a new challenge")
	}
	second, err := svc.AcceptChallenge(ctx, 1)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if second.Changed {
		t.Error("duplicate accept should be a no-op")
	}

	if count := storedCount(t, db, domain.EntityChallenges); count != 1 {
		t.Errorf("expected 1 stored challenge, got %d", count)
	}
	if got := len(svc.Snapshot().Challenges); got != 1 {
		t.Errorf("expected 1 challenge in session, got %d", got)
	}

	c := first.Challenge
	if !c.EndDate.Equal(c.StartDate.Add(7 * 24 * time.Hour)) {
		t.Errorf("expected a 7-day window, got %v..%v", c.StartDate, c.EndDate)
	}
}

func TestService_AcceptChallenge_AfterCompletion(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, testDB(t), engagement.Options{})

	out, _ := svc.AcceptChallenge(ctx, 3) // target 1
	if _, err := svc.UpdateChallengeProgress(ctx, out.Challenge.ID, 1); err != nil {
		t.Fatalf("progress: %v", err)
	}
	again, err := svc.AcceptChallenge(ctx, 3)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !again.Changed {
		t.Error("completed challenge should not block re-acceptance")
	}
	if got := len(svc.Snapshot().Challenges); got != 2 {
		t.Errorf("expected 2 challenges, got %d", got)
	}
}

func TestService_AcceptChallenge_BadIndex(t *testing.T) {
	svc := newService(t, testDB(t), engagement.Options{})
	for _, idx := range []int{-1, 6, 100} {
		if _, err := svc.AcceptChallenge(context.Background(), idx); !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("index %d: expected ErrTemplateNotFound, got %v", idx, err)
		}
	}
}

func TestService_UpdateProgress_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, testDB(t), engagement.Options{})

	if _, err := svc.UpdateChallengeProgress(ctx, "ch_missing", 1); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Errorf("expected ErrChallengeNotFound, got %v", err)
	}
	out, _ := svc.AcceptChallenge(ctx, 0)
	if _, err := svc.UpdateChallengeProgress(ctx, out.Challenge.ID, -1); !errors.Is(err, domain.ErrNegativeIncrement) {
		t.Errorf("expected ErrNegativeIncrement, got %v", err)
	}
	if _, err := svc.UpdateChallengeProgress(ctx, out.Challenge.ID, domain.MaxChallengeIncrement+1); !errors.Is(err, domain.ErrIncrementTooLarge) {
		t.Errorf("expected ErrIncrementTooLarge, got %v", err)
	}
	if got := svc.Snapshot().Challenges[0]; got.Current != 0 || got.Completed {
		t.Errorf("rejected increments should not move progress, got %+v", got)
	}
}

func TestService_CompletionFreeze(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newService(t, db, engagement.Options{})

	accepted, _ := svc.AcceptChallenge(ctx, 3) // "Try a new cuisine": target 1, 25 XP
	id := accepted.Challenge.ID

	done, err := svc.UpdateChallengeProgress(ctx, id, 1)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !done.Completed {
		t.Fatal("expected completion")
	}

	s := svc.Snapshot()
	if s.Progress != (domain.UserProgress{Level: 1, XP: 25}) {
		t.Errorf("expected user xp 25, got %+v", s.Progress)
	}
	if s.Pet.XP != 25 || s.Pet.Happiness != 85 || s.Pet.Mood != domain.MoodExcited {
		t.Errorf("expected pet reward (25 xp, 85 happiness, excited), got %+v", s.Pet)
	}

	frozen, err := svc.UpdateChallengeProgress(ctx, id, 4)
	if err != nil {
		t.Fatalf("progress on completed: %v", err)
	}
	if frozen.Changed || frozen.Completed {
		t.Errorf("completed challenge should be frozen, got %+v", frozen)
	}

	after := svc.Snapshot()
	if after.Progress != s.Progress || after.Pet != s.Pet {
		t.Error("no double reward")
	}
	if after.Challenges[0].Current != 1 {
		t.Errorf("current should stay 1, got %d", after.Challenges[0].Current)
	}
}

func TestService_OvershootStoredRaw(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newService(t, db, engagement.Options{})

	accepted, _ := svc.AcceptChallenge(ctx, 2) // target 9
	id := accepted.Challenge.ID
	_, _ = svc.UpdateChallengeProgress(ctx, id, 8)
	out, _ := svc.UpdateChallengeProgress(ctx, id, 5)
	if !out.Completed {
		t.Fatal("expected completion")
	}

	reloaded := newService(t, db, engagement.Options{})
	c := reloaded.Snapshot().Challenges[0]
	if c.Current != 13 || !c.Completed {
		t.Errorf("expected raw current 13 completed, got %+v", c)
	}
	if c.DisplayCurrent() != 9 {
		t.Errorf("display should clamp to 9, got %d", c.DisplayCurrent())
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pet
// ═══════════════════════════════════════════════════════════════════════════

func TestService_FeedPet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	later := today.Add(3 * time.Hour)
	svc := newService(t, db, engagement.Options{Clock: fixedClock(later)})

	svc.FeedPet(ctx)
	pet := svc.Snapshot().Pet
	if pet.Happiness != 75 || pet.Mood != domain.MoodHappy || pet.XP != 0 {
		t.Errorf("unexpected pet after feed: %+v", pet)
	}
	if !pet.LastInteraction.Equal(later) {
		t.Errorf("expected last interaction %v, got %v", later, pet.LastInteraction)
	}

	for i := 0; i < 10; i++ {
		svc.FeedPet(ctx)
	}
	if got := svc.Snapshot().Pet.Happiness; got != 100 {
		t.Errorf("expected happiness clamped at 100, got %d", got)
	}

	reloaded := newService(t, db, engagement.Options{})
	if reloaded.Snapshot().Pet != svc.Snapshot().Pet {
		t.Error("pet should round-trip through storage")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Food Logs
// ═══════════════════════════════════════════════════════════════════════════

func TestService_LogFood_FirstLog(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, testDB(t), engagement.Options{})

	out, entry := svc.LogFood(ctx, domain.FoodLogEntry{Meal: "breakfast", Description: "oats", Calories: 350})
	if entry.ID == "" || entry.Timestamp != "2026-03-14T12:00:00Z" {
		t.Errorf("expected generated id and timestamp, got %+v", entry)
	}
	if len(out.Unlocked) != 1 || out.Unlocked[0].ID != "first_log" {
		t.Fatalf("expected first_log unlock, got %+v", out.Unlocked)
	}
	if got := svc.Snapshot().Streak; got != 1 {
		t.Errorf("expected streak 1, got %d", got)
	}

	second, _ := svc.LogFood(ctx, domain.FoodLogEntry{Meal: "lunch", Description: "salad"})
	if len(second.Unlocked) != 0 {
		t.Errorf("first_log should fire once, got %+v", second.Unlocked)
	}
	if got := len(svc.FoodLogs()); got != 2 {
		t.Errorf("expected 2 logs, got %d", got)
	}
}

func TestService_LogFood_SevenDayStreak(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := engagement.NewStore(db, "u1")
	for day := 8; day <= 13; day++ {
		ts := fmt.Sprintf("2026-03-%02dT09:00:00Z", day)
		if err := store.SaveFoodLog(ctx, logAt(ts)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	svc := newService(t, db, engagement.Options{})
	if got := svc.Snapshot().Streak; got != 0 {
		t.Errorf("expected streak 0 before today's log, got %d", got)
	}

	out, _ := svc.LogFood(ctx, domain.FoodLogEntry{Meal: "dinner", Description: "stir fry"})
	ids := make([]string, len(out.Unlocked))
	for i, a := range out.Unlocked {
		ids[i] = a.ID
	}
	if len(ids) != 2 || ids[0] != "first_log" || ids[1] != "iron_will" {
		t.Errorf("expected [first_log iron_will], got %v", ids)
	}

	s := svc.Snapshot()
	if s.Streak != 7 {
		t.Errorf("expected streak 7, got %d", s.Streak)
	}
	if s.Pet.XP != 50 || s.Pet.Happiness != 90 {
		t.Errorf("expected two pet rewards, got %+v", s.Pet)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Persistence Failures
// ═══════════════════════════════════════════════════════════════════════════

func TestService_PersistFailureKeepsMemory(t *testing.T) {
	gw := newFlakyGateway()
	ctx := context.Background()

	var failed []domain.EntityType
	svc := newService(t, gw, engagement.Options{
		OnPersistError: func(userID string, entity domain.EntityType, err error) {
			if userID != "u1" {
				t.Errorf("unexpected user %q", userID)
			}
			failed = append(failed, entity)
		},
	})

	gw.failing = true
	out := svc.FeedPet(ctx)
	if out.PersistErr == nil {
		t.Fatal("expected persist error in outcome")
	}
	if got := svc.Snapshot().Pet.Happiness; got != 75 {
		t.Errorf("in-memory change should be kept, got %d", got)
	}
	if len(failed) != 1 || failed[0] != domain.EntityPet {
		t.Errorf("expected one pet failure callback, got %v", failed)
	}

	xp, err := svc.AddXP(ctx, 10, domain.XPPlannedMeal)
	if err != nil {
		t.Fatalf("add xp should not fail on write errors: %v", err)
	}
	if xp.PersistErr == nil {
		t.Error("expected persist error for progress")
	}

	// Storage recovers: the next write carries the full in-memory state.
	gw.failing = false
	if out := svc.FeedPet(ctx); out.PersistErr != nil {
		t.Fatalf("unexpected error: %v", out.PersistErr)
	}
	reloaded := newService(t, gw, engagement.Options{})
	if got := reloaded.Snapshot().Pet.Happiness; got != 80 {
		t.Errorf("expected 80 after recovery, got %d", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Round Trip
// ═══════════════════════════════════════════════════════════════════════════

func TestStore_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	store := engagement.NewStore(db, "u1")
	stamp := time.Date(2026, 3, 14, 12, 34, 56, 789000000, time.UTC)

	pet := domain.PetState{Name: "Bean", Happiness: 42, XP: 130, Level: 2, Mood: domain.MoodSleepy, LastInteraction: stamp}
	progress := domain.UserProgress{Level: 5, XP: 321}
	challenge := engagement.NewChallenge(engagement.AllChallengeTemplates()[4], "ch_1_deadbeef", stamp)
	challenge.Current = 3

	if err := store.SavePet(ctx, pet); err != nil {
		t.Fatalf("save pet: %v", err)
	}
	if err := store.SaveProgress(ctx, progress); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if err := store.SaveChallenge(ctx, challenge); err != nil {
		t.Fatalf("save challenge: %v", err)
	}

	gotPet, found, err := store.LoadPet(ctx)
	if err != nil || !found {
		t.Fatalf("load pet: found=%v err=%v", found, err)
	}
	if gotPet != pet {
		t.Errorf("pet round-trip: got %+v, want %+v", gotPet, pet)
	}

	gotProgress, found, err := store.LoadProgress(ctx)
	if err != nil || !found {
		t.Fatalf("load progress: found=%v err=%v", found, err)
	}
	if gotProgress != progress {
		t.Errorf("progress round-trip: got %+v, want %+v", gotProgress, progress)
	}

	challenges, err := store.LoadChallenges(ctx)
	if err != nil || len(challenges) != 1 {
		t.Fatalf("load challenges: %v (%d)", err, len(challenges))
	}
	if challenges[0] != challenge {
		t.Errorf("challenge round-trip: got %+v, want %+v", challenges[0], challenge)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Activity Feed
// ═══════════════════════════════════════════════════════════════════════════

func TestFeed_EventsCreateNotifications(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	feed := engagement.NewFeedService(db, fixedClock(today))
	svc := newService(t, db, engagement.Options{Notifier: feed})

	svc.CheckAndUnlock(ctx, domain.TriggerFirstLog)
	if _, err := svc.AddXP(ctx, 100, domain.XPManual); err != nil {
		t.Fatalf("add: %v", err)
	}

	pending, err := feed.Pending(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(pending))
	}
	if pending[0].Type != domain.NotifyAchievement || pending[1].Type != domain.NotifyLevelUp {
		t.Errorf("unexpected types: %s, %s", pending[0].Type, pending[1].Type)
	}

	if err := feed.MarkShown(ctx, "u1", pending[0].ID); err != nil {
		t.Fatalf("mark shown: %v", err)
	}
	pending, _ = feed.Pending(ctx, "u1", 10)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending after mark, got %d", len(pending))
	}
}

func TestFeed_DailyCap(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	feed := engagement.NewFeedServiceWithPolicy(db, domain.NotificationPolicy{MaxPerDay: 1}, fixedClock(today))

	n := domain.Notification{UserID: "u1", Type: domain.NotifyLevelUp, Title: "Level 2!"}
	id, err := feed.Notify(ctx, n)
	if err != nil || id == 0 {
		t.Fatalf("first notify: id=%d err=%v", id, err)
	}
	id, err = feed.Notify(ctx, n)
	if err != nil {
		t.Fatalf("second notify: %v", err)
	}
	if id != 0 {
		t.Error("second notification should be suppressed")
	}

	// Other users have their own cap.
	other := n
	other.UserID = "u2"
	if id, _ := feed.Notify(ctx, other); id == 0 {
		t.Error("cap should be per user")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Leaderboard
// ═══════════════════════════════════════════════════════════════════════════

func TestLeaderboard_SyncedFromSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	board := engagement.NewLeaderboard(db)

	opts := engagement.Options{Clock: fixedClock(today), Logger: logger.Discard(), Leaderboard: board}
	alice := engagement.NewService("alice", db, opts)
	bob := engagement.NewService("bob", db, opts)
	for _, s := range []*engagement.Service{alice, bob} {
		if err := s.Load(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
	}

	if _, err := alice.AddXP(ctx, 50, domain.XPManual); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.AddXP(ctx, 150, domain.XPManual); err != nil {
		t.Fatal(err)
	}

	top, err := board.Top(ctx, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].UserID != "bob" || top[0].Level != 2 || top[0].XP != 50 {
		t.Errorf("expected bob first at level 2, got %+v", top[0])
	}
	if top[1].UserID != "alice" || top[1].XP != 50 {
		t.Errorf("expected alice second, got %+v", top[1])
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Sessions
// ═══════════════════════════════════════════════════════════════════════════

func TestSessions_CachesPerUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	built := 0
	sessions := engagement.NewSessions(8, time.Minute, func(userID string) *engagement.Service {
		built++
		return engagement.NewService(userID, db, engagement.Options{Clock: fixedClock(today), Logger: logger.Discard()})
	})
	defer sessions.Close()

	a, err := sessions.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := sessions.Get(ctx, "u1")
	if a != b || built != 1 {
		t.Errorf("expected one cached session, built %d", built)
	}

	if _, err := sessions.Get(ctx, ""); !errors.Is(err, domain.ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}

	sessions.Evict("u1")
	c, _ := sessions.Get(ctx, "u1")
	if c == a {
		t.Error("evicted session should be rebuilt")
	}
	if built != 2 {
		t.Errorf("expected 2 builds, got %d", built)
	}
}

func TestSessions_ConcurrentMutations(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sessions := engagement.NewSessions(8, time.Minute, func(userID string) *engagement.Service {
		return engagement.NewService(userID, db, engagement.Options{Clock: fixedClock(today), Logger: logger.Discard()})
	})
	defer sessions.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, err := sessions.Get(ctx, "u1")
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			if _, err := svc.AddXP(ctx, 10, domain.XPPlannedMeal); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	svc, _ := sessions.Get(ctx, "u1")
	if got := engagement.TotalXP(svc.Snapshot().Progress); got != 200 {
		t.Errorf("expected 200 total xp, got %d", got)
	}
}

// rendezvousGateway holds each progress load until every expected user has
// reached it, so it only succeeds when loads overlap.
type rendezvousGateway struct {
	domain.Gateway
	arrived sync.WaitGroup
}

func (g *rendezvousGateway) Load(ctx context.Context, userID string, entity domain.EntityType, key string) ([]byte, bool, error) {
	if entity == domain.EntityProgress {
		g.arrived.Done()
		all := make(chan struct{})
		go func() {
			g.arrived.Wait()
			close(all)
		}()
		select {
		case <-all:
		case <-time.After(2 * time.Second):
			return nil, false, errors.New("loads did not overlap")
		}
	}
	return g.Gateway.Load(ctx, userID, entity, key)
}

func TestSessions_ColdLoadsRunConcurrently(t *testing.T) {
	gw := &rendezvousGateway{Gateway: testDB(t)}
	gw.arrived.Add(2)
	sessions := engagement.NewSessions(8, time.Minute, func(userID string) *engagement.Service {
		return engagement.NewService(userID, gw, engagement.Options{Clock: fixedClock(today), Logger: logger.Discard()})
	})
	defer sessions.Close()

	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sessions.Get(context.Background(), user); err != nil {
				t.Errorf("get %s: %v", user, err)
			}
		}()
	}
	wg.Wait()

	if sessions.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", sessions.Len())
	}
}

func sessionsGauge(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.SessionsActive.Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestSessions_GaugeFollowsExpiry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	sessions := engagement.NewSessions(8, 20*time.Millisecond, func(userID string) *engagement.Service {
		return engagement.NewService(userID, db, engagement.Options{Clock: fixedClock(today), Logger: logger.Discard()})
	})
	defer sessions.Close()

	if _, err := sessions.Get(ctx, "u1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := sessionsGauge(t); got != 1 {
		t.Errorf("gauge after first load = %v, want 1", got)
	}

	// Past the TTL the entry is stale; the next Get reloads and re-adds it.
	time.Sleep(40 * time.Millisecond)
	if _, err := sessions.Get(ctx, "u1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got, want := sessionsGauge(t), float64(sessions.Len()); got != want || got > 1 {
		t.Errorf("gauge = %v, want %v (at most 1)", got, want)
	}

	sessions.Evict("u1")
	if got := sessionsGauge(t); got != 0 {
		t.Errorf("gauge after evict = %v, want 0", got)
	}
}

