package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/infra/metrics"
	"github.com/chompy-labs/chompy/internal/logger"
)

// Notifier receives gamification events for the activity feed.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) (int64, error)
}

// LeaderboardSink receives the user's ranking row after progress changes.
type LeaderboardSink interface {
	Sync(ctx context.Context, entry domain.LeaderboardEntry) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Clock        Clock
	Logger       *slog.Logger
	Notifier     Notifier
	Leaderboard  LeaderboardSink
	Achievements []domain.AchievementDef
	Templates    []domain.ChallengeTemplate

	// OnPersistError is called for every write that did not reach the
	// gateway. The in-memory change is kept either way.
	OnPersistError func(userID string, entity domain.EntityType, err error)
}

// Outcome reports what a mutation did.
type Outcome struct {
	Changed      bool
	LeveledUp    bool
	PetLeveledUp bool
	Unlocked     []domain.Achievement
	Challenge    *domain.Challenge
	Completed    bool

	// PersistErr joins every failed write of the call. The mutation itself
	// still succeeded in memory.
	PersistErr error
}

// Summary is a read-only copy of the session state.
type Summary struct {
	UserID        string               `json:"user_id"`
	Progress      domain.UserProgress  `json:"progress"`
	XPToNext      int64                `json:"xp_to_next"`
	ProgressPct   float64              `json:"progress_pct"`
	TotalXP       int64                `json:"total_xp"`
	Streak        int                  `json:"streak"`
	Pet           domain.PetState      `json:"pet"`
	Achievements  []domain.Achievement `json:"achievements"`
	UnlockedCount int                  `json:"unlocked_count"`
	Challenges    []domain.Challenge   `json:"challenges"`
	FoodLogCount  int                  `json:"food_log_count"`
}

// Service is the per-user gamification session. It holds the user's state
// in memory, applies every mutation there first, then writes through the
// gateway. One mutex serializes all operations of a user.
type Service struct {
	mu sync.Mutex

	userID string
	store  *Store
	opts   Options
	log    *slog.Logger

	progress   domain.UserProgress
	pet        domain.PetState
	unlocked   map[string]domain.Achievement
	challenges []domain.Challenge
	logs       []domain.FoodLogEntry
	streak     int
}

// NewService creates a session for userID over gw. Call Load before use.
func NewService(userID string, gw domain.Gateway, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = SystemClock(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Achievements == nil {
		opts.Achievements = AllAchievements()
	}
	if opts.Templates == nil {
		opts.Templates = AllChallengeTemplates()
	}
	now := opts.Clock().UTC()
	return &Service{
		userID:   userID,
		store:    NewStore(gw, userID),
		opts:     opts,
		log:      opts.Logger.With("user_id", userID),
		progress: domain.DefaultProgress(),
		pet:      domain.DefaultPet(now),
		unlocked: make(map[string]domain.Achievement),
	}
}

// UserID returns the session's user.
func (s *Service) UserID() string { return s.userID }

// Load reads every entity from the gateway. Absent documents become
// defaults. A corrupt singleton is replaced by its default and logged.
func (s *Service) Load(ctx context.Context) error {
	if s.userID == "" {
		return domain.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock()
	log := logger.FromContext(ctx, s.log)

	progress, found, err := s.store.LoadProgress(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptDocument):
		log.Warn("progress document unreadable, using default", "error", err)
		progress = domain.DefaultProgress()
	case err != nil:
		return fmt.Errorf("load progress: %w", err)
	case !found:
		progress = domain.DefaultProgress()
	}

	pet, found, err := s.store.LoadPet(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptDocument):
		log.Warn("pet document unreadable, using default", "error", err)
		pet = domain.DefaultPet(now.UTC())
	case err != nil:
		return fmt.Errorf("load pet: %w", err)
	case !found:
		pet = domain.DefaultPet(now.UTC())
	}

	records, err := s.store.LoadAchievements(ctx)
	if err != nil {
		return fmt.Errorf("load achievements: %w", err)
	}
	challenges, err := s.store.LoadChallenges(ctx)
	if err != nil {
		return fmt.Errorf("load challenges: %w", err)
	}
	logs, err := s.store.LoadFoodLogs(ctx)
	if err != nil {
		return fmt.Errorf("load food logs: %w", err)
	}

	s.progress = AddXP(progress, 0)
	s.pet = normalizePet(pet, now.UTC())
	s.unlocked = make(map[string]domain.Achievement, len(records))
	for _, r := range records {
		if r.Unlocked() {
			s.unlocked[r.ID] = r
		}
	}
	s.challenges = challenges
	s.logs = logs
	s.streak = ComputeStreak(logs, now)

	log.Debug("session loaded",
		"level", s.progress.Level,
		"streak", s.streak,
		"achievements", len(s.unlocked),
		"challenges", len(s.challenges))

	s.syncLeaderboard(ctx)
	return nil
}

// Snapshot returns a copy of the current state with the achievement
// catalog merged with the user's unlocks.
func (s *Service) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]domain.Achievement, 0, len(s.unlocked))
	for _, a := range s.unlocked {
		records = append(records, a)
	}
	challenges := make([]domain.Challenge, len(s.challenges))
	copy(challenges, s.challenges)

	return Summary{
		UserID:        s.userID,
		Progress:      s.progress,
		XPToNext:      XPToNextLevel(s.progress),
		ProgressPct:   ProgressPct(s.progress),
		TotalXP:       TotalXP(s.progress),
		Streak:        s.streak,
		Pet:           s.pet,
		Achievements:  MergeUnlocked(s.opts.Achievements, records),
		UnlockedCount: len(s.unlocked),
		Challenges:    challenges,
		FoodLogCount:  len(s.logs),
	}
}

// FoodLogs returns a copy of the user's food logs in insertion order.
func (s *Service) FoodLogs() []domain.FoodLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FoodLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Templates returns the challenge catalog this session accepts from.
func (s *Service) Templates() []domain.ChallengeTemplate {
	out := make([]domain.ChallengeTemplate, len(s.opts.Templates))
	copy(out, s.opts.Templates)
	return out
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// AddXP grants amount XP to the user's ledger. Negative amounts, amounts
// above domain.MaxXPGrant and amounts that differ from a fixed source's
// grant are rejected.
func (s *Service) AddXP(ctx context.Context, amount int64, source domain.XPSource) (Outcome, error) {
	switch {
	case amount < 0:
		return Outcome{}, fmt.Errorf("add %d xp: %w", amount, domain.ErrNegativeXP)
	case amount > domain.MaxXPGrant:
		return Outcome{}, fmt.Errorf("add %d xp: %w", amount, domain.ErrXPOutOfRange)
	}
	if fixed, ok := source.FixedXP(); ok && amount != fixed {
		return Outcome{}, fmt.Errorf("add %d xp from %s: %w", amount, source, domain.ErrXPAmountMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	s.grantUserXP(ctx, &out, amount, source)
	return out, nil
}

// Grant awards the fixed amount of a meal_plan or planned_meal source.
func (s *Service) Grant(ctx context.Context, source domain.XPSource) (Outcome, error) {
	amount, ok := source.FixedXP()
	if !ok {
		return Outcome{}, fmt.Errorf("grant %q: %w", source, domain.ErrNoFixedGrant)
	}
	return s.AddXP(ctx, amount, source)
}

// CheckAndUnlock reports trigger. Unknown and already-unlocked triggers are
// silent no-ops with Changed=false.
func (s *Service) CheckAndUnlock(ctx context.Context, trigger domain.Trigger) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	s.unlock(ctx, &out, trigger)
	return out
}

// AcceptChallenge instantiates the template at index. A duplicate of an
// uncompleted challenge is a silent no-op.
func (s *Service) AcceptChallenge(ctx context.Context, index int) (Outcome, error) {
	tmpl, err := TemplateAt(s.opts.Templates, index)
	if err != nil {
		return Outcome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	if HasActiveChallenge(s.challenges, tmpl.Title) {
		return out, nil
	}

	now := s.opts.Clock().UTC()
	c := NewChallenge(tmpl, NewChallengeID(now), now)
	s.challenges = append(s.challenges, c)
	out.Changed = true
	out.Challenge = &c
	metrics.ChallengesAccepted.Inc()
	s.log.Info("challenge accepted", "challenge_id", c.ID, "title", c.Title)

	s.persist(ctx, &out, domain.EntityChallenges, s.store.SaveChallenge(ctx, c))
	return out, nil
}

// UpdateChallengeProgress adds increment to the challenge with id. The
// completing call rewards the user and the pet once; later calls on a
// completed challenge are no-ops.
func (s *Service) UpdateChallengeProgress(ctx context.Context, id string, increment int) (Outcome, error) {
	switch {
	case increment < 0:
		return Outcome{}, fmt.Errorf("challenge %s: %w", id, domain.ErrNegativeIncrement)
	case increment > domain.MaxChallengeIncrement:
		return Outcome{}, fmt.Errorf("challenge %s: %w", id, domain.ErrIncrementTooLarge)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := FindChallenge(s.challenges, id)
	if i < 0 {
		return Outcome{}, fmt.Errorf("challenge %s: %w", id, domain.ErrChallengeNotFound)
	}

	var out Outcome
	if s.challenges[i].Completed {
		c := s.challenges[i]
		out.Challenge = &c
		return out, nil
	}

	next, completed := ApplyProgress(s.challenges[i], increment)
	s.challenges[i] = next
	out.Changed = true
	out.Challenge = &next
	s.persist(ctx, &out, domain.EntityChallenges, s.store.SaveChallenge(ctx, next))

	if !completed {
		return out, nil
	}

	out.Completed = true
	metrics.ChallengesCompleted.Inc()
	s.log.Info("challenge completed", "challenge_id", next.ID, "xp_reward", next.XPReward)

	s.grantUserXP(ctx, &out, next.XPReward, domain.XPChallenge)
	s.rewardPet(ctx, &out, next.XPReward, domain.ChallengeHappiness)
	s.notify(ctx, domain.NotifyChallengeComplete,
		"Challenge complete!",
		fmt.Sprintf("%s: +%d XP", next.Title, next.XPReward))
	return out, nil
}

// FeedPet is the direct feed interaction.
func (s *Service) FeedPet(ctx context.Context) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	s.pet = FeedPet(s.pet, s.opts.Clock().UTC())
	out.Changed = true
	metrics.PetFeeds.Inc()

	s.persist(ctx, &out, domain.EntityPet, s.store.SavePet(ctx, s.pet))
	return out
}

// LogFood appends a food log, recomputes the streak and reports the
// logging achievements it reached. A missing id or timestamp is filled in.
func (s *Service) LogFood(ctx context.Context, entry domain.FoodLogEntry) (Outcome, domain.FoodLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = Timestamp(now)
	}

	var out Outcome
	s.logs = append(s.logs, entry)
	s.streak = ComputeStreak(s.logs, now)
	out.Changed = true
	s.persist(ctx, &out, domain.EntityFoodLogs, s.store.SaveFoodLog(ctx, entry))

	s.unlock(ctx, &out, domain.TriggerFirstLog)
	for _, t := range StreakTriggers(s.streak) {
		s.unlock(ctx, &out, t)
	}
	if len(s.logs) >= 100 {
		s.unlock(ctx, &out, domain.Trigger100Logs)
	}
	s.syncLeaderboard(ctx)
	return out, entry
}

// ─── Internals (caller holds mu) ────────────────────────────────────────────

func (s *Service) grantUserXP(ctx context.Context, out *Outcome, amount int64, source domain.XPSource) {
	if amount == 0 {
		return
	}
	before := s.progress.Level
	s.progress = AddXP(s.progress, amount)
	out.Changed = true
	metrics.XPAwarded.WithLabelValues(string(source)).Add(float64(amount))

	if s.progress.Level > before {
		out.LeveledUp = true
		metrics.LevelUps.WithLabelValues("user").Add(float64(s.progress.Level - before))
		s.log.Info("level up", "level", s.progress.Level, "source", source)
		s.notify(ctx, domain.NotifyLevelUp,
			fmt.Sprintf("Level %d!", s.progress.Level),
			fmt.Sprintf("You reached level %d.", s.progress.Level))
	}

	s.persist(ctx, out, domain.EntityProgress, s.store.SaveProgress(ctx, s.progress))
	s.syncLeaderboard(ctx)
}

func (s *Service) unlock(ctx context.Context, out *Outcome, trigger domain.Trigger) {
	set := make(map[string]bool, len(s.unlocked))
	for id := range s.unlocked {
		set[id] = true
	}
	a, ok := CheckAndUnlock(s.opts.Achievements, set, trigger, s.opts.Clock().UTC())
	if !ok {
		return
	}
	s.unlocked[a.ID] = a
	out.Changed = true
	out.Unlocked = append(out.Unlocked, a)
	metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
	s.log.Info("achievement unlocked", "achievement", a.ID)

	s.persist(ctx, out, domain.EntityAchievements, s.store.SaveAchievement(ctx, a))
	s.rewardPet(ctx, out, domain.AchievementPetXP, domain.AchievementHappiness)
	s.notify(ctx, domain.NotifyAchievement,
		"Achievement unlocked: "+a.Title,
		a.Description)
}

func (s *Service) rewardPet(ctx context.Context, out *Outcome, xp int64, happiness int) {
	pet, leveled := RewardPet(s.pet, xp, happiness)
	s.pet = pet
	out.Changed = true
	if leveled {
		out.PetLeveledUp = true
		metrics.LevelUps.WithLabelValues("pet").Inc()
		s.notify(ctx, domain.NotifyPetLevelUp,
			fmt.Sprintf("%s grew!", s.pet.Name),
			fmt.Sprintf("%s reached level %d.", s.pet.Name, s.pet.Level))
	}
	s.persist(ctx, out, domain.EntityPet, s.store.SavePet(ctx, s.pet))
}

// persist records a best-effort write result. The failure is logged,
// counted and reported but never undoes the in-memory change.
func (s *Service) persist(ctx context.Context, out *Outcome, entity domain.EntityType, err error) {
	if err == nil {
		return
	}
	out.PersistErr = errors.Join(out.PersistErr, err)
	metrics.PersistFailures.WithLabelValues(string(entity)).Inc()
	logger.FromContext(ctx, s.log).Error("persist failed", "entity", entity, "error", err)
	if s.opts.OnPersistError != nil {
		s.opts.OnPersistError(s.userID, entity, err)
	}
}

func (s *Service) notify(ctx context.Context, typ domain.NotificationType, title, body string) {
	if s.opts.Notifier == nil {
		return
	}
	n := domain.Notification{
		UserID:    s.userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		CreatedAt: s.opts.Clock().UTC(),
	}
	if _, err := s.opts.Notifier.Notify(ctx, n); err != nil {
		logger.FromContext(ctx, s.log).Warn("notification dropped", "type", typ, "error", err)
	}
}

func (s *Service) syncLeaderboard(ctx context.Context) {
	if s.opts.Leaderboard == nil {
		return
	}
	entry := domain.LeaderboardEntry{
		UserID:    s.userID,
		Level:     s.progress.Level,
		XP:        s.progress.XP,
		Streak:    s.streak,
		UpdatedAt: s.opts.Clock().UTC(),
	}
	if err := s.opts.Leaderboard.Sync(ctx, entry); err != nil {
		logger.FromContext(ctx, s.log).Warn("leaderboard sync failed", "error", err)
	}
}
