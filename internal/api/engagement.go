package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chompy-labs/chompy/internal/app/engagement"
	"github.com/chompy-labs/chompy/internal/domain"
	"github.com/chompy-labs/chompy/internal/logger"
)

// ─── Request Types ──────────────────────────────────────────────────────────

// A fixed source (meal_plan, planned_meal) may omit amount.
type addXPRequest struct {
	Amount *int64 `json:"amount" validate:"omitempty,gte=0,lte=1000000"`
	Source string `json:"source" validate:"xpsource"`
}

type unlockRequest struct {
	Trigger string `json:"trigger" validate:"required,trigger"`
}

type acceptChallengeRequest struct {
	TemplateIndex *int `json:"templateIndex" validate:"required"`
}

type progressRequest struct {
	Increment *int `json:"increment" validate:"omitempty,gte=0,lte=1000000"`
}

type logFoodRequest struct {
	Timestamp   string  `json:"timestamp" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Meal        string  `json:"meal" validate:"required,max=32"`
	Description string  `json:"description" validate:"required,max=500"`
	Calories    float64 `json:"calories" validate:"gte=0"`
	Protein     float64 `json:"protein" validate:"gte=0"`
	Carbs       float64 `json:"carbs" validate:"gte=0"`
	Fats        float64 `json:"fats" validate:"gte=0"`
}

// ─── Response Types ─────────────────────────────────────────────────────────

type challengeView struct {
	domain.Challenge
	DisplayCurrent int                    `json:"display_current"`
	ProgressPct    float64                `json:"progress_pct"`
	Status         domain.ChallengeStatus `json:"status"`
}

type templateView struct {
	Index int `json:"index"`
	domain.ChallengeTemplate
}

type outcomeResponse struct {
	Changed        bool                 `json:"changed"`
	LeveledUp      bool                 `json:"leveled_up"`
	PetLeveledUp   bool                 `json:"pet_leveled_up"`
	Completed      bool                 `json:"completed"`
	Unlocked       []domain.Achievement `json:"unlocked"`
	Challenge      *challengeView       `json:"challenge,omitempty"`
	Progress       domain.UserProgress  `json:"progress"`
	Pet            domain.PetState      `json:"pet"`
	Streak         int                  `json:"streak"`
	PersistWarning string               `json:"persist_warning,omitempty"`
}

func (s *Server) viewChallenge(c domain.Challenge) challengeView {
	return challengeView{
		Challenge:      c,
		DisplayCurrent: c.DisplayCurrent(),
		ProgressPct:    c.ProgressPct(),
		Status:         c.Status(s.now()),
	}
}

// outcome renders a mutation result with the session state after it.
// Persistence failures are reported as a warning, not an error status.
func (s *Server) outcome(svc *engagement.Service, out engagement.Outcome) outcomeResponse {
	snap := svc.Snapshot()
	resp := outcomeResponse{
		Changed:      out.Changed,
		LeveledUp:    out.LeveledUp,
		PetLeveledUp: out.PetLeveledUp,
		Completed:    out.Completed,
		Unlocked:     out.Unlocked,
		Progress:     snap.Progress,
		Pet:          snap.Pet,
		Streak:       snap.Streak,
	}
	if resp.Unlocked == nil {
		resp.Unlocked = []domain.Achievement{}
	}
	if out.Challenge != nil {
		v := s.viewChallenge(*out.Challenge)
		resp.Challenge = &v
	}
	if out.PersistErr != nil {
		resp.PersistWarning = "changes were applied but could not be saved"
	}
	return resp
}

// decode reads and validates a JSON body. An empty body decodes to the
// zero value so optional-only requests may omit it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if err := s.validate.ValidateStruct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"message": "validation failed",
				"type":    "validation_error",
				"fields":  FormatValidationError(err),
			},
		})
		return false
	}
	return true
}

// ─── Handlers ───────────────────────────────────────────────────────────────

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Snapshot())
}

func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	var req addXPRequest
	if !s.decode(w, r, &req) {
		return
	}
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	source := domain.XPSource(req.Source)
	if source == "" {
		source = domain.XPManual
	}
	var out engagement.Outcome
	var err error
	if req.Amount == nil {
		out, err = svc.Grant(r.Context(), source)
	} else {
		out, err = svc.AddXP(r.Context(), *req.Amount, source)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.outcome(svc, out))
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := svc.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": snap.Achievements,
		"unlocked":     snap.UnlockedCount,
		"total":        len(snap.Achievements),
	})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if !s.decode(w, r, &req) {
		return
	}
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	trigger, _ := domain.ParseTrigger(req.Trigger)
	out := svc.CheckAndUnlock(r.Context(), trigger)
	writeJSON(w, http.StatusOK, s.outcome(svc, out))
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	challenges := svc.Snapshot().Challenges
	views := make([]challengeView, len(challenges))
	for i, c := range challenges {
		views[i] = s.viewChallenge(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": views})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	templates := svc.Templates()
	views := make([]templateView, len(templates))
	for i, t := range templates {
		views[i] = templateView{Index: i, ChallengeTemplate: t}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": views})
}

func (s *Server) handleAcceptChallenge(w http.ResponseWriter, r *http.Request) {
	var req acceptChallengeRequest
	if !s.decode(w, r, &req) {
		return
	}
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := svc.AcceptChallenge(r.Context(), *req.TemplateIndex)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	code := http.StatusOK
	if out.Changed {
		code = http.StatusCreated
	}
	writeJSON(w, code, s.outcome(svc, out))
}

func (s *Server) handleChallengeProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !s.decode(w, r, &req) {
		return
	}
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	inc := 1
	if req.Increment != nil {
		inc = *req.Increment
	}
	out, err := svc.UpdateChallengeProgress(r.Context(), chi.URLParam(r, "challengeID"), inc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.outcome(svc, out))
}

func (s *Server) handleFeedPet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	out := svc.FeedPet(r.Context())
	writeJSON(w, http.StatusOK, s.outcome(svc, out))
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": svc.FoodLogs()})
}

func (s *Server) handleLogFood(w http.ResponseWriter, r *http.Request) {
	var req logFoodRequest
	if !s.decode(w, r, &req) {
		return
	}
	svc, ok := s.session(w, r)
	if !ok {
		return
	}
	out, entry := svc.LogFood(r.Context(), domain.FoodLogEntry{
		Timestamp:   req.Timestamp,
		Meal:        req.Meal,
		Description: req.Description,
		Calories:    req.Calories,
		Protein:     req.Protein,
		Carbs:       req.Carbs,
		Fats:        req.Fats,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"entry":   entry,
		"outcome": s.outcome(svc, out),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", 10)
	pending, err := s.feed.Pending(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	today, err := s.feed.TodayCount(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if pending == nil {
		pending = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": pending,
		"today":         today,
		"max_per_day":   s.feed.Policy().MaxPerDay,
	})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.feed.MarkShown(r.Context(), chi.URLParam(r, "userID"), id); err != nil {
		s.fail(w, r, err)
		return
	}
	logger.FromContext(r.Context(), s.log).Debug("notification shown", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
