// Package metrics provides Prometheus metrics for chompy.
// Counters for XP, levels, achievements, challenges and the pet, plus
// persistence failures, session and HTTP gauges, and health status.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// XPAwarded tracks XP granted to users by source.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded to users.",
}, []string{"source"})

// LevelUps tracks level transitions per ledger ("user" or "pet").
var LevelUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "level_ups_total",
	Help:      "Total level increases by ledger.",
}, []string{"ledger"})

// ─── Achievements ───────────────────────────────────────────────────────────

// AchievementsUnlocked tracks first-time unlocks by achievement id.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
}, []string{"id"})

// ─── Challenges ─────────────────────────────────────────────────────────────

// ChallengesAccepted tracks challenges created from a template.
var ChallengesAccepted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "challenges_accepted_total",
	Help:      "Total challenges accepted.",
})

// ChallengesCompleted tracks challenges reaching their target.
var ChallengesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "challenges_completed_total",
	Help:      "Total challenges completed.",
})

// ─── Pet ────────────────────────────────────────────────────────────────────

// PetFeeds tracks direct feed interactions.
var PetFeeds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "pet_feeds_total",
	Help:      "Total pet feed interactions.",
})

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistFailures tracks best-effort writes that did not reach the gateway.
var PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "persist_failures_total",
	Help:      "Total failed document writes by entity.",
}, []string{"entity"})

// DocCacheHits tracks document cache lookups by result ("hit" or "miss").
var DocCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chompy",
	Name:      "doc_cache_lookups_total",
	Help:      "Document cache lookups by result.",
}, []string{"result"})

// ─── Sessions ───────────────────────────────────────────────────────────────

// SessionsActive tracks loaded per-user services.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "chompy",
	Name:      "sessions_active",
	Help:      "Number of loaded user sessions.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequestDuration tracks API latency by route pattern and status.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "chompy",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"route", "status"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "chompy",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
