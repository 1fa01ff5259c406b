package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelTable  = "table"
	labelGroup  = "group"
	labelResult = "result"
	labelSkill  = "skill"

	// ResultSpawned labels a roll that produced an outcome.
	ResultSpawned = "spawned"
	// ResultNothing labels a roll whose pool was exhausted.
	ResultNothing = "nothing"
)

// Metrics holds the game core's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SpawnRolls        *prometheus.CounterVec
	SpawnEmptyDraws   *prometheus.CounterVec
	EncountersCleared prometheus.Counter
	SkillLevelUps     *prometheus.CounterVec
	TickDuration      prometheus.Histogram
}

// NewMetrics registers the game collectors on reg.
//
// Precondition: reg must be non-nil; each registry accepts one Metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SpawnRolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idle_spawn_rolls_total",
			Help: "Spawn selections by table and result.",
		}, []string{labelTable, labelResult}),
		SpawnEmptyDraws: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idle_spawn_empty_draws_total",
			Help: "Selected spawn groups that produced nothing.",
		}, []string{labelTable, labelGroup}),
		EncountersCleared: f.NewCounter(prometheus.CounterOpts{
			Name: "idle_encounters_cleared_total",
			Help: "Encounters completed by the runner.",
		}),
		SkillLevelUps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idle_skill_level_ups_total",
			Help: "Skill levels gained.",
		}, []string{labelSkill}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idle_tick_duration_seconds",
			Help:    "Wall time spent in one simulation step.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// SpawnRoll records the result of one selection against table.
func (m *Metrics) SpawnRoll(table string, spawned bool) {
	if m == nil {
		return
	}
	result := ResultNothing
	if spawned {
		result = ResultSpawned
	}
	m.SpawnRolls.WithLabelValues(table, result).Inc()
}

// EmptyDraw records a selected group that produced nothing.
func (m *Metrics) EmptyDraw(table, group string) {
	if m == nil {
		return
	}
	m.SpawnEmptyDraws.WithLabelValues(table, group).Inc()
}

// EncounterCleared records a finished encounter.
func (m *Metrics) EncounterCleared() {
	if m == nil {
		return
	}
	m.EncountersCleared.Inc()
}

// LevelUp records levels gained by skill.
func (m *Metrics) LevelUp(skill string, levels int) {
	if m == nil || levels <= 0 {
		return
	}
	m.SkillLevelUps.WithLabelValues(skill).Add(float64(levels))
}

// ObserveTick records the duration of one step in seconds.
func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(seconds)
}
