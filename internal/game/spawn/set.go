package spawn

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlerpg/internal/game/dice"
	"github.com/cory-johannsen/idlerpg/internal/notify"
	"github.com/cory-johannsen/idlerpg/internal/observability"
)

// Set performs weighted selection across its candidates, re-rolling among
// the remaining candidates whenever the chosen one produces nothing.
//
// Invariant: the candidate slice is never mutated after NewSet; each Random
// call works on its own copy, so concurrent calls share no mutable state.
type Set struct {
	name     string
	groups   []Candidate
	src      dice.Source
	notifier notify.Notifier
	metrics  *observability.Metrics
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithSource sets the randomness for selection draws.
func WithSource(src dice.Source) SetOption {
	return func(s *Set) { s.src = src }
}

// WithNotifier sets the warning channel.
func WithNotifier(n notify.Notifier) SetOption {
	return func(s *Set) { s.notifier = notify.OrNop(n) }
}

// WithMetrics sets the metrics sink; nil disables metrics.
func WithMetrics(m *observability.Metrics) SetOption {
	return func(s *Set) { s.metrics = m }
}

// NewSet builds a Set named name over groups. Groups with a zero, negative
// or NaN weight are kept and reported once through the notifier.
//
// Postcondition: the Set holds its own copy of groups.
func NewSet(name string, groups []Candidate, opts ...SetOption) *Set {
	s := &Set{
		name:     name,
		groups:   append([]Candidate(nil), groups...),
		src:      dice.NewCryptoSource(),
		notifier: notify.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, g := range s.groups {
		if w := g.Weight(); math.IsNaN(w) || w <= 0 {
			s.notifier.Warn("spawn: group weight contributes nothing to the total",
				zap.String("table", s.name),
				zap.String("group", g.ID()),
				zap.Float64("weight", w),
			)
		}
	}
	return s
}

// Name returns the table name.
func (s *Set) Name() string { return s.name }

// Len returns the number of candidates.
func (s *Set) Len() int { return len(s.groups) }

// WeightTotal sums the valid weights, recomputed on every call. NaN,
// infinite and negative weights are skipped with a warning.
func (s *Set) WeightTotal() float64 {
	total := 0.0
	for _, g := range s.groups {
		w, ok := usable(g.Weight())
		if !ok {
			s.notifier.Warn("spawn: skipping invalid group weight",
				zap.String("table", s.name),
				zap.String("group", g.ID()),
				zap.Float64("weight", g.Weight()),
			)
		}
		total += w
	}
	return total
}

// Random returns one non-empty outcome for progress.
//
// A draw p is taken uniformly from [0, weightLeft) and the first candidate
// whose cumulative weight satisfies p <= cumulative is chosen, so ties go to
// the earlier candidate. When the chosen candidate produces nothing its
// weight leaves weightLeft, it leaves the pool, and the draw repeats.
//
// Postcondition: Instantiate is called at most Len() times; ok == false
// (with a warning) only when every candidate produced nothing.
func (s *Set) Random(progress float64) (Outcome, bool) {
	weightLeft := s.WeightTotal()
	pool := make([]Candidate, len(s.groups))
	copy(pool, s.groups)

	for len(pool) > 0 {
		p := dice.Uniform(s.src, 0, weightLeft)
		idx := s.pick(pool, p, weightLeft)
		g := pool[idx]

		if out, ok := g.Instantiate(progress); ok {
			s.metrics.SpawnRoll(s.name, true)
			return out, true
		}

		s.metrics.EmptyDraw(s.name, g.ID())
		w, _ := usable(g.Weight())
		weightLeft -= w
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	s.notifier.Warn("spawn: every group produced nothing",
		zap.String("table", s.name),
		zap.Float64("progress", progress),
		zap.Int("groups", len(s.groups)),
	)
	s.metrics.SpawnRoll(s.name, false)
	return Outcome{}, false
}

// pick walks pool and returns the index of the first candidate whose running
// weight total reaches p. If float rounding leaves p above the final total,
// the last candidate is chosen and a warning is emitted.
func (s *Set) pick(pool []Candidate, p, weightLeft float64) int {
	cumulative := 0.0
	for i, g := range pool {
		w, _ := usable(g.Weight())
		cumulative += w
		if p <= cumulative {
			return i
		}
	}
	s.notifier.Warn("spawn: rolled value exceeds weight total, using last group",
		zap.String("table", s.name),
		zap.Float64("rolled", p),
		zap.Float64("cumulative", cumulative),
		zap.Float64("weight_left", weightLeft),
	)
	return len(pool) - 1
}

// usable maps a weight to its contribution: NaN, infinite and negative
// weights count as 0.
func usable(w float64) (float64, bool) {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, false
	}
	return w, true
}
