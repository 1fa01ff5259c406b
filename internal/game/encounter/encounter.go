// Package encounter models a fight against one spawned party as a timed
// progression toward a length derived from the party's level.
package encounter

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlerpg/internal/game/progress"
	"github.com/cory-johannsen/idlerpg/internal/game/spawn"
	"github.com/cory-johannsen/idlerpg/internal/game/stat"
	"github.com/cory-johannsen/idlerpg/internal/notify"
)

// LengthPerLevel is the default span per encounter level.
const LengthPerLevel = 5

// Save is the plain-data form of an Encounter. Zero fields take defaults.
// Rate, Modifiers and Multiplicative describe a private rate; they are ignored
// when the encounter is bound to a shared rate, whose owner restores it.
type Save struct {
	ID             string          `json:"id"`
	Level          int             `json:"level"`
	Rate           *float64        `json:"rate,omitempty"`
	Modifiers      []stat.Modifier `json:"modifiers,omitempty"`
	Multiplicative bool            `json:"multiplicative,omitempty"`
	Experience     float64         `json:"experience"`
	Length         float64         `json:"length,omitempty"`
	Party          *spawn.Outcome  `json:"party,omitempty"`
}

// Encounter is an active fight.
//
// Invariant: Done() is derived from Experience and Length on every call.
type Encounter struct {
	ID         string
	Level      int
	Rate       *stat.Rate
	Experience *progress.Accumulator
	Party      spawn.Outcome
	length     float64
	notifier   notify.Notifier
}

// New builds an Encounter from save data merged over defaults: Level 1,
// rate 1, and a length of LengthPerLevel*Level. A non-nil shared rate is
// bound instead of a private one.
func New(save Save, shared *stat.Rate, n notify.Notifier) *Encounter {
	level := save.Level
	if level < 1 {
		level = 1
	}
	rate := shared
	if rate == nil {
		base := 1.0
		if save.Rate != nil {
			base = *save.Rate
		}
		opts := make([]stat.RateOption, 0, len(save.Modifiers)+1)
		if save.Multiplicative {
			opts = append(opts, stat.WithCombine(stat.Multiplicative))
		}
		for _, m := range save.Modifiers {
			opts = append(opts, stat.WithModifier(m.Source, m.Amount))
		}
		rate = stat.NewRate(base, opts...)
	}
	length := save.Length
	if length <= 0 {
		length = float64(LengthPerLevel * level)
	}
	e := &Encounter{
		ID:       save.ID,
		Level:    level,
		Rate:     rate,
		length:   length,
		notifier: notify.OrNop(n),
	}
	if save.Party != nil {
		e.Party = *save.Party
	}
	e.Experience = progress.Normalize(progress.Raw(save.Experience), save.ID+".experience", rate, n)
	return e
}

// FromOutcome starts a fresh encounter against out. The level is the sum of
// the party's monster levels.
func FromOutcome(id string, out spawn.Outcome, shared *stat.Rate, n notify.Notifier) *Encounter {
	level := 0
	for _, m := range out.Monsters {
		level += m.Level
	}
	party := out
	return New(Save{ID: id, Level: level, Party: &party}, shared, n)
}

// Length returns the target span.
func (e *Encounter) Length() float64 { return e.length }

// Update advances the fight by dt, scaled once by Rate.
func (e *Encounter) Update(dt float64) {
	e.Experience.AddUnscaled(dt)
}

// Done reports whether the accumulated progress reached Length.
func (e *Encounter) Done() bool {
	return e.Experience.Current() >= e.length
}

// Progress returns completion in [0, 1].
func (e *Encounter) Progress() float64 {
	if e.length <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, e.Experience.Current()/e.length))
}

// Snapshot returns the plain-data form. A rate whose value is not finite is
// left out with a warning, so the encounter reloads with the default rate.
func (e *Encounter) Snapshot() Save {
	party := e.Party
	out := Save{
		ID:         e.ID,
		Level:      e.Level,
		Experience: e.Experience.Current(),
		Length:     e.length,
		Party:      &party,
	}
	if !e.Rate.Valid() {
		e.notifier.Warn("encounter: invalid rate not saved",
			zap.String("encounter", e.ID),
			zap.Bool("bound", e.Rate != nil),
		)
		return out
	}
	rate := e.Rate.Base()
	out.Rate = &rate
	out.Modifiers = e.Rate.Modifiers()
	out.Multiplicative = e.Rate.Combine() == stat.Multiplicative
	return out
}
