// Package progress provides the scaled accumulator behind experience and
// encounter progress.
package progress

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlerpg/internal/game/stat"
	"github.com/cory-johannsen/idlerpg/internal/notify"
)

// Accumulator is a running total bound to a rate.
//
// Callers that have already applied the rate use AddScaled; callers holding a
// raw amount use AddUnscaled so the rate is applied exactly once.
//
// Invariant: current never becomes NaN through AddUnscaled.
type Accumulator struct {
	id       string
	current  float64
	scale    *stat.Rate
	notifier notify.Notifier
}

// New returns an accumulator starting at current with the given scale.
//
// Precondition: id should be non-empty; it keys save data.
func New(id string, current float64, scale *stat.Rate, n notify.Notifier) *Accumulator {
	return &Accumulator{
		id:       id,
		current:  current,
		scale:    scale,
		notifier: notify.OrNop(n),
	}
}

// ID returns the save key.
func (a *Accumulator) ID() string { return a.id }

// Current returns the accumulated total.
func (a *Accumulator) Current() float64 { return a.current }

// Set overwrites the total, for restoring save data.
func (a *Accumulator) Set(v float64) { a.current = v }

// Reset sets the total back to zero.
func (a *Accumulator) Reset() { a.current = 0 }

// Scale returns the bound rate (may be nil).
func (a *Accumulator) Scale() *stat.Rate { return a.scale }

// SetScale rebinds the rate.
func (a *Accumulator) SetScale(r *stat.Rate) { a.scale = r }

// AddScaled adds amount as-is. Negative amounts are permitted.
func (a *Accumulator) AddScaled(amount float64) {
	a.current += amount
}

// AddUnscaled adds amount multiplied by the bound rate's value.
// An unbound or non-finite rate leaves current untouched and emits a warning.
//
// Postcondition: returns true iff current changed by amount * Scale().Value().
func (a *Accumulator) AddUnscaled(amount float64) bool {
	if !a.scale.Valid() {
		value := 0.0
		if a.scale != nil {
			value = a.scale.Value()
		}
		a.notifier.Warn("accumulator: invalid scale, unscaled add skipped",
			zap.String("id", a.id),
			zap.Float64("amount", amount),
			zap.Float64("scale", value),
			zap.Bool("bound", a.scale != nil),
		)
		return false
	}
	a.current += amount * a.scale.Value()
	return true
}
