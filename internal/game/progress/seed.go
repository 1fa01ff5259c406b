package progress

import (
	"github.com/cory-johannsen/idlerpg/internal/game/stat"
	"github.com/cory-johannsen/idlerpg/internal/notify"
)

// Seed is the boundary form of an accumulator: either a raw saved number or an
// existing accumulator. Normalize turns either into the canonical type.
type Seed struct {
	raw     float64
	wrapped *Accumulator
}

// Raw seeds a fresh accumulator from a saved number.
func Raw(v float64) Seed { return Seed{raw: v} }

// Wrapped seeds from an existing accumulator.
func Wrapped(a *Accumulator) Seed { return Seed{wrapped: a} }

// IsWrapped reports whether the seed carries an existing accumulator.
func (s Seed) IsWrapped() bool { return s.wrapped != nil }

// Normalize resolves seed to an Accumulator.
//
// Raw seeds build a new accumulator with id, scale and n. Wrapped seeds return
// the same instance; when scale is non-nil it replaces the bound scale in place.
//
// Postcondition: Normalize(Wrapped(a), ...) == a.
func Normalize(seed Seed, id string, scale *stat.Rate, n notify.Notifier) *Accumulator {
	if seed.wrapped != nil {
		if scale != nil {
			seed.wrapped.SetScale(scale)
		}
		return seed.wrapped
	}
	return New(id, seed.raw, scale, n)
}
