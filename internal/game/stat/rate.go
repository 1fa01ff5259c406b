// Package stat models derived numeric quantities: a mutable base combined with
// modifiers contributed by named sources (gear, upgrades, hall bonuses).
package stat

import "math"

// Combine selects how modifiers fold into the base.
type Combine int

const (
	// Additive yields base + sum(modifiers).
	Additive Combine = iota
	// Multiplicative yields base * product(modifiers).
	Multiplicative
)

// Modifier is a single contribution to a Rate, keyed by its source.
type Modifier struct {
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

// Rate is a value derived from a base plus modifiers.
//
// Invariant: Value() is always computed from Base and the current modifier
// list; there is no cached result that could drift from its inputs.
//
// Rate is not safe for concurrent mutation; the game loop owns it.
type Rate struct {
	base    float64
	combine Combine
	mods    []Modifier
}

// RateOption configures a Rate at construction.
type RateOption func(*Rate)

// WithCombine sets the modifier combination rule.
func WithCombine(c Combine) RateOption {
	return func(r *Rate) { r.combine = c }
}

// WithModifier seeds the Rate with a modifier.
func WithModifier(source string, amount float64) RateOption {
	return func(r *Rate) { r.SetModifier(source, amount) }
}

// NewRate returns a Rate with the given base.
//
// Postcondition: Value() == base when no modifiers are supplied.
func NewRate(base float64, opts ...RateOption) *Rate {
	r := &Rate{base: base}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Base returns the unmodified base.
func (r *Rate) Base() float64 { return r.base }

// SetBase replaces the base. The next Value() read reflects it.
func (r *Rate) SetBase(v float64) { r.base = v }

// Combine returns the combination rule.
func (r *Rate) Combine() Combine { return r.combine }

// SetModifier adds or replaces the modifier for source.
func (r *Rate) SetModifier(source string, amount float64) {
	for i := range r.mods {
		if r.mods[i].Source == source {
			r.mods[i].Amount = amount
			return
		}
	}
	r.mods = append(r.mods, Modifier{Source: source, Amount: amount})
}

// RemoveModifier drops the modifier for source. Reports whether one existed.
func (r *Rate) RemoveModifier(source string) bool {
	for i := range r.mods {
		if r.mods[i].Source == source {
			r.mods = append(r.mods[:i], r.mods[i+1:]...)
			return true
		}
	}
	return false
}

// Modifiers returns a copy of the active modifiers in insertion order.
func (r *Rate) Modifiers() []Modifier {
	return append([]Modifier(nil), r.mods...)
}

// ModifierSum returns the folded modifier contribution: the sum for Additive,
// the product for Multiplicative (1 when there are none).
func (r *Rate) ModifierSum() float64 {
	if r.combine == Multiplicative {
		p := 1.0
		for _, m := range r.mods {
			p *= m.Amount
		}
		return p
	}
	s := 0.0
	for _, m := range r.mods {
		s += m.Amount
	}
	return s
}

// Value returns the effective value. NaN inputs propagate.
func (r *Rate) Value() float64 {
	if r.combine == Multiplicative {
		return r.base * r.ModifierSum()
	}
	return r.base + r.ModifierSum()
}

// Valid reports whether Value() is a finite number.
// A nil Rate is not valid.
func (r *Rate) Valid() bool {
	if r == nil {
		return false
	}
	v := r.Value()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
