// Package dice provides the randomness abstraction used by spawn selection and
// party sizing, plus a small dice-expression roller for member counts.
package dice

import "fmt"

// Source is the randomness provider for every roll in the game core.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// Uniform returns a value drawn uniformly from [lo, hi).
// When hi <= lo the result is lo, so Uniform(src, 0, 0) == 0.
//
// Postcondition: lo <= result <= hi.
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// Chance reports whether a probability gate p passes.
// p <= 0 never passes, p >= 1 always passes without consuming a draw.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// RollResult holds the audit trail for a single count roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "1d3+1 = [2] +1 = 3".
func (r RollResult) String() string {
	return fmt.Sprintf("%s = %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
