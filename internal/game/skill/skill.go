// Package skill models trainable skills: levels gained by accumulating
// rate-scaled time against a logistic per-level requirement.
package skill

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/idlerpg/internal/game/progress"
	"github.com/cory-johannsen/idlerpg/internal/game/stat"
	"github.com/cory-johannsen/idlerpg/internal/notify"
)

// ErrAlreadyUnlocked is returned by Unlock on an unlocked skill.
var ErrAlreadyUnlocked = errors.New("skill already unlocked")

// ErrInsufficientFunds is returned by Unlock when funds do not cover BuyCost.
var ErrInsufficientFunds = errors.New("insufficient funds to unlock skill")

// LevelLength returns the experience required to advance from level.
// The curve starts near 11, rises steeply around level 50 and plateaus
// below 11 + 172789.
func LevelLength(level int) float64 {
	return math.Floor(11 + 172789/(1+math.Pow(1.2, float64(50-level))))
}

// Save is the plain-data form of a Skill.
type Save struct {
	ID         string  `json:"id"`
	Level      int     `json:"level"`
	Experience float64 `json:"experience"`
	Locked     *bool   `json:"locked,omitempty"`
}

// Skill is a trainable skill.
//
// Invariant: 0 <= Level <= Max; Length() is derived from Level on every call.
type Skill struct {
	def        Def
	Level      int
	Locked     bool
	Rate       *stat.Rate
	Experience *progress.Accumulator
}

// New builds a Skill from its definition with save merged over it.
//
// Precondition: def must have passed Validate.
func New(def Def, save Save, n notify.Notifier) *Skill {
	s := &Skill{
		def:    def,
		Locked: def.Locked,
		Rate:   stat.NewRate(def.Rate),
	}
	if save.Locked != nil {
		s.Locked = *save.Locked
	}
	s.SetLevel(save.Level)
	s.Experience = progress.Normalize(progress.Raw(save.Experience), def.ID+".experience", s.Rate, n)
	return s
}

// ID returns the skill identifier.
func (s *Skill) ID() string { return s.def.ID }

// Name returns the display name.
func (s *Skill) Name() string { return s.def.Name }

// Max returns the level cap.
func (s *Skill) Max() int { return s.def.Max }

// BuyCost returns the unlock price.
func (s *Skill) BuyCost() float64 { return s.def.BuyCost }

// SetLevel sets the level clamped to [0, Max].
func (s *Skill) SetLevel(level int) {
	s.Level = max(0, min(level, s.def.Max))
}

// Length returns the experience required for the next level.
func (s *Skill) Length() float64 {
	return LevelLength(s.Level)
}

// Capped reports whether the skill is at its level cap.
func (s *Skill) Capped() bool {
	return s.Level >= s.def.Max
}

// Done reports whether enough experience has accumulated for the next level.
func (s *Skill) Done() bool {
	return s.Experience.Current() >= s.Length()
}

// Unlock spends BuyCost from funds and unlocks the skill.
//
// Postcondition: returns the remaining funds, or an error with funds unchanged.
func (s *Skill) Unlock(funds float64) (float64, error) {
	if !s.Locked {
		return funds, fmt.Errorf("unlocking %q: %w", s.def.ID, ErrAlreadyUnlocked)
	}
	if funds < s.def.BuyCost {
		return funds, fmt.Errorf("unlocking %q (cost %v, have %v): %w", s.def.ID, s.def.BuyCost, funds, ErrInsufficientFunds)
	}
	s.Locked = false
	return funds - s.def.BuyCost, nil
}

// Train credits already-scaled experience, e.g. a reward computed elsewhere,
// and applies any resulting level-ups. Locked and capped skills ignore it.
func (s *Skill) Train(amount float64) int {
	if s.Locked || s.Capped() {
		return 0
	}
	s.Experience.AddScaled(amount)
	return s.levelUp()
}

// Update advances training by dt scaled once by Rate and returns the number
// of levels gained. Locked and capped skills do not advance.
func (s *Skill) Update(dt float64) int {
	if s.Locked || s.Capped() {
		return 0
	}
	s.Experience.AddUnscaled(dt)
	return s.levelUp()
}

func (s *Skill) levelUp() int {
	gained := 0
	for !s.Capped() && s.Done() {
		s.Experience.AddScaled(-s.Length())
		s.Level++
		gained++
	}
	return gained
}

// Snapshot returns the plain-data form.
func (s *Skill) Snapshot() Save {
	locked := s.Locked
	return Save{
		ID:         s.def.ID,
		Level:      s.Level,
		Experience: s.Experience.Current(),
		Locked:     &locked,
	}
}
