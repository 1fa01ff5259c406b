package gameserver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlerpg/internal/game/encounter"
	"github.com/cory-johannsen/idlerpg/internal/game/skill"
	"github.com/cory-johannsen/idlerpg/internal/game/spawn"
	"github.com/cory-johannsen/idlerpg/internal/game/stat"
	"github.com/cory-johannsen/idlerpg/internal/notify"
	"github.com/cory-johannsen/idlerpg/internal/observability"
	"github.com/cory-johannsen/idlerpg/internal/save"
)

// ErrUnknownSkill is returned when a skill id has no definition.
var ErrUnknownSkill = errors.New("unknown skill")

// RunnerConfig carries the static inputs of a Runner.
type RunnerConfig struct {
	CharacterID   string
	Name          string
	HallID        string
	DungeonLength int
	Spawns        *spawn.Set
	Skills        []skill.Def
	Notifier      notify.Notifier
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	// NewID generates encounter ids; defaults to uuid.NewString.
	NewID func() string
	// Now stamps saves; defaults to time.Now.
	Now func() time.Time
}

// Runner drives one character through the dungeon: the current encounter
// and every unlocked skill advance on each tick.
//
// Invariant: at most one encounter is active; a nil encounter is rolled on
// the next tick.
type Runner struct {
	mu        sync.Mutex
	cfg       RunnerConfig
	speed     *stat.Rate
	current   *encounter.Encounter
	skills    map[string]*skill.Skill
	order     []string
	active    string
	cleared   int
	gold      float64
	hallName  string
	hallChars []string
}

// NewRunner builds a Runner from static config and previously saved state.
// Zero-valued char and hall start a fresh run.
//
// Precondition: cfg.Spawns must be non-nil and cfg.DungeonLength >= 1.
func NewRunner(cfg RunnerConfig, char save.CharData, hall save.HallData) *Runner {
	cfg.Notifier = notify.OrNop(cfg.Notifier)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Name == "" {
		cfg.Name = char.Name
	}

	r := &Runner{
		cfg:       cfg,
		speed:     stat.NewRate(1),
		skills:    make(map[string]*skill.Skill, len(cfg.Skills)),
		cleared:   char.Cleared,
		gold:      hall.Gold,
		hallName:  hall.Name,
		hallChars: slices.Clone(hall.Chars),
	}
	if char.Encounter != nil {
		r.current = encounter.New(*char.Encounter, r.speed, cfg.Notifier)
	}
	for _, def := range cfg.Skills {
		s := skill.New(def, char.Skills[def.ID], cfg.Notifier)
		r.skills[def.ID] = s
		r.order = append(r.order, def.ID)
		if r.active == "" && !s.Locked {
			r.active = def.ID
		}
	}
	if !slices.Contains(r.hallChars, cfg.CharacterID) {
		r.hallChars = append(r.hallChars, cfg.CharacterID)
	}
	return r
}

// LoadRunner restores a Runner from store. Missing records start fresh.
//
// Postcondition: Returns a Runner or the first non-ErrNotFound store error.
func LoadRunner(ctx context.Context, store save.Store, cfg RunnerConfig) (*Runner, error) {
	char, err := store.LoadChar(ctx, cfg.CharacterID)
	if err != nil && !errors.Is(err, save.ErrNotFound) {
		return nil, fmt.Errorf("restoring runner: %w", err)
	}
	hall, err := store.LoadHall(ctx, cfg.HallID)
	if err != nil && !errors.Is(err, save.ErrNotFound) {
		return nil, fmt.Errorf("restoring runner: %w", err)
	}
	return NewRunner(cfg, char, hall), nil
}

// Speed returns the rate shared by every encounter this runner starts.
func (r *Runner) Speed() *stat.Rate { return r.speed }

// Progress returns the dungeon progress indicator in [0, 1].
func (r *Runner) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress()
}

func (r *Runner) progress() float64 {
	return min(1, float64(r.cleared)/float64(r.cfg.DungeonLength))
}

// Tick advances the run by dt seconds.
func (r *Runner) Tick(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		r.roll()
	} else {
		r.current.Update(dt)
		if r.current.Done() {
			r.clear()
			r.roll()
		}
	}

	for _, id := range r.order {
		s := r.skills[id]
		if n := s.Update(dt); n > 0 {
			r.levelUp(s, n)
		}
	}
}

func (r *Runner) roll() {
	out, ok := r.cfg.Spawns.Random(r.progress())
	if !ok {
		r.current = nil
		return
	}
	r.current = encounter.FromOutcome(r.cfg.NewID(), out, r.speed, r.cfg.Notifier)
	r.cfg.Logger.Debug("encounter started",
		zap.String("encounter", r.current.ID),
		zap.String("group", out.GroupID),
		zap.Int("monsters", len(out.Monsters)),
		zap.Int("level", r.current.Level),
	)
}

// clear retires the current encounter and pays out its rewards.
func (r *Runner) clear() {
	done := r.current
	r.current = nil
	r.cleared++
	r.gold += float64(done.Level)
	r.cfg.Metrics.EncounterCleared()
	r.cfg.Logger.Debug("encounter cleared",
		zap.String("encounter", done.ID),
		zap.Int("cleared", r.cleared),
		zap.Float64("gold", r.gold),
	)
	if s, ok := r.skills[r.active]; ok {
		if n := s.Train(float64(len(done.Party.Monsters))); n > 0 {
			r.levelUp(s, n)
		}
	}
}

func (r *Runner) levelUp(s *skill.Skill, levels int) {
	r.cfg.Metrics.LevelUp(s.ID(), levels)
	r.cfg.Logger.Info("skill level up",
		zap.String("skill", s.ID()),
		zap.Int("level", s.Level),
		zap.Int("gained", levels),
	)
}

// SetActive selects the skill credited with encounter rewards.
func (r *Runner) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skills[id]; !ok {
		return fmt.Errorf("activating %q: %w", id, ErrUnknownSkill)
	}
	r.active = id
	return nil
}

// BuySkill unlocks id with hall gold.
//
// Postcondition: on success the skill is unlocked and its cost deducted.
func (r *Runner) BuySkill(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills[id]
	if !ok {
		return fmt.Errorf("buying %q: %w", id, ErrUnknownSkill)
	}
	left, err := s.Unlock(r.gold)
	if err != nil {
		return err
	}
	r.gold = left
	if r.active == "" {
		r.active = id
	}
	return nil
}

// Status is a read-only view of a Runner.
type Status struct {
	CharacterID string          `json:"character_id"`
	Cleared     int             `json:"cleared"`
	Progress    float64         `json:"progress"`
	Gold        float64         `json:"gold"`
	Active      string          `json:"active_skill,omitempty"`
	Encounter   *encounter.Save `json:"encounter,omitempty"`
	Skills      []skill.Save    `json:"skills"`
}

// Status returns the current view.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		CharacterID: r.cfg.CharacterID,
		Cleared:     r.cleared,
		Progress:    r.progress(),
		Gold:        r.gold,
		Active:      r.active,
		Skills:      make([]skill.Save, 0, len(r.order)),
	}
	if r.current != nil {
		enc := r.current.Snapshot()
		st.Encounter = &enc
	}
	for _, id := range r.order {
		st.Skills = append(st.Skills, r.skills[id].Snapshot())
	}
	return st
}

// Snapshot returns the persisted form of the runner's character and hall.
func (r *Runner) Snapshot() (save.CharData, save.HallData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	char := save.CharData{
		ID:        r.cfg.CharacterID,
		Name:      r.cfg.Name,
		Skills:    make(map[string]skill.Save, len(r.skills)),
		Cleared:   r.cleared,
		UpdatedAt: r.cfg.Now().UTC(),
	}
	if r.current != nil {
		enc := r.current.Snapshot()
		char.Encounter = &enc
	}
	for id, s := range r.skills {
		char.Skills[id] = s.Snapshot()
	}
	hall := save.HallData{
		ID:    r.cfg.HallID,
		Name:  r.hallName,
		Chars: slices.Clone(r.hallChars),
		Gold:  r.gold,
	}
	return char, hall
}

// Save writes the runner's snapshot to store.
func (r *Runner) Save(ctx context.Context, store save.Store) error {
	char, hall := r.Snapshot()
	if err := store.SaveChar(ctx, char, char.ID); err != nil {
		return fmt.Errorf("saving runner: %w", err)
	}
	if err := store.SaveHall(ctx, hall, hall.ID); err != nil {
		return fmt.Errorf("saving runner: %w", err)
	}
	return nil
}
