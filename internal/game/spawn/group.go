package spawn

import (
	"math"

	"github.com/google/uuid"

	"github.com/cory-johannsen/idlerpg/internal/game/dice"
)

// Candidate is one weighted entry of a Set.
//
// Implementations MUST be safe for concurrent use when the Set is shared.
type Candidate interface {
	ID() string
	// Weight is the relative selection mass. It never changes after construction.
	Weight() float64
	// Instantiate produces an outcome for the given progress indicator, or
	// reports false when the candidate produced nothing this time.
	Instantiate(progress float64) (Outcome, bool)
}

// GateFunc decides whether a gated group may produce an outcome.
type GateFunc func(hook, groupID string, progress float64) bool

// Member is a resolved group member: which monster, how many, and in which
// part of the run it appears.
type Member struct {
	Template    *Template
	Count       dice.Expression
	MinProgress float64
	MaxProgress float64
	LevelSpread int
}

func (m Member) active(progress float64) bool {
	return progress >= m.MinProgress && progress <= m.MaxProgress
}

// Group is the content-driven Candidate: an outer weight, an inner chance
// gate, an optional scripted gate, and a member list filtered by progress.
type Group struct {
	id      string
	weight  float64
	chance  float64
	hook    string
	gate    GateFunc
	members []Member
	roller  *dice.Roller
}

// NewGroup builds a Group.
//
// Precondition: roller must be non-nil; gate must be non-nil when hook is set.
// A chance outside (0, 1] means the group always passes its chance gate.
func NewGroup(id string, weight, chance float64, members []Member, roller *dice.Roller, hook string, gate GateFunc) *Group {
	if chance <= 0 || chance > 1 {
		chance = 1
	}
	return &Group{
		id:      id,
		weight:  weight,
		chance:  chance,
		hook:    hook,
		gate:    gate,
		members: append([]Member(nil), members...),
		roller:  roller,
	}
}

func (g *Group) ID() string      { return g.id }
func (g *Group) Weight() float64 { return g.weight }

// Instantiate rolls the chance gate, consults the scripted gate, then rolls a
// count for every member whose progress window contains progress.
//
// Postcondition: ok == true iff the outcome holds at least one monster.
func (g *Group) Instantiate(progress float64) (Outcome, bool) {
	if !dice.Chance(g.roller, g.chance) {
		return Outcome{}, false
	}
	if g.hook != "" && g.gate != nil && !g.gate(g.hook, g.id, progress) {
		return Outcome{}, false
	}

	out := Outcome{GroupID: g.id}
	for _, m := range g.members {
		if !m.active(progress) {
			continue
		}
		n := g.roller.Roll(m.Count).Total()
		level := m.Template.Level + int(math.Floor(progress*float64(m.LevelSpread)))
		for i := 0; i < n; i++ {
			out.Monsters = append(out.Monsters, Monster{
				InstanceID: uuid.New().String(),
				TemplateID: m.Template.ID,
				Name:       m.Template.Name,
				Level:      level,
			})
		}
	}
	if out.Empty() {
		return Outcome{}, false
	}
	return out, true
}
