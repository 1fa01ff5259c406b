// Package spawn selects what the player meets next: weighted spawn groups,
// each able to produce a monster party or nothing, and the set that picks
// among them with re-rolls on failure.
package spawn

// Monster is one spawned creature.
type Monster struct {
	InstanceID string `json:"instance_id"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
}

// Outcome is the party produced by a spawn group.
type Outcome struct {
	GroupID  string    `json:"group_id"`
	Monsters []Monster `json:"monsters"`
}

// Empty reports whether the outcome holds no monsters.
func (o Outcome) Empty() bool {
	return len(o.Monsters) == 0
}
