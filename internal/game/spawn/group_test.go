package spawn_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlerpg/internal/game/dice"
	"github.com/cory-johannsen/idlerpg/internal/game/spawn"
	"github.com/cory-johannsen/idlerpg/internal/notify"
)

func testRoller(seed uint64) *dice.Roller {
	return dice.NewLoggedRoller(dice.NewSeededSource(seed), zap.NewNop())
}

var (
	goblin = &spawn.Template{ID: "goblin", Name: "Goblin", Level: 2}
	wraith = &spawn.Template{ID: "wraith", Name: "Wraith", Level: 6}
)

func TestGroup_InstantiateRollsCounts(t *testing.T) {
	g := spawn.NewGroup("pack", 1, 1, []spawn.Member{
		{Template: goblin, Count: dice.MustParse("3"), MaxProgress: 1},
	}, testRoller(1), "", nil)

	out, ok := g.Instantiate(0)
	require.True(t, ok)
	assert.Equal(t, "pack", out.GroupID)
	require.Len(t, out.Monsters, 3)
	ids := map[string]bool{}
	for _, m := range out.Monsters {
		assert.Equal(t, "goblin", m.TemplateID)
		assert.Equal(t, "Goblin", m.Name)
		assert.Equal(t, 2, m.Level)
		assert.NotEmpty(t, m.InstanceID)
		ids[m.InstanceID] = true
	}
	assert.Len(t, ids, 3, "instance ids must be unique")
}

func TestGroup_ProgressWindowFiltersMembers(t *testing.T) {
	g := spawn.NewGroup("mixed", 1, 1, []spawn.Member{
		{Template: goblin, Count: dice.MustParse("1"), MinProgress: 0, MaxProgress: 0.5},
		{Template: wraith, Count: dice.MustParse("1"), MinProgress: 0.5, MaxProgress: 1},
	}, testRoller(2), "", nil)

	early, ok := g.Instantiate(0.1)
	require.True(t, ok)
	require.Len(t, early.Monsters, 1)
	assert.Equal(t, "goblin", early.Monsters[0].TemplateID)

	late, ok := g.Instantiate(0.9)
	require.True(t, ok)
	require.Len(t, late.Monsters, 1)
	assert.Equal(t, "wraith", late.Monsters[0].TemplateID)
}

func TestGroup_NoActiveMemberIsEmpty(t *testing.T) {
	g := spawn.NewGroup("late", 1, 1, []spawn.Member{
		{Template: wraith, Count: dice.MustParse("1"), MinProgress: 0.8, MaxProgress: 1},
	}, testRoller(3), "", nil)
	_, ok := g.Instantiate(0.2)
	assert.False(t, ok)
}

func TestGroup_LevelSpreadScalesWithProgress(t *testing.T) {
	g := spawn.NewGroup("scaling", 1, 1, []spawn.Member{
		{Template: goblin, Count: dice.MustParse("1"), MaxProgress: 1, LevelSpread: 10},
	}, testRoller(4), "", nil)
	out, ok := g.Instantiate(0.55)
	require.True(t, ok)
	assert.Equal(t, 2+5, out.Monsters[0].Level)
}

func TestGroup_GateBlocks(t *testing.T) {
	var gotHook, gotGroup string
	gate := func(hook, groupID string, progress float64) bool {
		gotHook, gotGroup = hook, groupID
		return progress > 0.5
	}
	g := spawn.NewGroup("gated", 1, 1, []spawn.Member{
		{Template: goblin, Count: dice.MustParse("1"), MaxProgress: 1},
	}, testRoller(5), "late_only", gate)

	_, ok := g.Instantiate(0.2)
	assert.False(t, ok)
	assert.Equal(t, "late_only", gotHook)
	assert.Equal(t, "gated", gotGroup)

	_, ok = g.Instantiate(0.8)
	assert.True(t, ok)
}

func TestProperty_Group_ChanceGateFrequency(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chance := rapid.Float64Range(0.05, 0.95).Draw(rt, "chance")
		g := spawn.NewGroup("rare", 1, chance, []spawn.Member{
			{Template: goblin, Count: dice.MustParse("1"), MaxProgress: 1},
		}, testRoller(rapid.Uint64().Draw(rt, "seed")), "", nil)

		const n = 2000
		hits := 0
		for i := 0; i < n; i++ {
			if _, ok := g.Instantiate(0); ok {
				hits++
			}
		}
		assert.InDelta(rt, chance, float64(hits)/n, 0.07)
	})
}

const cryptYAML = `
id: crypt
groups:
  - id: goblins
    weight: 3
    members:
      - template: goblin
        count: 1d3+1
        max_progress: 0.6
  - id: wraith
    weight: 1
    chance: 0.25
    members:
      - template: wraith
        min_progress: 0.5
        level_spread: 4
`

func TestLoadTableFromBytes(t *testing.T) {
	def, err := spawn.LoadTableFromBytes([]byte(cryptYAML))
	require.NoError(t, err)
	assert.Equal(t, "crypt", def.ID)
	require.Len(t, def.Groups, 2)
	assert.Equal(t, 0.25, def.Groups[1].Chance)
	assert.Equal(t, "1d3+1", def.Groups[0].Members[0].Count)
}

func TestTableDef_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no id":        "groups: [{id: a, weight: 1, members: [{template: goblin}]}]",
		"no groups":    "id: t",
		"no members":   "id: t\ngroups: [{id: a, weight: 1}]",
		"no template":  "id: t\ngroups: [{id: a, weight: 1, members: [{count: '2'}]}]",
		"bad count":    "id: t\ngroups: [{id: a, weight: 1, members: [{template: goblin, count: 'xd'}]}]",
		"bad chance":   "id: t\ngroups: [{id: a, weight: 1, chance: 1.5, members: [{template: goblin}]}]",
		"neg weight":   "id: t\ngroups: [{id: a, weight: -1, members: [{template: goblin}]}]",
		"dup group":    "id: t\ngroups: [{id: a, weight: 1, members: [{template: goblin}]}, {id: a, weight: 1, members: [{template: goblin}]}]",
		"window order": "id: t\ngroups: [{id: a, weight: 1, members: [{template: goblin, min_progress: 0.8, max_progress: 0.2}]}]",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := spawn.LoadTableFromBytes([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestTableDef_NaNWeightLoads(t *testing.T) {
	def, err := spawn.LoadTableFromBytes([]byte("id: t\ngroups: [{id: a, weight: .nan, members: [{template: goblin}]}]"))
	require.NoError(t, err)

	rec := notify.NewRecorder(nil)
	set, err := spawn.BuildSet(def, map[string]*spawn.Template{"goblin": goblin}, spawn.BuildOptions{
		Roller:   testRoller(1),
		Notifier: rec,
	})
	require.NoError(t, err)
	out, ok := set.Random(0)
	require.True(t, ok, "a lone group is still selectable")
	assert.Equal(t, "a", out.GroupID)
	assert.NotEmpty(t, rec.Messages())
}

func TestBuildSet_EndToEnd(t *testing.T) {
	def, err := spawn.LoadTableFromBytes([]byte(cryptYAML))
	require.NoError(t, err)
	set, err := spawn.BuildSet(def, map[string]*spawn.Template{"goblin": goblin, "wraith": wraith},
		spawn.BuildOptions{Roller: testRoller(11)})
	require.NoError(t, err)
	assert.Equal(t, "crypt", set.Name())
	assert.Equal(t, 4.0, set.WeightTotal())

	for i := 0; i < 50; i++ {
		out, ok := set.Random(0.2)
		require.True(t, ok, "goblins are always available early")
		assert.Equal(t, "goblins", out.GroupID)
		assert.GreaterOrEqual(t, len(out.Monsters), 2)
		assert.LessOrEqual(t, len(out.Monsters), 4)
	}
}

func TestBuildSet_Errors(t *testing.T) {
	def, err := spawn.LoadTableFromBytes([]byte(cryptYAML))
	require.NoError(t, err)
	_, err = spawn.BuildSet(def, map[string]*spawn.Template{"goblin": goblin}, spawn.BuildOptions{Roller: testRoller(1)})
	assert.Error(t, err, "wraith template is missing")

	gated, err := spawn.LoadTableFromBytes([]byte("id: t\ngroups: [{id: a, weight: 1, gate: late_only, members: [{template: goblin}]}]"))
	require.NoError(t, err)
	_, err = spawn.BuildSet(gated, map[string]*spawn.Template{"goblin": goblin}, spawn.BuildOptions{Roller: testRoller(1)})
	assert.ErrorIs(t, err, spawn.ErrGateUnavailable)
}

func TestLoadTablesAndTemplates_FromDir(t *testing.T) {
	spawnDir := t.TempDir()
	monsterDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(spawnDir, "crypt.yaml"), []byte(cryptYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(spawnDir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(monsterDir, "goblin.yaml"), []byte("id: goblin\nname: Goblin\nlevel: 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(monsterDir, "wraith.yaml"), []byte("id: wraith\nname: Wraith\nlevel: 6\n"), 0644))

	tables, err := spawn.LoadTables(spawnDir)
	require.NoError(t, err)
	require.Contains(t, tables, "crypt")

	templates, err := spawn.LoadTemplates(monsterDir)
	require.NoError(t, err)
	assert.Len(t, templates, 2)

	_, err = spawn.BuildSet(tables["crypt"], templates, spawn.BuildOptions{Roller: testRoller(1)})
	assert.NoError(t, err)
}

func TestLoadTemplateFromBytes_ValidatesTags(t *testing.T) {
	cases := map[string]string{
		"missing id":   "name: Rat\nlevel: 1\n",
		"missing name": "id: rat\nlevel: 1\n",
		"zero level":   "id: rat\nname: Rat\nlevel: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := spawn.LoadTemplateFromBytes([]byte(doc))
			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}

	tmpl, err := spawn.LoadTemplateFromBytes([]byte("id: rat\nname: Rat\nlevel: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, tmpl.Level)
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := spawn.LoadTemplates("/nonexistent")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nname: X\nlevel: 0\n"), 0644))
	_, err = spawn.LoadTemplates(dir)
	assert.Error(t, err)
}
