package spawn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlerpg/internal/game/dice"
	"github.com/cory-johannsen/idlerpg/internal/notify"
	"github.com/cory-johannsen/idlerpg/internal/observability"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// MemberDef is the YAML form of a group member.
type MemberDef struct {
	Template string `yaml:"template" validate:"required"`
	// Count is a dice expression such as "1d3+1"; empty means "1".
	Count       string  `yaml:"count"`
	MinProgress float64 `yaml:"min_progress" validate:"gte=0,lte=1"`
	// MaxProgress of 0 means the member stays active until the end of the run.
	MaxProgress float64 `yaml:"max_progress" validate:"gte=0,lte=1"`
	LevelSpread int     `yaml:"level_spread" validate:"gte=0"`
}

// GroupDef is the YAML form of a spawn group.
type GroupDef struct {
	ID string `yaml:"id" validate:"required"`
	// Weight is deliberately not tag-validated: NaN and zero weights load
	// and are reported as warnings by the Set.
	Weight float64 `yaml:"weight"`
	// Chance is the inner gate in (0, 1]; 0 means always.
	Chance  float64     `yaml:"chance" validate:"gte=0,lte=1"`
	Gate    string      `yaml:"gate"`
	Members []MemberDef `yaml:"members" validate:"required,min=1,dive"`
}

// TableDef is one spawn table file.
type TableDef struct {
	ID     string     `yaml:"id" validate:"required"`
	Groups []GroupDef `yaml:"groups" validate:"required,min=1,dive"`
}

// Validate checks struct tags plus the rules tags cannot express.
//
// Postcondition: Returns nil iff the table can be built given its templates.
func (t *TableDef) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("spawn table %q: %w", t.ID, err)
	}
	seen := make(map[string]bool, len(t.Groups))
	for _, g := range t.Groups {
		if seen[g.ID] {
			return fmt.Errorf("spawn table %q: duplicate group %q", t.ID, g.ID)
		}
		seen[g.ID] = true
		if g.Weight < 0 {
			return fmt.Errorf("spawn table %q: group %q weight must be >= 0, got %v", t.ID, g.ID, g.Weight)
		}
		for i, m := range g.Members {
			if m.Count != "" {
				if _, err := dice.Parse(m.Count); err != nil {
					return fmt.Errorf("spawn table %q: group %q member[%d]: %w", t.ID, g.ID, i, err)
				}
			}
			if m.MaxProgress != 0 && m.MinProgress > m.MaxProgress {
				return fmt.Errorf("spawn table %q: group %q member[%d]: min_progress %v exceeds max_progress %v",
					t.ID, g.ID, i, m.MinProgress, m.MaxProgress)
			}
		}
	}
	return nil
}

// LoadTableFromBytes parses and validates one spawn table.
func LoadTableFromBytes(data []byte) (*TableDef, error) {
	var def TableDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing spawn table YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadTables reads every *.yaml spawn table in dir, keyed by table ID.
func LoadTables(dir string) (map[string]*TableDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading spawn dir %q: %w", dir, err)
	}
	tables := make(map[string]*TableDef)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		def, err := LoadTableFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if _, dup := tables[def.ID]; dup {
			return nil, fmt.Errorf("loading %q: duplicate spawn table %q", path, def.ID)
		}
		tables[def.ID] = def
	}
	return tables, nil
}

// ErrGateUnavailable is returned when a table uses scripted gates but no
// GateFunc was supplied.
var ErrGateUnavailable = errors.New("spawn: group declares a gate but scripting is disabled")

// BuildOptions carries the runtime collaborators for BuildSet.
type BuildOptions struct {
	Roller   *dice.Roller
	Notifier notify.Notifier
	Metrics  *observability.Metrics
	Gate     GateFunc
}

// BuildSet resolves def against templates and returns a ready Set.
//
// Precondition: def must have passed Validate; opts.Roller must be non-nil.
// Postcondition: Returns an error for an unknown template or an unavailable gate.
func BuildSet(def *TableDef, templates map[string]*Template, opts BuildOptions) (*Set, error) {
	groups := make([]Candidate, 0, len(def.Groups))
	for _, gd := range def.Groups {
		if gd.Gate != "" && opts.Gate == nil {
			return nil, fmt.Errorf("spawn table %q group %q: %w", def.ID, gd.ID, ErrGateUnavailable)
		}
		members := make([]Member, 0, len(gd.Members))
		for _, md := range gd.Members {
			tmpl, ok := templates[md.Template]
			if !ok {
				return nil, fmt.Errorf("spawn table %q group %q: unknown monster template %q", def.ID, gd.ID, md.Template)
			}
			count := dice.MustParse("1")
			if md.Count != "" {
				count = dice.MustParse(md.Count)
			}
			maxProgress := md.MaxProgress
			if maxProgress == 0 {
				maxProgress = 1
			}
			members = append(members, Member{
				Template:    tmpl,
				Count:       count,
				MinProgress: md.MinProgress,
				MaxProgress: maxProgress,
				LevelSpread: md.LevelSpread,
			})
		}
		groups = append(groups, NewGroup(gd.ID, gd.Weight, gd.Chance, members, opts.Roller, gd.Gate, opts.Gate))
	}
	return NewSet(def.ID, groups,
		WithSource(opts.Roller),
		WithNotifier(opts.Notifier),
		WithMetrics(opts.Metrics),
	), nil
}
