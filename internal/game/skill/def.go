package skill

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Def is the static definition of a skill.
type Def struct {
	ID      string  `yaml:"id" validate:"required"`
	Name    string  `yaml:"name" validate:"required"`
	Rate    float64 `yaml:"rate" validate:"gt=0"`
	Max     int     `yaml:"max" validate:"gte=1"`
	BuyCost float64 `yaml:"buy_cost" validate:"gte=0"`
	Locked  bool    `yaml:"locked"`
}

// Validate checks the definition's struct tags.
func (d Def) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("skill %q: %w", d.ID, err)
	}
	return nil
}

type defFile struct {
	Skills []Def `yaml:"skills"`
}

// LoadDefs reads a YAML file with a top-level "skills" list.
//
// Postcondition: Returns definitions in file order or the first error.
func LoadDefs(path string) ([]Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill file %q: %w", path, err)
	}
	var f defFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing skill file %q: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Skills))
	for _, d := range f.Skills {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("skill file %q: duplicate skill %q", path, d.ID)
		}
		seen[d.ID] = true
	}
	return f.Skills, nil
}
