// Package save defines the persistence contract for idle progress and the
// in-process Store implementations. Database-backed stores live in
// internal/storage.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/idlerpg/internal/game/encounter"
	"github.com/cory-johannsen/idlerpg/internal/game/skill"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("save record not found")

// CharData is the persisted state of one character.
type CharData struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Encounter *encounter.Save       `json:"encounter,omitempty"`
	Skills    map[string]skill.Save `json:"skills,omitempty"`
	Cleared   int                   `json:"cleared"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// HallData is the persisted state of a guild hall shared by characters.
type HallData struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Chars []string `json:"chars,omitempty"`
	Gold  float64  `json:"gold"`
}

// Store persists characters and halls.
//
// Implementations must return detached copies: mutating a loaded value never
// affects stored state. Missing records yield an error wrapping ErrNotFound.
type Store interface {
	LoadChar(ctx context.Context, id string) (CharData, error)
	SaveChar(ctx context.Context, data CharData, id string) error
	DeleteChar(ctx context.Context, id string) error
	LoadHall(ctx context.Context, id string) (HallData, error)
	SaveHall(ctx context.Context, data HallData, id string) error
	ClearAll(ctx context.Context) error
}

// clone deep-copies v through its JSON form.
func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encoding %T: %w", v, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %T: %w", v, err)
	}
	return out, nil
}
