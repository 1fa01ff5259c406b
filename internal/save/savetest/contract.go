// Package savetest holds the behavioral checks every save.Store must pass.
package savetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlerpg/internal/game/encounter"
	"github.com/cory-johannsen/idlerpg/internal/game/skill"
	"github.com/cory-johannsen/idlerpg/internal/save"
)

// SampleChar returns a fully populated character record.
func SampleChar(id string) save.CharData {
	rate := 1.5
	locked := false
	return save.CharData{
		ID:   id,
		Name: "Ada",
		Encounter: &encounter.Save{
			ID:         "enc-1",
			Level:      3,
			Rate:       &rate,
			Experience: 4.25,
			Length:     15,
		},
		Skills: map[string]skill.Save{
			"mining": {ID: "mining", Level: 12, Experience: 7.5, Locked: &locked},
		},
		Cleared:   9,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// RunContract exercises store with the shared Store behavior. newStore must
// return an empty store on every call.
func RunContract(t *testing.T, newStore func(t *testing.T) save.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("char round trip", func(t *testing.T) {
		s := newStore(t)
		want := SampleChar("c1")
		require.NoError(t, s.SaveChar(ctx, want, "c1"))
		got, err := s.LoadChar(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Cleared, got.Cleared)
		assert.Equal(t, want.Encounter, got.Encounter)
		assert.Equal(t, want.Skills, got.Skills)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("missing char", func(t *testing.T) {
		s := newStore(t)
		_, err := s.LoadChar(ctx, "nobody")
		assert.ErrorIs(t, err, save.ErrNotFound)
	})

	t.Run("save overwrites", func(t *testing.T) {
		s := newStore(t)
		c := SampleChar("c1")
		require.NoError(t, s.SaveChar(ctx, c, "c1"))
		c.Cleared = 42
		require.NoError(t, s.SaveChar(ctx, c, "c1"))
		got, err := s.LoadChar(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 42, got.Cleared)
	})

	t.Run("loaded values are detached", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveChar(ctx, SampleChar("c1"), "c1"))
		got, err := s.LoadChar(ctx, "c1")
		require.NoError(t, err)
		got.Skills["mining"] = skill.Save{ID: "mining", Level: 99}
		got.Encounter.Level = 50

		again, err := s.LoadChar(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 12, again.Skills["mining"].Level)
		assert.Equal(t, 3, again.Encounter.Level)
	})

	t.Run("delete char", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveChar(ctx, SampleChar("c1"), "c1"))
		require.NoError(t, s.DeleteChar(ctx, "c1"))
		_, err := s.LoadChar(ctx, "c1")
		assert.ErrorIs(t, err, save.ErrNotFound)
		assert.ErrorIs(t, s.DeleteChar(ctx, "c1"), save.ErrNotFound)
	})

	t.Run("hall round trip", func(t *testing.T) {
		s := newStore(t)
		want := save.HallData{ID: "h1", Name: "Guild", Chars: []string{"c1", "c2"}, Gold: 120.5}
		require.NoError(t, s.SaveHall(ctx, want, "h1"))
		got, err := s.LoadHall(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		_, err = s.LoadHall(ctx, "h2")
		assert.ErrorIs(t, err, save.ErrNotFound)
	})

	t.Run("clear all", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveChar(ctx, SampleChar("c1"), "c1"))
		require.NoError(t, s.SaveHall(ctx, save.HallData{ID: "h1"}, "h1"))
		require.NoError(t, s.ClearAll(ctx))
		_, err := s.LoadChar(ctx, "c1")
		assert.ErrorIs(t, err, save.ErrNotFound)
		_, err = s.LoadHall(ctx, "h1")
		assert.ErrorIs(t, err, save.ErrNotFound)
	})
}
