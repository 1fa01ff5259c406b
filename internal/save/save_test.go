package save_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlerpg/internal/save"
	"github.com/cory-johannsen/idlerpg/internal/save/savetest"
)

func TestMemoryStore_Contract(t *testing.T) {
	savetest.RunContract(t, func(*testing.T) save.Store { return save.NewMemoryStore() })
}

func TestCachedStore_Contract(t *testing.T) {
	savetest.RunContract(t, func(*testing.T) save.Store {
		return save.NewCachedStore(save.NewMemoryStore(), 16, time.Minute)
	})
}

type countingStore struct {
	save.Store
	charLoads int
	hallLoads int
	failSave  bool
}

func (c *countingStore) LoadChar(ctx context.Context, id string) (save.CharData, error) {
	c.charLoads++
	return c.Store.LoadChar(ctx, id)
}

func (c *countingStore) LoadHall(ctx context.Context, id string) (save.HallData, error) {
	c.hallLoads++
	return c.Store.LoadHall(ctx, id)
}

func (c *countingStore) SaveChar(ctx context.Context, data save.CharData, id string) error {
	if c.failSave {
		return errors.New("disk full")
	}
	return c.Store.SaveChar(ctx, data, id)
}

func TestCachedStore_ServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: save.NewMemoryStore()}
	require.NoError(t, inner.Store.SaveChar(ctx, savetest.SampleChar("c1"), "c1"))
	c := save.NewCachedStore(inner, 4, time.Minute)

	for range 3 {
		_, err := c.LoadChar(ctx, "c1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.charLoads)
}

func TestCachedStore_WriteThroughPopulatesCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: save.NewMemoryStore()}
	c := save.NewCachedStore(inner, 4, time.Minute)

	require.NoError(t, c.SaveHall(ctx, save.HallData{ID: "h1", Gold: 3}, "h1"))
	got, err := c.LoadHall(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Gold)
	assert.Equal(t, 0, inner.hallLoads)
}

func TestCachedStore_FailedSaveEvicts(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: save.NewMemoryStore()}
	c := save.NewCachedStore(inner, 4, time.Minute)

	require.NoError(t, c.SaveChar(ctx, savetest.SampleChar("c1"), "c1"))
	inner.failSave = true
	changed := savetest.SampleChar("c1")
	changed.Cleared = 100
	require.Error(t, c.SaveChar(ctx, changed, "c1"))

	got, err := c.LoadChar(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Cleared)
	assert.Equal(t, 1, inner.charLoads)
}

func TestCachedStore_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: save.NewMemoryStore()}
	require.NoError(t, inner.Store.SaveChar(ctx, savetest.SampleChar("c1"), "c1"))
	c := save.NewCachedStore(inner, 4, 20*time.Millisecond)

	_, err := c.LoadChar(ctx, "c1")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = c.LoadChar(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.charLoads)
}

func TestCachedStore_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: save.NewMemoryStore()}
	c := save.NewCachedStore(inner, 4, time.Minute)

	_, err := c.LoadChar(ctx, "ghost")
	assert.ErrorIs(t, err, save.ErrNotFound)
	chars, _ := c.Len()
	assert.Equal(t, 0, chars)
}
