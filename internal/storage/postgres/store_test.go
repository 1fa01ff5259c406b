package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlerpg/internal/save"
	"github.com/cory-johannsen/idlerpg/internal/save/savetest"
	"github.com/cory-johannsen/idlerpg/internal/storage/postgres"
	"github.com/cory-johannsen/idlerpg/internal/testutil"
)

func TestSaveStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	store := postgres.NewSaveStore(pc.RawPool)

	savetest.RunContract(t, func(t *testing.T) save.Store {
		require.NoError(t, store.ClearAll(context.Background()))
		return store
	})
}

func TestPool_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	require.NoError(t, pc.Pool.Health(context.Background(), 5*time.Second))
}

func TestPool_Ready(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	require.NoError(t, pc.Pool.Ready(context.Background()))
}
