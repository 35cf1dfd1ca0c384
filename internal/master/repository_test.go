package master

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/service"
	"github.com/ozanyurtsever/promopipe/internal/testutil"
)

func TestDataLoadsFromStore(t *testing.T) {
	store := testutil.SetupTestStore(t)
	testutil.SeedNames(t, store, service.KindBank, "Garanti BBVA")
	testutil.SeedNames(t, store, service.KindBrand, "Migros", "Opet")

	repo := NewRepository(store, time.Minute)
	data, err := repo.Data(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Garanti BBVA"}, data.Banks)
	assert.ElementsMatch(t, []string{"Migros", "Opet"}, data.Brands)
	// Categories come from the migration seed.
	assert.Contains(t, data.Categories, "Market")
}

func TestDataRefreshesAfterTTL(t *testing.T) {
	store := testutil.SetupTestStore(t)
	repo := NewRepository(store, time.Minute)

	current := time.Now()
	repo.now = func() time.Time { return current }

	ctx := context.Background()
	data, err := repo.Data(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Brands)

	// A brand registered behind the repository's back is invisible until the
	// TTL expires.
	testutil.SeedNames(t, store, service.KindBrand, "Migros")
	data, err = repo.Data(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Brands)

	current = current.Add(2 * time.Minute)
	data, err = repo.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Migros"}, data.Brands)
}

func TestRegisterBrandUpdatesSnapshotImmediately(t *testing.T) {
	store := testutil.SetupTestStore(t)
	repo := NewRepository(store, time.Hour)
	ctx := context.Background()

	_, err := repo.Data(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.RegisterBrand(ctx, "Kahve Dünyası"))

	data, err := repo.Data(ctx)
	require.NoError(t, err)
	assert.Contains(t, data.Brands, "Kahve Dünyası")

	// And it was persisted, not just cached.
	names, err := store.ListCanonicalNames(ctx, service.KindBrand)
	require.NoError(t, err)
	assert.Contains(t, names, "Kahve Dünyası")
}

func TestNewFixedServesWithoutStore(t *testing.T) {
	repo := NewFixed(&Data{Banks: []string{"Garanti BBVA"}})

	data, err := repo.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Garanti BBVA"}, data.Banks)
}
