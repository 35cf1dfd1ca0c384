package changeset

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/storage"
	"github.com/ozanyurtsever/promopipe/internal/testutil"
)

func seedRecord(t *testing.T, store *storage.SQLiteStore, url, imageURL string, brands []string) {
	t.Helper()

	amount := decimal.NewFromInt(100)
	_, err := store.Upsert(context.Background(), &model.CampaignRecord{
		Title:        "Kampanya " + url,
		RewardKind:   model.RewardPoints,
		RewardAmount: &amount,
		Bank:         "Garanti BBVA",
		CardName:     "Bonus",
		SourceURL:    url,
		ImageURL:     imageURL,
		Brands:       brands,
	})
	require.NoError(t, err)
}

func TestClassify(t *testing.T) {
	store := testutil.SetupTestStore(t)
	optimizer := NewOptimizer(store, nil)

	seedRecord(t, store, "https://e.com/complete", "https://e.com/img.png", []string{"Migros"})
	seedRecord(t, store, "https://e.com/no-image", "", []string{"Migros"})
	seedRecord(t, store, "https://e.com/no-brand", "https://e.com/img.png", nil)

	urls := []string{
		"https://e.com/new",
		"https://e.com/complete",
		"https://e.com/no-image",
		"https://e.com/no-brand",
	}

	result, err := optimizer.Classify(context.Background(), urls, "Bonus")
	require.NoError(t, err)

	assert.Equal(t, StateNew, result.States["https://e.com/new"])
	assert.Equal(t, StateComplete, result.States["https://e.com/complete"])
	assert.Equal(t, StateIncomplete, result.States["https://e.com/no-image"])
	assert.Equal(t, StateIncomplete, result.States["https://e.com/no-brand"])

	assert.Equal(t, Stats{New: 1, Incomplete: 2, Complete: 1}, result.Stats)

	// Work list preserves candidate order and skips complete records.
	assert.Equal(t, []string{
		"https://e.com/new",
		"https://e.com/no-image",
		"https://e.com/no-brand",
	}, result.ToProcess)
}

func TestClassifyOtherCardIsNew(t *testing.T) {
	store := testutil.SetupTestStore(t)
	optimizer := NewOptimizer(store, nil)

	seedRecord(t, store, "https://e.com/k", "https://e.com/img.png", []string{"Migros"})

	result, err := optimizer.Classify(context.Background(), []string{"https://e.com/k"}, "World")
	require.NoError(t, err)
	assert.Equal(t, StateNew, result.States["https://e.com/k"])
}

func TestClassifyEmptyInput(t *testing.T) {
	store := testutil.SetupTestStore(t)
	optimizer := NewOptimizer(store, nil)

	result, err := optimizer.Classify(context.Background(), nil, "Bonus")
	require.NoError(t, err)
	assert.Empty(t, result.ToProcess)
	assert.Equal(t, Stats{}, result.Stats)
}
