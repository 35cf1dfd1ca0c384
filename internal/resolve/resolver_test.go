package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/master"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/testutil"
)

func fixedMaster() *master.Repository {
	return master.NewFixed(&master.Data{
		Banks: []string{"Garanti BBVA", "Yapı Kredi"},
		Cards: []string{"Bonus", "World"},
		BankAliases: map[string]string{
			"garanti": "Garanti BBVA",
			"ykb":     "Yapı Kredi",
		},
		Categories: []string{"Market", "Akaryakıt", "Restoran", "Elektronik", "Diğer"},
		Brands:     []string{"Migros", "Opet", "Teknosa"},
	})
}

func TestResolveBankCascade(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact match", "Garanti BBVA", "Garanti BBVA"},
		{"case insensitive", "garanti bbva", "Garanti BBVA"},
		{"alias", "Garanti", "Garanti BBVA"},
		{"alias acronym", "YKB", "Yapı Kredi"},
		{"fuzzy close typo", "Yapı Kredii", "Yapı Kredi"},
		{"unresolved passes through", "Ziraat Katılım", "Ziraat Katılım"},
		{"empty passes through", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveBank(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)
	ctx := context.Background()

	inputs := []string{"garanti", "Yapı Kredi", "Ziraat Katılım", "ykb"}
	for _, input := range inputs {
		once, err := resolver.ResolveBank(ctx, input)
		require.NoError(t, err)
		twice, err := resolver.ResolveBank(ctx, once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "resolving %q twice diverged", input)
	}
}

func TestResolveCategoryFallback(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"canonical member", "Market", "Market"},
		{"case insensitive", "market", "Market"},
		{"fuzzy", "Akaryakit", "Akaryakıt"},
		{"unknown maps to fallback", "Kripto Borsası", model.FallbackCategory},
		{"empty maps to fallback", "", model.FallbackCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveCategory(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFuzzyBudgetBoundsShortNames(t *testing.T) {
	// A two-letter input must not jump to an unrelated entity.
	_, ok := matchCascade("Xy", []string{"Migros", "Opet"}, nil)
	assert.False(t, ok)
}

func TestResolveBrandsGenericCampaign(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)

	brands, err := resolver.ResolveBrands(context.Background(),
		[]string{"Migros"},
		"Ekstre borcunuza taksit",
		"Ekstre borcunuzu taksitlendirin, faizden kurtulun.")
	require.NoError(t, err)
	assert.Equal(t, []string{model.GenericBrand}, brands)
}

func TestResolveBrandsCanonicalizesAndRegisters(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)
	ctx := context.Background()

	brands, err := resolver.ResolveBrands(ctx,
		[]string{"migros, kahve dünyası"},
		"Migros ve Kahve Dünyası harcamalarına puan",
		"Seçili markalarda geçerlidir.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Migros", "Kahve Dünyası"}, brands)
}

func TestResolveBrandsStripsForbiddenTokens(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)

	brands, err := resolver.ResolveBrands(context.Background(),
		[]string{"kampanya, Bonus, Teknosa"},
		"Teknosa alışverişlerine özel",
		"Elektronik alışverişlerinde geçerli.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Teknosa"}, brands)
}

func TestResolveBrandsCapsAtMax(t *testing.T) {
	resolver := New(fixedMaster(), nil, nil)

	brands, err := resolver.ResolveBrands(context.Background(),
		[]string{"Migros, Opet, Teknosa, Kahve Dünyası"},
		"Dört markada puan",
		"Seçili markalarda geçerlidir.")
	require.NoError(t, err)
	assert.Len(t, brands, model.MaxBrands)
}

func TestIsGeneric(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        bool
	}{
		{"statement keyword", "Ekstre erteleme fırsatı", "", true},
		{"application keyword", "Hemen başvur", "Yeni karta hoş geldin puanı", true},
		{"automatic payment", "", "Otomatik ödeme talimatı verenlere", true},
		{"merchant campaign", "Migros'ta %10 indirim", "Market alışverişine özel", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGeneric(tt.title, tt.description))
		})
	}
}

func TestApplyConfirmedHistory(t *testing.T) {
	store := testutil.SetupTestStore(t)
	resolver := New(fixedMaster(), store, nil)
	ctx := context.Background()

	title := "Migros'ta 500 TL harcamaya 50 TL puan"
	require.NoError(t, store.SaveConfirmed(ctx, &model.ConfirmedMapping{
		Title:       title,
		Brand:       "Migros",
		Category:    "Market",
		Source:      model.SourceCurated,
		ConfirmedAt: time.Now(),
	}))

	rec := &model.CampaignRecord{
		Title:    title,
		Brands:   []string{"Migross"},
		Category: "Diğer",
	}
	require.NoError(t, resolver.ApplyConfirmedHistory(ctx, rec))
	assert.Equal(t, []string{"Migros"}, rec.Brands)
	assert.Equal(t, "Market", rec.Category)
}

func TestApplyConfirmedHistoryIgnoresGenericBrand(t *testing.T) {
	store := testutil.SetupTestStore(t)
	resolver := New(fixedMaster(), store, nil)
	ctx := context.Background()

	title := "Fatura talimatına puan"
	require.NoError(t, store.SaveConfirmed(ctx, &model.ConfirmedMapping{
		Title:       title,
		Brand:       model.GenericBrand,
		Category:    "Diğer",
		Source:      model.SourceExtraction,
		ConfirmedAt: time.Now(),
	}))

	rec := &model.CampaignRecord{
		Title:  title,
		Brands: []string{"Opet"},
	}
	require.NoError(t, resolver.ApplyConfirmedHistory(ctx, rec))
	assert.Equal(t, []string{"Opet"}, rec.Brands)
}

func TestApplyConfirmedHistoryNoMapping(t *testing.T) {
	store := testutil.SetupTestStore(t)
	resolver := New(fixedMaster(), store, nil)

	rec := &model.CampaignRecord{
		Title:  "Hiç görülmemiş kampanya",
		Brands: []string{"Opet"},
	}
	require.NoError(t, resolver.ApplyConfirmedHistory(context.Background(), rec))
	assert.Equal(t, []string{"Opet"}, rec.Brands)
}
