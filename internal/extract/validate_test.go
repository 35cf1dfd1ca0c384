package extract

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/mathrule"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

func dec(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &d
}

func TestFixRewardKindVocabulary(t *testing.T) {
	tests := []struct {
		name string
		kind model.RewardKind
		text string
		want model.RewardKind
	}{
		{
			name: "points relabeled discount",
			kind: model.RewardPoints,
			text: "Tüm alışverişlerde %10 indirim fırsatı",
			want: model.RewardDiscount,
		},
		{
			name: "points relabeled statement discount",
			kind: model.RewardPoints,
			text: "Ekstrenize 100 TL indirim yansır",
			want: model.RewardStatementDiscount,
		},
		{
			name: "discount relabeled points",
			kind: model.RewardDiscount,
			text: "Harcamanıza 500 bonus puan hediye",
			want: model.RewardPoints,
		},
		{
			name: "consistent labeling untouched",
			kind: model.RewardPoints,
			text: "Harcamanıza 500 puan hediye",
			want: model.RewardPoints,
		},
		{
			name: "both words mentioned untouched",
			kind: model.RewardPoints,
			text: "Puan veya indirim seçeneği",
			want: model.RewardPoints,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &model.CampaignRecord{RewardKind: tt.kind}
			fixRewardKindVocabulary(rec, tt.text, slog.Default())
			assert.Equal(t, tt.want, rec.RewardKind)
		})
	}
}

func TestCheckCapConsistency(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		cap       string
		pct       string
		wantIssue bool
	}{
		{"consistent", "8000", "800", "10", false},
		{"within tolerance", "8500", "800", "10", false},
		{"range top mistaken for threshold", "20000", "800", "10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &model.CampaignRecord{
				SpendThreshold: dec(t, tt.threshold),
				RewardCap:      dec(t, tt.cap),
				Percentage:     dec(t, tt.pct),
			}
			issues := checkCapConsistency(rec, slog.Default())
			if tt.wantIssue {
				require.Len(t, issues, 1)
				assert.Equal(t, model.IssueSpendThreshold, issues[0].Type)
				return
			}
			assert.Empty(t, issues)
		})
	}
}

func TestCheckCapConsistencySkipsPartialData(t *testing.T) {
	rec := &model.CampaignRecord{
		Percentage: dec(t, "10"),
		RewardCap:  dec(t, "800"),
	}
	assert.Empty(t, checkCapConsistency(rec, slog.Default()))
}

func TestBackfillRewardKind(t *testing.T) {
	amount := &model.CampaignRecord{RewardAmount: dec(t, "100")}
	backfillRewardKind(amount)
	assert.Equal(t, model.RewardBenefit, amount.RewardKind)

	pct := &model.CampaignRecord{Percentage: dec(t, "10")}
	backfillRewardKind(pct)
	assert.Equal(t, model.RewardDiscount, pct.RewardKind)

	noReward := &model.CampaignRecord{}
	backfillRewardKind(noReward)
	assert.Empty(t, noReward.RewardKind)

	labeled := &model.CampaignRecord{RewardAmount: dec(t, "100"), RewardKind: model.RewardPoints}
	backfillRewardKind(labeled)
	assert.Equal(t, model.RewardPoints, labeled.RewardKind)
}

func TestApplyMathResultFillsOnlyGaps(t *testing.T) {
	rec := &model.CampaignRecord{SpendThreshold: dec(t, "500")}
	applyMathResult(rec, mathrule.Result{
		Rule:           mathrule.RuleRange,
		SpendThreshold: dec(t, "1000"),
		RewardAmount:   dec(t, "100"),
	}, slog.Default())

	// Service answer stands unless empty; tiered is the only override.
	assert.Equal(t, "500", rec.SpendThreshold.String())
	require.NotNil(t, rec.RewardAmount)
	assert.Equal(t, "100", rec.RewardAmount.String())
}

func TestApplyMathResultTieredOverrides(t *testing.T) {
	rec := &model.CampaignRecord{
		SpendThreshold: dec(t, "5000"),
		RewardAmount:   dec(t, "250"),
	}
	applyMathResult(rec, mathrule.Result{
		Rule:           mathrule.RuleTiered,
		SpendThreshold: dec(t, "30000"),
		RewardAmount:   dec(t, "250"),
		RewardCap:      dec(t, "1500"),
	}, slog.Default())

	assert.Equal(t, "30000", rec.SpendThreshold.String())
	require.NotNil(t, rec.RewardCap)
	assert.Equal(t, "1500", rec.RewardCap.String())
}

func TestMissingCriticalFields(t *testing.T) {
	empty := &model.CampaignRecord{}
	assert.ElementsMatch(t, criticalFields, missingCriticalFields(empty))

	pctOnly := &model.CampaignRecord{Percentage: dec(t, "10")}
	assert.NotContains(t, missingCriticalFields(pctOnly), FieldRewardAmount,
		"a percentage satisfies the reward requirement")
}

func TestParseDate(t *testing.T) {
	iso := "2026-09-30"
	dotted := "30.09.2026"
	slashed := "30/09/2026"
	junk := "otuz eylül"
	null := "null"

	require.NotNil(t, parseDate(&iso))
	require.NotNil(t, parseDate(&dotted))
	require.NotNil(t, parseDate(&slashed))
	assert.Equal(t, parseDate(&iso).Format("2006-01-02"), parseDate(&dotted).Format("2006-01-02"))
	assert.Nil(t, parseDate(&junk))
	assert.Nil(t, parseDate(&null))
	assert.Nil(t, parseDate(nil))
}
