package repair

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

// stubCaller returns one scripted answer per call and counts calls.
type stubCaller struct {
	answers []stubAnswer
	calls   int
}

type stubAnswer struct {
	raw json.RawMessage
	err error
}

func (c *stubCaller) Call(_ context.Context, _ string) (json.RawMessage, error) {
	if c.calls >= len(c.answers) {
		return nil, errors.New("stub caller exhausted")
	}
	a := c.answers[c.calls]
	c.calls++
	return a.raw, a.err
}

func testRecord() *model.CampaignRecord {
	return &model.CampaignRecord{
		ID:          42,
		Title:       "Migros'ta 500 TL harcamaya 50 TL puan",
		Bank:        "Garanti BBVA",
		CardName:    "Bonus",
		Description: "Kampanya 1 Haziran - 30 Haziran tarihleri arasında geçerlidir. 6 taksit fırsatı.",
	}
}

func TestRepairMergesPatchesAndAveragesConfidence(t *testing.T) {
	caller := &stubCaller{answers: []stubAnswer{
		{raw: json.RawMessage(`{"patch":{"installments":6},"confidence":0.9,"notes":"taksit in text"}`)},
		{raw: json.RawMessage(`{"patch":{"spend_threshold":500},"confidence":0.7}`)},
	}}
	engine := NewEngine(caller, nil, nil)

	result, err := engine.Repair(context.Background(), testRecord(), []model.ExtractionIssue{
		{Type: model.IssueInstallments, Severity: model.SeverityWarning},
		{Type: model.IssueSpendThreshold, Severity: model.SeverityCritical},
	})
	require.NoError(t, err)

	require.NotNil(t, result.Patch.Installments)
	assert.Equal(t, 6, *result.Patch.Installments)
	require.NotNil(t, result.Patch.SpendThreshold)
	assert.Equal(t, "500", result.Patch.SpendThreshold.String())
	assert.InDelta(t, 0.8, result.Confidence, 0.001)
	assert.Contains(t, result.Notes, "taksit in text")
}

func TestRepairNoIssuesIsNoOp(t *testing.T) {
	caller := &stubCaller{}
	engine := NewEngine(caller, nil, nil)

	result, err := engine.Repair(context.Background(), testRecord(), nil)
	require.NoError(t, err)
	assert.True(t, result.Patch.IsZero())
	assert.Zero(t, result.Confidence)
	assert.Equal(t, 0, caller.calls)
}

func TestRepairRateLimitAbortsRecord(t *testing.T) {
	caller := &stubCaller{answers: []stubAnswer{
		{raw: json.RawMessage(`{"patch":{"installments":6},"confidence":0.9}`)},
		{err: common.ErrRateLimited},
	}}
	engine := NewEngine(caller, nil, nil)

	_, err := engine.Repair(context.Background(), testRecord(), []model.ExtractionIssue{
		{Type: model.IssueInstallments, Severity: model.SeverityWarning},
		{Type: model.IssueSpendThreshold, Severity: model.SeverityCritical},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Equal(t, 2, caller.calls)
}

func TestRepairFailedIssueContributesLowConfidence(t *testing.T) {
	caller := &stubCaller{answers: []stubAnswer{
		{err: errors.New("service exploded")},
		{raw: json.RawMessage(`{"patch":{"percentage":10},"confidence":0.9}`)},
	}}
	engine := NewEngine(caller, nil, nil)

	result, err := engine.Repair(context.Background(), testRecord(), []model.ExtractionIssue{
		{Type: model.IssueDateRange, Severity: model.SeverityCritical},
		{Type: model.IssuePercentage, Severity: model.SeverityWarning},
	})
	require.NoError(t, err)

	// (0.10 + 0.90) / 2, the failure drags the record toward review.
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
	assert.Contains(t, result.Notes, "date_range: failed")
	require.NotNil(t, result.Patch.Percentage)
}

func TestRepairConfidenceClamped(t *testing.T) {
	caller := &stubCaller{answers: []stubAnswer{
		{raw: json.RawMessage(`{"patch":{"installments":3},"confidence":7.5}`)},
	}}
	engine := NewEngine(caller, nil, nil)

	result, err := engine.Repair(context.Background(), testRecord(), []model.ExtractionIssue{
		{Type: model.IssueInstallments, Severity: model.SeverityWarning},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestRepairCacheReplaysWithoutNetwork(t *testing.T) {
	caller := &stubCaller{answers: []stubAnswer{
		{raw: json.RawMessage(`{"patch":{"installments":6},"confidence":0.85,"notes":"cached"}`)},
	}}
	cache := NewMemoryCache()
	engine := NewEngine(caller, cache, nil)

	issues := []model.ExtractionIssue{
		{Type: model.IssueInstallments, Severity: model.SeverityWarning},
	}
	rec := testRecord()

	first, err := engine.Repair(context.Background(), rec, issues)
	require.NoError(t, err)
	require.Equal(t, 1, caller.calls)

	// Same record, same issue: served from cache, byte for byte.
	second, err := engine.Repair(context.Background(), rec, issues)
	require.NoError(t, err)
	assert.Equal(t, 1, caller.calls, "second repair must not call the service")
	assert.Equal(t, first.Patch, second.Patch)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Notes, second.Notes)
}

func TestCacheKeyIsContentAddressed(t *testing.T) {
	base := cacheKey("snippet", model.IssueInstallments, "v3")

	assert.Equal(t, base, cacheKey("snippet", model.IssueInstallments, "v3"))
	assert.NotEqual(t, base, cacheKey("other snippet", model.IssueInstallments, "v3"))
	assert.NotEqual(t, base, cacheKey("snippet", model.IssueDateRange, "v3"))
	assert.NotEqual(t, base, cacheKey("snippet", model.IssueInstallments, "v4"))
}

func TestRepairUndecodablePatchContributesLowConfidence(t *testing.T) {
	caller := &stubCaller{answers: []stubAnswer{
		{raw: json.RawMessage(`{"patch":{"installments":"six"},"confidence":0.9}`)},
	}}
	engine := NewEngine(caller, nil, nil)

	result, err := engine.Repair(context.Background(), testRecord(), []model.ExtractionIssue{
		{Type: model.IssueInstallments, Severity: model.SeverityWarning},
	})
	require.NoError(t, err)
	assert.InDelta(t, failureConfidence, result.Confidence, 0.001)
	assert.True(t, result.Patch.IsZero())
}
