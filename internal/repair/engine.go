package repair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/llm"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// failureConfidence is the fixed low score a failed issue contributes
// instead of aborting the record.
const failureConfidence = 0.10

// Caller is the slice of the rate-limited client the engine needs.
type Caller interface {
	Call(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Result is the merged outcome of repairing one record.
type Result struct {
	Patch      model.Patch
	Notes      string
	Confidence float64
}

// Engine asks the extraction service one structured question per flagged
// issue, scores each answer, and merges the patches.
type Engine struct {
	client  Caller
	cache   service.KV
	logger  *slog.Logger
	version string
}

// NewEngine creates a repair engine. A nil cache gets an in-process one.
func NewEngine(client Caller, cache service.KV, logger *slog.Logger) *Engine {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:  client,
		cache:   cache,
		logger:  logger,
		version: ExtractorVersion,
	}
}

// Repair processes each issue in order. A rate-limit error aborts the
// remaining issues immediately so the whole record can be retried later; any
// other failure contributes a fixed low confidence and processing continues.
func (e *Engine) Repair(ctx context.Context, rec *model.CampaignRecord, issues []model.ExtractionIssue) (*Result, error) {
	if len(issues) == 0 {
		return &Result{}, nil
	}

	snippet := snippetOf(rec.Description)

	var merged model.Patch
	var notes []string
	total := 0.0
	processed := 0

	for _, issue := range issues {
		answer, err := e.repairIssue(ctx, rec, issue.Type, snippet)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				return nil, err
			}

			e.logger.Warn("issue repair failed",
				"campaign_id", rec.ID,
				"issue", issue.Type,
				"error", err)
			total += failureConfidence
			processed++
			notes = append(notes, fmt.Sprintf("%s: failed (%v)", issue.Type, err))
			continue
		}

		patch, err := decodePatch(answer.Patch)
		if err != nil {
			e.logger.Warn("repair patch did not decode",
				"campaign_id", rec.ID,
				"issue", issue.Type,
				"error", err)
			total += failureConfidence
			processed++
			notes = append(notes, fmt.Sprintf("%s: failed (%v)", issue.Type, err))
			continue
		}

		merged = merged.Merge(patch)
		total += clamp01(*answer.Confidence)
		processed++
		if answer.Notes != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", issue.Type, answer.Notes))
		}
	}

	confidence := 0.0
	if processed > 0 {
		confidence = clamp01(total / float64(processed))
	}
	merged.Confidence = confidence
	merged.Notes = strings.Join(notes, "; ")

	return &Result{
		Patch:      merged,
		Confidence: confidence,
		Notes:      merged.Notes,
	}, nil
}

// repairIssue answers one issue, hitting the content-addressed cache first.
// A cache hit short-circuits the service call entirely.
func (e *Engine) repairIssue(ctx context.Context, rec *model.CampaignRecord, issue model.IssueType, snippet string) (*llm.RepairAnswer, error) {
	key := cacheKey(snippet, issue, e.version)

	if cached, ok := e.cache.Get(key); ok {
		e.logger.Debug("repair cache hit", "campaign_id", rec.ID, "issue", issue)
		return llm.DecodeRepairAnswer(cached)
	}

	raw, err := e.client.Call(ctx, buildIssuePrompt(issue, rec, snippet))
	if err != nil {
		return nil, err
	}

	answer, err := llm.DecodeRepairAnswer(raw)
	if err != nil {
		return nil, err
	}

	e.cache.Set(key, raw)
	return answer, nil
}

// patchPayload mirrors the JSON patch object of the targeted-repair
// contract.
type patchPayload struct {
	ValidFrom      *string          `json:"valid_from"`
	ValidUntil     *string          `json:"valid_until"`
	SpendThreshold *decimal.Decimal `json:"spend_threshold"`
	RewardCap      *decimal.Decimal `json:"reward_cap"`
	Percentage     *decimal.Decimal `json:"percentage"`
	Installments   *int             `json:"installments"`
	Participation  *string          `json:"participation"`
	EligibleCards  []string         `json:"eligible_cards"`
}

func decodePatch(raw json.RawMessage) (model.Patch, error) {
	var p patchPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Patch{}, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}

	patch := model.Patch{
		SpendThreshold: p.SpendThreshold,
		RewardCap:      p.RewardCap,
		Percentage:     p.Percentage,
		Installments:   p.Installments,
		Participation:  p.Participation,
		EligibleCards:  p.EligibleCards,
	}
	patch.ValidFrom = parsePatchDate(p.ValidFrom)
	patch.ValidUntil = parsePatchDate(p.ValidUntil)

	return patch, nil
}

func parsePatchDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	value := strings.TrimSpace(*s)
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
