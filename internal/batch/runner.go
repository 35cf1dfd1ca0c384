// Package batch runs the scheduled repair pass over records that extraction
// flagged with issues.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/repair"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// Runner drains the flagged-record queue through the auto-fix engine and
// applies its policy verdicts.
type Runner struct {
	store    service.Store
	engine   *repair.Engine
	policy   repair.Policy
	logger   *slog.Logger
	progress io.Writer
}

// NewRunner creates a batch runner. A nil progress writer disables the bar.
func NewRunner(store service.Store, engine *repair.Engine, policy repair.Policy, logger *slog.Logger, progress io.Writer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		engine:   engine,
		policy:   policy,
		logger:   logger,
		progress: progress,
	}
}

// Run repairs up to limit flagged records sequentially. When the extraction
// service throttles past its budget, the current record is counted as
// rate-limited and the batch stops; records left behind stay flagged and are
// picked up by the next run.
func (r *Runner) Run(ctx context.Context, limit int) (*service.BatchSummary, error) {
	flagged, err := r.store.ListFlagged(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing flagged campaigns: %w", err)
	}

	summary := &service.BatchSummary{}
	if len(flagged) == 0 {
		r.logger.Info("no flagged campaigns to repair")
		return summary, nil
	}

	bar := r.newProgressBar(len(flagged))

	for _, item := range flagged {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		rec := item.Record
		result, err := r.engine.Repair(ctx, &rec, item.Issues)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				summary.RateLimited++
				r.recordOutcome(ctx, rec.ID, model.RepairOutcome{
					CampaignID: rec.ID,
					Status:     model.RepairPending,
					Notes:      "extraction service throttled, retry next run",
				})
				r.logger.Warn("stopping batch on rate limit",
					"campaign_id", rec.ID,
					"remaining", len(flagged)-summary.Processed-1)
				break
			}
			return summary, fmt.Errorf("repairing campaign %d: %w", rec.ID, err)
		}

		status := r.applyVerdict(ctx, &rec, result)
		summary.Processed++
		switch status {
		case model.RepairAutoApplied:
			summary.AutoApplied++
		case model.RepairNeedsReview:
			summary.NeedsReview++
		case model.RepairFailed:
			summary.Failed++
		}

		r.advance(bar)
	}

	r.finish(bar)
	return summary, nil
}

// applyVerdict classifies one repair result and persists its consequences.
// Guard rejections downgrade an auto-apply to needs-review with the reason.
func (r *Runner) applyVerdict(ctx context.Context, rec *model.CampaignRecord, result *repair.Result) model.RepairStatus {
	status := r.policy.Classify(result.Confidence)
	notes := result.Notes

	if status == model.RepairAutoApplied {
		if err := repair.ValidatePatch(result.Patch); err != nil {
			status = model.RepairNeedsReview
			notes = joinNotes(notes, fmt.Sprintf("auto-apply rejected: %v", err))
			r.logger.Warn("patch failed validation, downgrading to review",
				"campaign_id", rec.ID,
				"error", err)
		} else {
			result.Patch.Apply(rec)
			if _, err := r.store.Upsert(ctx, rec); err != nil {
				status = model.RepairFailed
				notes = joinNotes(notes, fmt.Sprintf("write failed: %v", err))
				r.logger.Error("failed to write repaired campaign",
					"campaign_id", rec.ID,
					"error", err)
			} else if err := r.store.ClearIssues(ctx, rec.ID); err != nil {
				r.logger.Error("failed to clear issues",
					"campaign_id", rec.ID,
					"error", err)
			}
		}
	}

	r.recordOutcome(ctx, rec.ID, model.RepairOutcome{
		CampaignID: rec.ID,
		Status:     status,
		Confidence: result.Confidence,
		Notes:      notes,
	})
	return status
}

func (r *Runner) recordOutcome(ctx context.Context, campaignID int64, outcome model.RepairOutcome) {
	err := common.WithRetry(ctx, func() error {
		return r.store.SaveRepairOutcome(ctx, &outcome)
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		r.logger.Error("failed to record repair outcome",
			"campaign_id", campaignID,
			"error", err)
	}
}

func (r *Runner) newProgressBar(total int) *progressbar.ProgressBar {
	if r.progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Repairing campaigns..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.progress)
		}),
	)
}

func (r *Runner) advance(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}
	if err := bar.Add(1); err != nil {
		r.logger.Warn("failed to advance progress bar", "error", err)
	}
}

func (r *Runner) finish(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}
	if err := bar.Finish(); err != nil {
		r.logger.Warn("failed to finish progress bar", "error", err)
	}
}

func joinNotes(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "; " + addition
}
