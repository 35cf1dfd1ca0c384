package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ozanyurtsever/promopipe/internal/batch"
	"github.com/ozanyurtsever/promopipe/internal/repair"
)

func repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair stored records flagged with extraction issues",
		Long: `Run the confidence-gated repair batch: each flagged record gets one
targeted service question per issue, and the merged patch is auto-applied,
queued for review, or marked failed depending on its confidence.`,
		RunE: runRepair,
	}

	cmd.Flags().Int("limit", 50, "maximum records to repair this run")
	cmd.Flags().Float64("auto-apply-threshold", repair.DefaultAutoApplyThreshold, "minimum confidence for automatic writes")
	cmd.Flags().Float64("review-threshold", repair.DefaultReviewThreshold, "minimum confidence for the review queue")

	return cmd
}

func runRepair(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	autoThreshold, _ := cmd.Flags().GetFloat64("auto-apply-threshold")
	reviewThreshold, _ := cmd.Flags().GetFloat64("review-threshold")

	ctx := cmd.Context()
	logger := slog.Default()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := initClient(logger)
	if err != nil {
		return err
	}

	engine := repair.NewEngine(client, nil, logger)
	policy := repair.Policy{
		AutoApplyThreshold: autoThreshold,
		ReviewThreshold:    reviewThreshold,
	}

	runner := batch.NewRunner(store, engine, policy, logger, os.Stderr)
	summary, err := runner.Run(ctx, limit)
	if err != nil {
		return err
	}

	slog.Info("repair batch finished",
		"processed", summary.Processed,
		"auto_applied", summary.AutoApplied,
		"needs_review", summary.NeedsReview,
		"failed", summary.Failed,
		"rate_limited", summary.RateLimited)
	return nil
}
