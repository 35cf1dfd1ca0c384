package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ozanyurtsever/promopipe/internal/changeset"
	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/extract"
	"github.com/ozanyurtsever/promopipe/internal/master"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/resolve"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// crawledPage is one entry of the crawler export consumed by extract.
type crawledPage struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	ImageURL  string `json:"image_url"`
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract campaign records from crawled pages",
		Long: `Read a crawler export (JSON array of pages), skip pages whose stored
records are already complete, and run the remaining ones through the
two-stage extraction pipeline.`,
		RunE: runExtract,
	}

	cmd.Flags().String("input", "", "crawler export file (JSON array)")
	cmd.Flags().String("bank", "", "authoritative bank name for every page")
	cmd.Flags().String("card", "", "authoritative card name for every page")
	cmd.Flags().Bool("force", false, "reprocess complete records too")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("card")

	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	bank, _ := cmd.Flags().GetString("bank")
	card, _ := cmd.Flags().GetString("card")
	force, _ := cmd.Flags().GetBool("force")

	pages, err := loadPages(input)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		slog.Info("no pages in input", "input", input)
		return nil
	}

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

	masterRepo := master.NewRepository(store, masterTTL())
	resolver := resolve.New(masterRepo, store, logger)
	orchestrator := extract.NewOrchestrator(client, resolver, masterRepo, logger)

	// Skip what the store already knows, unless forced.
	work := pages
	if !force {
		urls := make([]string, len(pages))
		for i, p := range pages {
			urls[i] = p.SourceURL
		}
		optimizer := changeset.NewOptimizer(store, logger)
		result, err := optimizer.Classify(ctx, urls, card)
		if err != nil {
			return err
		}
		work = work[:0]
		for _, p := range pages {
			if result.States[p.SourceURL] != changeset.StateComplete {
				work = append(work, p)
			}
		}
	}

	auth := extract.Authority{Bank: bank, Card: card}
	extracted := 0
	incomplete := 0

	for _, page := range work {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rec, issues, err := orchestrator.Extract(ctx, extract.Input{
			SourceURL: page.SourceURL,
			Title:     page.Title,
			Text:      page.Text,
			ImageURL:  page.ImageURL,
		}, auth)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) {
				slog.Warn("extraction service throttled, stopping run",
					"url", page.SourceURL,
					"extracted", extracted,
					"remaining", len(work)-extracted)
				break
			}
			slog.Error("extraction failed", "url", page.SourceURL, "error", err)
			continue
		}

		if err := persistExtraction(ctx, store, rec, issues); err != nil {
			return err
		}

		extracted++
		if rec.Incomplete {
			incomplete++
		}
	}

	slog.Info("extraction run finished",
		"pages", len(pages),
		"processed", len(work),
		"extracted", extracted,
		"incomplete", incomplete)
	return nil
}

// persistExtraction writes the record, replaces its issue flags, and records
// the resolved brand/category pair for future runs over the same title.
func persistExtraction(ctx context.Context, store service.Store, rec *model.CampaignRecord, issues []model.ExtractionIssue) error {
	saved, err := store.Upsert(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to store campaign %s: %w", rec.SourceURL, err)
	}

	if err := store.ClearIssues(ctx, saved.ID); err != nil {
		return fmt.Errorf("failed to clear issues for campaign %d: %w", saved.ID, err)
	}
	if len(issues) > 0 {
		if err := store.SaveIssues(ctx, saved.ID, issues); err != nil {
			return fmt.Errorf("failed to flag campaign %d: %w", saved.ID, err)
		}
	}

	if !saved.Incomplete && len(saved.Brands) > 0 {
		mapping := &model.ConfirmedMapping{
			Title:       saved.Title,
			Brand:       saved.Brands[0],
			Category:    saved.Category,
			Source:      model.SourceExtraction,
			ConfirmedAt: time.Now(),
		}
		if err := store.SaveConfirmed(ctx, mapping); err != nil {
			slog.Warn("failed to record confirmed mapping",
				"title", saved.Title,
				"error", err)
		}
	}

	return nil
}

func loadPages(path string) ([]crawledPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var pages []crawledPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	return pages, nil
}
