package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/llm"
	"github.com/ozanyurtsever/promopipe/internal/master"
	"github.com/ozanyurtsever/promopipe/internal/mathrule"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/resolve"
)

// Caller is the slice of the rate-limited client the orchestrator needs.
type Caller interface {
	Call(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Input is one crawler yield: raw text plus page metadata.
type Input struct {
	SourceURL string
	Title     string
	Text      string
	ImageURL  string
}

// Authority carries the caller-supplied bank and card. These always
// overwrite whatever the extraction service returns for those two fields.
type Authority struct {
	Bank string
	Card string
}

// Orchestrator drives the two-stage extraction and the local repair layer.
type Orchestrator struct {
	client   Caller
	resolver *resolve.Resolver
	master   *master.Repository
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator wires the extraction pipeline.
func NewOrchestrator(client Caller, resolver *resolve.Resolver, masterRepo *master.Repository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		resolver: resolver,
		master:   masterRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Extract produces a campaign record from raw promotional text. Critical
// fields still missing after both passes leave the record in an
// incomplete-but-stored state; that is not an error.
func (o *Orchestrator) Extract(ctx context.Context, in Input, auth Authority) (*model.CampaignRecord, []model.ExtractionIssue, error) {
	data, err := o.master.Data(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load master data: %w", err)
	}

	// Stage 1: broad pass over the full schema.
	raw, err := o.client.Call(ctx, buildStage1Prompt(in.Text, data, auth, o.now()))
	if err != nil {
		return nil, nil, fmt.Errorf("stage 1 extraction failed: %w", err)
	}

	var stage1 payload
	if err := llm.DecodeObject(raw, &stage1); err != nil {
		return nil, nil, fmt.Errorf("stage 1 extraction failed: %w", err)
	}

	rec := stage1.toRecord()
	o.applyAuthority(rec, in, auth)

	// Stage 2: targeted gap-fill, only when critical fields are missing.
	if missing := missingCriticalFields(rec); len(missing) > 0 {
		o.logger.Debug("critical fields missing after stage 1",
			"url", in.SourceURL,
			"fields", missing)

		raw2, err := o.client.Call(ctx, buildStage2Prompt(in.Text, missing))
		if err != nil {
			return nil, nil, fmt.Errorf("stage 2 extraction failed: %w", err)
		}

		var stage2 payload
		if err := llm.DecodeObject(raw2, &stage2); err != nil {
			return nil, nil, fmt.Errorf("stage 2 extraction failed: %w", err)
		}

		stage1.merge(&stage2)
		rec = stage1.toRecord()
		o.applyAuthority(rec, in, auth)
	}

	math := mathrule.Evaluate(rec.Title, in.Text)
	issues := reconcile(rec, math, in.Text, o.logger)

	if err := o.resolveEntities(ctx, rec, in); err != nil {
		return nil, nil, err
	}

	if missing := missingCriticalFields(rec); len(missing) > 0 {
		rec.Incomplete = true
		rec.MissingFields = missing
		issues = append(issues, issuesForMissing(missing)...)
		o.logger.Info("record stored incomplete",
			"url", in.SourceURL,
			"missing", missing)
	}

	return rec, issues, nil
}

// applyAuthority enforces the strict authority rule and the page metadata.
func (o *Orchestrator) applyAuthority(rec *model.CampaignRecord, in Input, auth Authority) {
	rec.Bank = auth.Bank
	rec.CardName = auth.Card
	rec.SourceURL = in.SourceURL
	rec.ImageURL = in.ImageURL
	if rec.Title == "" {
		rec.Title = in.Title
	}
	rec.Description = in.Text
}

func (o *Orchestrator) resolveEntities(ctx context.Context, rec *model.CampaignRecord, in Input) error {
	var err error
	if rec.Bank, err = o.resolver.ResolveBank(ctx, rec.Bank); err != nil {
		return fmt.Errorf("bank resolution failed: %w", err)
	}
	if rec.CardName, err = o.resolver.ResolveCard(ctx, rec.CardName); err != nil {
		return fmt.Errorf("card resolution failed: %w", err)
	}
	if rec.Category, err = o.resolver.ResolveCategory(ctx, rec.Category); err != nil {
		return fmt.Errorf("category resolution failed: %w", err)
	}
	if rec.Brands, err = o.resolver.ResolveBrands(ctx, rec.Brands, rec.Title, in.Text); err != nil {
		return fmt.Errorf("brand resolution failed: %w", err)
	}
	if err = o.resolver.ApplyConfirmedHistory(ctx, rec); err != nil {
		return err
	}
	return nil
}

// issuesForMissing maps still-missing critical fields onto repairable issue
// types. Fields without a matching repair prompt stay on the record's
// missing list only.
func issuesForMissing(missing []string) []model.ExtractionIssue {
	var issues []model.ExtractionIssue
	for _, field := range missing {
		switch field {
		case FieldValidUntil:
			issues = append(issues, model.ExtractionIssue{Type: model.IssueDateRange, Severity: model.SeverityCritical})
		case FieldEligibleCards:
			issues = append(issues, model.ExtractionIssue{Type: model.IssueEligibleCards, Severity: model.SeverityWarning})
		case FieldSpendThreshold:
			issues = append(issues, model.ExtractionIssue{Type: model.IssueSpendThreshold, Severity: model.SeverityCritical})
		}
	}
	return issues
}
