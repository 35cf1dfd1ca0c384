// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/model"
)

// NameKind selects which canonical entity table a name lookup targets.
type NameKind string

// Name kind constants.
const (
	KindBank     NameKind = "bank"
	KindCard     NameKind = "card"
	KindBrand    NameKind = "brand"
	KindCategory NameKind = "category"
)

// Store defines the contract for our persistence layer.
type Store interface {
	// Campaign operations. Upsert is keyed by (source_url, card_name) so
	// repeated runs over the same input are idempotent.
	Lookup(ctx context.Context, sourceURL string) (*model.CampaignRecord, error)
	LookupMany(ctx context.Context, sourceURLs []string, cardName string) ([]model.CampaignRecord, error)
	Upsert(ctx context.Context, rec *model.CampaignRecord) (*model.CampaignRecord, error)
	GetCampaignByID(ctx context.Context, id int64) (*model.CampaignRecord, error)

	// Canonical entity operations.
	LookupCanonicalName(ctx context.Context, kind NameKind, input string) (string, error)
	RegisterCanonicalName(ctx context.Context, kind NameKind, name string) error
	ListCanonicalNames(ctx context.Context, kind NameKind) ([]string, error)
	ListAliases(ctx context.Context, kind NameKind) (map[string]string, error)

	// Confirmed brand/category overrides for recurring titles.
	LatestConfirmed(ctx context.Context, title string) (*model.ConfirmedMapping, error)
	SaveConfirmed(ctx context.Context, m *model.ConfirmedMapping) error

	// Issue flags and repair outcomes.
	SaveIssues(ctx context.Context, campaignID int64, issues []model.ExtractionIssue) error
	ClearIssues(ctx context.Context, campaignID int64) error
	ListFlagged(ctx context.Context, limit int) ([]FlaggedRecord, error)
	SaveRepairOutcome(ctx context.Context, outcome *model.RepairOutcome) error

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// FlaggedRecord pairs a stored campaign with its open extraction issues.
type FlaggedRecord struct {
	Record model.CampaignRecord
	Issues []model.ExtractionIssue
}

// KV is the cache contract used by the auto-fix engine. The default
// implementation is an in-process map; promote it to a shared store when
// running multiple workers.
type KV interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// BatchSummary shows the results of a repair batch run.
type BatchSummary struct {
	Processed   int
	AutoApplied int
	NeedsReview int
	Failed      int
	RateLimited int
}
