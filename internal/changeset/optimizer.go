// Package changeset decides which candidate source URLs are worth running
// through extraction again, by classifying each one against the stored state.
package changeset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// State classifies one candidate URL against the store snapshot.
type State string

// Classification states.
const (
	// StateNew means no stored record exists for the URL and card.
	StateNew State = "new"
	// StateIncomplete means a record exists but is missing its image or
	// its brand list and should be reprocessed.
	StateIncomplete State = "incomplete"
	// StateComplete means the record needs no further work.
	StateComplete State = "complete"
)

// Stats counts classifications for observability.
type Stats struct {
	New        int
	Incomplete int
	Complete   int
}

// Result is the outcome of one classification run. ToProcess holds the
// new and incomplete URLs in their original candidate order.
type Result struct {
	ToProcess []string
	States    map[string]State
	Stats     Stats
}

// Optimizer classifies candidate URL sets against a store snapshot.
type Optimizer struct {
	store  service.Store
	logger *slog.Logger
}

// NewOptimizer creates an optimizer backed by the given store.
func NewOptimizer(store service.Store, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{store: store, logger: logger}
}

// Classify looks up all matching stored records in one batch and splits the
// candidates into new, incomplete, and complete. Complete records are skipped;
// the rest form the work list.
func (o *Optimizer) Classify(ctx context.Context, urls []string, cardName string) (*Result, error) {
	result := &Result{
		States: make(map[string]State, len(urls)),
	}
	if len(urls) == 0 {
		return result, nil
	}

	stored, err := o.store.LookupMany(ctx, urls, cardName)
	if err != nil {
		return nil, fmt.Errorf("looking up stored campaigns: %w", err)
	}

	byURL := make(map[string]*model.CampaignRecord, len(stored))
	for i := range stored {
		byURL[stored[i].SourceURL] = &stored[i]
	}

	for _, url := range urls {
		state := classify(byURL[url])
		result.States[url] = state

		switch state {
		case StateNew:
			result.Stats.New++
			result.ToProcess = append(result.ToProcess, url)
		case StateIncomplete:
			result.Stats.Incomplete++
			result.ToProcess = append(result.ToProcess, url)
		case StateComplete:
			result.Stats.Complete++
		}
	}

	o.logger.Info("classified candidate set",
		"card", cardName,
		"candidates", len(urls),
		"new", result.Stats.New,
		"incomplete", result.Stats.Incomplete,
		"complete", result.Stats.Complete)

	return result, nil
}

func classify(rec *model.CampaignRecord) State {
	if rec == nil {
		return StateNew
	}
	if rec.ImageURL == "" || len(rec.Brands) == 0 {
		return StateIncomplete
	}
	return StateComplete
}
