// Package resolve canonicalizes bank, card, brand, and category names
// through an exact, case-insensitive, alias, then fuzzy cascade. It never
// fabricates a canonical name: an unresolved input passes through unchanged
// and is logged for manual curation.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/master"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// Resolver canonicalizes entity names against master data.
type Resolver struct {
	master *master.Repository
	store  service.Store
	logger *slog.Logger
}

// New creates a resolver. The store may be nil when historical lookups are
// not needed (the resolver then skips confirmed-override checks).
func New(masterRepo *master.Repository, store service.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		master: masterRepo,
		store:  store,
		logger: logger,
	}
}

// ResolveBank canonicalizes a bank name. Unresolved names pass through.
func (r *Resolver) ResolveBank(ctx context.Context, input string) (string, error) {
	data, err := r.master.Data(ctx)
	if err != nil {
		return input, err
	}
	return r.resolveName(input, data.Banks, data.BankAliases, "bank"), nil
}

// ResolveCard canonicalizes a card product name. Unresolved names pass
// through.
func (r *Resolver) ResolveCard(ctx context.Context, input string) (string, error) {
	data, err := r.master.Data(ctx)
	if err != nil {
		return input, err
	}
	return r.resolveName(input, data.Cards, data.CardAliases, "card"), nil
}

// ResolveCategory maps a category onto the canonical set. Anything that does
// not resolve becomes the fallback category; the invariant is that a stored
// category is always a member of the canonical set.
func (r *Resolver) ResolveCategory(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return model.FallbackCategory, nil
	}

	data, err := r.master.Data(ctx)
	if err != nil {
		return model.FallbackCategory, err
	}

	if canonical, ok := matchCascade(input, data.Categories, nil); ok {
		return canonical, nil
	}

	r.logger.Warn("unknown category mapped to fallback", "input", input)
	return model.FallbackCategory, nil
}

// resolveName runs the cascade and passes the input through on a miss.
func (r *Resolver) resolveName(input string, candidates []string, aliases map[string]string, kind string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return input
	}

	if canonical, ok := matchCascade(input, candidates, aliases); ok {
		return canonical
	}

	r.logger.Warn("entity name did not resolve, passing through for curation",
		"kind", kind,
		"input", input)
	return input
}

// matchCascade short-circuits on the first matching step: exact, then
// case-insensitive, then alias table, then bounded fuzzy distance.
func matchCascade(input string, candidates []string, aliases map[string]string) (string, bool) {
	for _, c := range candidates {
		if c == input {
			return c, true
		}
	}

	lowered := strings.ToLower(input)
	for _, c := range candidates {
		if strings.ToLower(c) == lowered {
			return c, true
		}
	}

	if aliases != nil {
		if canonical, ok := aliases[lowered]; ok {
			return canonical, true
		}
	}

	best := ""
	bestDistance := fuzzyBudget(input) + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(lowered, strings.ToLower(c))
		if d < bestDistance {
			bestDistance = d
			best = c
		}
	}
	if best != "" {
		return best, true
	}

	return "", false
}

// fuzzyBudget bounds the edit distance so short names cannot jump to
// unrelated entities.
func fuzzyBudget(input string) int {
	n := len([]rune(input)) / 5
	if n < 1 {
		n = 1
	}
	return n
}

// ApplyConfirmedHistory overrides freshly extracted brand/category with the
// most recent confirmed mapping for an identical title, when one exists and
// is not itself generic. This is how human corrections made on earlier runs
// of a recurring campaign survive re-extraction.
func (r *Resolver) ApplyConfirmedHistory(ctx context.Context, rec *model.CampaignRecord) error {
	if r.store == nil || rec.Title == "" {
		return nil
	}

	m, err := r.store.LatestConfirmed(ctx, rec.Title)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("confirmed mapping lookup failed: %w", err)
	}

	if m.Brand != "" && m.Brand != model.GenericBrand {
		rec.Brands = []string{m.Brand}
	}
	if m.Category != "" {
		rec.Category = m.Category
	}

	r.logger.Debug("applied confirmed historical mapping",
		"title", rec.Title,
		"brand", m.Brand,
		"category", m.Category)

	return nil
}
