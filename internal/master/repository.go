// Package master holds the canonical entity lists (banks, cards, brands,
// categories) loaded from the store. The repository is an explicit object
// passed into components rather than ambient global state, so tests can
// inject fixed data.
package master

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/service"
)

// Data is one consistent snapshot of the master entity lists.
type Data struct {
	BankAliases map[string]string
	CardAliases map[string]string
	Categories  []string
	Banks       []string
	Cards       []string
	Brands      []string
}

// Repository caches master data for a TTL and reloads it from the store when
// stale. It is safe for concurrent use.
type Repository struct {
	loadedAt time.Time
	store    service.Store
	data     *Data
	now      func() time.Time
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewRepository creates a TTL-refreshed master data repository.
func NewRepository(store service.Store, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Repository{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// NewFixed creates a repository that always serves the given data and never
// touches a store. Intended for tests.
func NewFixed(data *Data) *Repository {
	return &Repository{
		data:     data,
		loadedAt: time.Now(),
		ttl:      time.Duration(1<<62 - 1),
		now:      time.Now,
	}
}

// Data returns the current snapshot, reloading from the store if the TTL has
// expired.
func (r *Repository) Data(ctx context.Context) (*Data, error) {
	r.mu.RLock()
	if r.data != nil && r.now().Sub(r.loadedAt) < r.ttl {
		data := r.data
		r.mu.RUnlock()
		return data, nil
	}
	r.mu.RUnlock()

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, nil
}

// Refresh forces a reload from the store.
func (r *Repository) Refresh(ctx context.Context) error {
	data := &Data{}

	var err error
	if data.Categories, err = r.store.ListCanonicalNames(ctx, service.KindCategory); err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if data.Banks, err = r.store.ListCanonicalNames(ctx, service.KindBank); err != nil {
		return fmt.Errorf("failed to load banks: %w", err)
	}
	if data.Cards, err = r.store.ListCanonicalNames(ctx, service.KindCard); err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}
	if data.Brands, err = r.store.ListCanonicalNames(ctx, service.KindBrand); err != nil {
		return fmt.Errorf("failed to load brands: %w", err)
	}
	if data.BankAliases, err = r.store.ListAliases(ctx, service.KindBank); err != nil {
		return fmt.Errorf("failed to load bank aliases: %w", err)
	}
	if data.CardAliases, err = r.store.ListAliases(ctx, service.KindCard); err != nil {
		return fmt.Errorf("failed to load card aliases: %w", err)
	}

	r.mu.Lock()
	r.data = data
	r.loadedAt = r.now()
	r.mu.Unlock()

	return nil
}

// RegisterBrand persists a newly discovered brand and adds it to the cached
// snapshot so the same process sees it immediately.
func (r *Repository) RegisterBrand(ctx context.Context, name string) error {
	if r.store != nil {
		if err := r.store.RegisterCanonicalName(ctx, service.KindBrand, name); err != nil {
			return fmt.Errorf("failed to register brand: %w", err)
		}
	}

	r.mu.Lock()
	if r.data != nil {
		r.data.Brands = append(r.data.Brands, name)
	}
	r.mu.Unlock()

	return nil
}
