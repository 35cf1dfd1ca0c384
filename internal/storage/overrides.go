package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

// LatestConfirmed returns the most recent confirmed brand/category mapping
// for an identical title, or common.ErrNotFound.
func (s *SQLiteStore) LatestConfirmed(ctx context.Context, title string) (*model.ConfirmedMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(title, "title"); err != nil {
		return nil, err
	}

	var m model.ConfirmedMapping
	var source string
	err := s.db.QueryRowContext(ctx, `
		SELECT title, brand, category, source, confirmed_at
		FROM confirmed_mappings
		WHERE title = ?
		ORDER BY confirmed_at DESC, id DESC
		LIMIT 1
	`, title).Scan(&m.Title, &m.Brand, &m.Category, &source, &m.ConfirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup confirmed mapping: %w", err)
	}

	m.Source = model.ConfirmedSource(source)
	return &m, nil
}

// SaveConfirmed appends a confirmed mapping. Curated entries are how human
// corrections outlive re-extraction of a recurring campaign.
func (s *SQLiteStore) SaveConfirmed(ctx context.Context, m *model.ConfirmedMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("mapping cannot be nil")
	}
	if err := validateString(m.Title, "title"); err != nil {
		return err
	}

	confirmedAt := m.ConfirmedAt
	if confirmedAt.IsZero() {
		confirmedAt = time.Now()
	}
	source := m.Source
	if source == "" {
		source = model.SourceExtraction
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO confirmed_mappings (title, brand, category, source, confirmed_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.Title, m.Brand, m.Category, string(source), confirmedAt); err != nil {
		return &common.PersistenceError{Op: "confirmed mapping save", Err: err}
	}
	return nil
}
