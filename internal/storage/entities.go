package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// LookupCanonicalName resolves an input against the canonical table and the
// alias table for a kind. Returns common.ErrNotFound when neither matches.
func (s *SQLiteStore) LookupCanonicalName(ctx context.Context, kind service.NameKind, input string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(input, "input"); err != nil {
		return "", err
	}

	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT name FROM canonical_names
		WHERE kind = ? AND name = ? COLLATE NOCASE
	`, string(kind), input).Scan(&name)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to lookup canonical name: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT canonical FROM name_aliases
		WHERE kind = ? AND alias = ?
	`, string(kind), strings.ToLower(input)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lookup alias: %w", err)
	}
	return name, nil
}

// RegisterCanonicalName adds a new canonical entity name. Registering an
// existing name (case-insensitively) is a no-op.
func (s *SQLiteStore) RegisterCanonicalName(ctx context.Context, kind service.NameKind, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	var existing string
	err := s.db.QueryRowContext(ctx, `
		SELECT name FROM canonical_names
		WHERE kind = ? AND name = ? COLLATE NOCASE
	`, string(kind), name).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check canonical name: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO canonical_names (kind, name) VALUES (?, ?)
	`, string(kind), name); err != nil {
		return &common.PersistenceError{Op: "canonical name register", Err: err}
	}
	return nil
}

// ListCanonicalNames returns all canonical names of a kind.
func (s *SQLiteStore) ListCanonicalNames(ctx context.Context, kind service.NameKind) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM canonical_names WHERE kind = ? ORDER BY name
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan canonical name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListAliases returns the alias table for a kind, keyed by lowercased alias.
func (s *SQLiteStore) ListAliases(ctx context.Context, kind service.NameKind) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, canonical FROM name_aliases WHERE kind = ?
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	aliases := make(map[string]string)
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases[strings.ToLower(alias)] = canonical
	}
	return aliases, rows.Err()
}

// SaveAlias records an alias for a canonical name.
func (s *SQLiteStore) SaveAlias(ctx context.Context, kind service.NameKind, alias, canonical string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(alias, "alias"); err != nil {
		return err
	}
	if err := validateString(canonical, "canonical"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO name_aliases (kind, alias, canonical)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, alias) DO UPDATE SET canonical = excluded.canonical
	`, string(kind), strings.ToLower(alias), canonical); err != nil {
		return &common.PersistenceError{Op: "alias save", Err: err}
	}
	return nil
}
