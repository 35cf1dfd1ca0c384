package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS campaigns (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					source_url TEXT NOT NULL,
					card_name TEXT NOT NULL DEFAULT '',
					bank TEXT NOT NULL DEFAULT '',
					title TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					reward_amount TEXT,
					reward_kind TEXT NOT NULL DEFAULT '',
					spend_threshold TEXT,
					spend_currency TEXT NOT NULL DEFAULT 'TRY',
					reward_cap TEXT,
					reward_cap_currency TEXT NOT NULL DEFAULT '',
					percentage TEXT,
					valid_from DATETIME,
					valid_until DATETIME,
					eligible_cards TEXT NOT NULL DEFAULT '[]',
					participation TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					brands TEXT NOT NULL DEFAULT '[]',
					image_url TEXT NOT NULL DEFAULT '',
					installments INTEGER,
					incomplete INTEGER NOT NULL DEFAULT 0,
					missing_fields TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(source_url, card_name)
				)`,
				`CREATE INDEX idx_campaigns_card ON campaigns(card_name)`,
				`CREATE INDEX idx_campaigns_title ON campaigns(title)`,

				`CREATE TABLE IF NOT EXISTS canonical_names (
					kind TEXT NOT NULL,
					name TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(kind, name)
				)`,

				`CREATE TABLE IF NOT EXISTS name_aliases (
					kind TEXT NOT NULL,
					alias TEXT NOT NULL,
					canonical TEXT NOT NULL,
					UNIQUE(kind, alias)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Issue flags, repair outcomes and confirmed mappings",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS campaign_issues (
					campaign_id INTEGER NOT NULL,
					issue_type TEXT NOT NULL,
					severity TEXT NOT NULL DEFAULT 'warning',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(campaign_id, issue_type),
					FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
				)`,

				`CREATE TABLE IF NOT EXISTS repair_outcomes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					campaign_id INTEGER NOT NULL,
					status TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
				)`,

				`CREATE TABLE IF NOT EXISTS confirmed_mappings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					brand TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT 'EXTRACTION',
					confirmed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_confirmed_title ON confirmed_mappings(title, confirmed_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Seed canonical categories",
		Up: func(tx *sql.Tx) error {
			categories := []string{
				"Market",
				"Akaryakıt",
				"Restoran",
				"Giyim",
				"Elektronik",
				"Seyahat",
				"E-Ticaret",
				"Sağlık",
				"Eğitim",
				"Diğer",
			}

			for _, name := range categories {
				if _, err := tx.Exec(
					`INSERT OR IGNORE INTO canonical_names (kind, name) VALUES ('category', ?)`,
					name,
				); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", name, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current := 0
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	version := 0
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
