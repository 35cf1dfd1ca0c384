package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

const campaignColumns = `id, source_url, card_name, bank, title, description,
	reward_amount, reward_kind, spend_threshold, spend_currency,
	reward_cap, reward_cap_currency, percentage, valid_from, valid_until,
	eligible_cards, participation, category, brands, image_url,
	installments, incomplete, missing_fields, created_at, updated_at`

// Lookup retrieves the record stored for a source URL, regardless of card.
func (s *SQLiteStore) Lookup(ctx context.Context, sourceURL string) (*model.CampaignRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sourceURL, "sourceURL"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE source_url = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`, sourceURL)

	rec, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup campaign: %w", err)
	}
	return rec, nil
}

// LookupMany retrieves all stored records matching the URLs for one card, in
// a single batch query.
func (s *SQLiteStore) LookupMany(ctx context.Context, sourceURLs []string, cardName string) ([]model.CampaignRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(sourceURLs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(sourceURLs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(sourceURLs)+1)
	for _, u := range sourceURLs {
		args = append(args, u)
	}
	args = append(args, cardName)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE source_url IN (`+placeholders+`) AND card_name = ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.CampaignRecord
	for rows.Next() {
		rec, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	return records, nil
}

// GetCampaignByID retrieves one record by primary key.
func (s *SQLiteStore) GetCampaignByID(ctx context.Context, id int64) (*model.CampaignRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = ?
	`, id)

	rec, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return rec, nil
}

// Upsert inserts or updates a record keyed by (source_url, card_name), so
// repeated runs over the same input never duplicate rows.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *model.CampaignRecord) (*model.CampaignRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCampaign(rec); err != nil {
		return nil, err
	}

	eligible, err := encodeStrings(rec.EligibleCards)
	if err != nil {
		return nil, err
	}
	brands, err := encodeStrings(rec.Brands)
	if err != nil {
		return nil, err
	}
	missing, err := encodeStrings(rec.MissingFields)
	if err != nil {
		return nil, err
	}

	currency := rec.SpendCurrency
	if currency == "" {
		currency = model.DefaultCurrency
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns (
			source_url, card_name, bank, title, description,
			reward_amount, reward_kind, spend_threshold, spend_currency,
			reward_cap, reward_cap_currency, percentage, valid_from, valid_until,
			eligible_cards, participation, category, brands, image_url,
			installments, incomplete, missing_fields, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url, card_name) DO UPDATE SET
			bank = excluded.bank,
			title = excluded.title,
			description = excluded.description,
			reward_amount = excluded.reward_amount,
			reward_kind = excluded.reward_kind,
			spend_threshold = excluded.spend_threshold,
			spend_currency = excluded.spend_currency,
			reward_cap = excluded.reward_cap,
			reward_cap_currency = excluded.reward_cap_currency,
			percentage = excluded.percentage,
			valid_from = excluded.valid_from,
			valid_until = excluded.valid_until,
			eligible_cards = excluded.eligible_cards,
			participation = excluded.participation,
			category = excluded.category,
			brands = excluded.brands,
			image_url = excluded.image_url,
			installments = excluded.installments,
			incomplete = excluded.incomplete,
			missing_fields = excluded.missing_fields,
			updated_at = excluded.updated_at
	`,
		rec.SourceURL, rec.CardName, rec.Bank, rec.Title, rec.Description,
		nullDecimal(rec.RewardAmount), string(rec.RewardKind), nullDecimal(rec.SpendThreshold), currency,
		nullDecimal(rec.RewardCap), rec.RewardCapCurrency, nullDecimal(rec.Percentage), rec.ValidFrom, rec.ValidUntil,
		eligible, rec.Participation, rec.Category, brands, rec.ImageURL,
		rec.Installments, rec.Incomplete, missing, now,
	)
	if err != nil {
		return nil, &common.PersistenceError{Op: "campaign upsert", Err: err}
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM campaigns WHERE source_url = ? AND card_name = ?`,
		rec.SourceURL, rec.CardName,
	).Scan(&id)
	if err != nil {
		return nil, &common.PersistenceError{Op: "campaign upsert readback", Err: err}
	}

	return s.GetCampaignByID(ctx, id)
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.CampaignRecord, error) {
	var rec model.CampaignRecord
	var rewardAmount, spendThreshold, rewardCap, percentage sql.NullString
	var validFrom, validUntil sql.NullTime
	var installments sql.NullInt64
	var eligible, brands, missing string
	var rewardKind string

	err := row.Scan(
		&rec.ID, &rec.SourceURL, &rec.CardName, &rec.Bank, &rec.Title, &rec.Description,
		&rewardAmount, &rewardKind, &spendThreshold, &rec.SpendCurrency,
		&rewardCap, &rec.RewardCapCurrency, &percentage, &validFrom, &validUntil,
		&eligible, &rec.Participation, &rec.Category, &brands, &rec.ImageURL,
		&installments, &rec.Incomplete, &missing, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.RewardKind = model.RewardKind(rewardKind)

	if rec.RewardAmount, err = scanDecimal(rewardAmount); err != nil {
		return nil, err
	}
	if rec.SpendThreshold, err = scanDecimal(spendThreshold); err != nil {
		return nil, err
	}
	if rec.RewardCap, err = scanDecimal(rewardCap); err != nil {
		return nil, err
	}
	if rec.Percentage, err = scanDecimal(percentage); err != nil {
		return nil, err
	}

	if validFrom.Valid {
		t := validFrom.Time
		rec.ValidFrom = &t
	}
	if validUntil.Valid {
		t := validUntil.Time
		rec.ValidUntil = &t
	}
	if installments.Valid {
		n := int(installments.Int64)
		rec.Installments = &n
	}

	if rec.EligibleCards, err = decodeStrings(eligible); err != nil {
		return nil, err
	}
	if rec.Brands, err = decodeStrings(brands); err != nil {
		return nil, err
	}
	if rec.MissingFields, err = decodeStrings(missing); err != nil {
		return nil, err
	}

	return &rec, nil
}
