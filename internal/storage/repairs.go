package storage

import (
	"context"
	"fmt"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
	"github.com/ozanyurtsever/promopipe/internal/service"
)

// SaveIssues flags a campaign with extraction issues. Re-flagging the same
// issue type is a no-op.
func (s *SQLiteStore) SaveIssues(ctx context.Context, campaignID int64, issues []model.ExtractionIssue) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, issue := range issues {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO campaign_issues (campaign_id, issue_type, severity)
			VALUES (?, ?, ?)
		`, campaignID, string(issue.Type), string(issue.Severity)); err != nil {
			return &common.PersistenceError{Op: "issue save", Err: err}
		}
	}

	return tx.Commit()
}

// ClearIssues removes all open issues for a campaign, typically after a
// successful auto-applied repair.
func (s *SQLiteStore) ClearIssues(ctx context.Context, campaignID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM campaign_issues WHERE campaign_id = ?
	`, campaignID); err != nil {
		return &common.PersistenceError{Op: "issue clear", Err: err}
	}
	return nil
}

// ListFlagged returns campaigns that carry open issues, oldest flags first,
// each paired with its issue list.
func (s *SQLiteStore) ListFlagged(ctx context.Context, limit int) ([]service.FlaggedRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT campaign_id FROM campaign_issues
		ORDER BY campaign_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flagged campaigns: %w", err)
	}

	var flagged []service.FlaggedRecord
	for _, id := range ids {
		rec, err := s.GetCampaignByID(ctx, id)
		if err != nil {
			return nil, err
		}

		issues, err := s.issuesFor(ctx, id)
		if err != nil {
			return nil, err
		}

		flagged = append(flagged, service.FlaggedRecord{Record: *rec, Issues: issues})
	}

	return flagged, nil
}

func (s *SQLiteStore) issuesFor(ctx context.Context, campaignID int64) ([]model.ExtractionIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_type, severity FROM campaign_issues
		WHERE campaign_id = ?
		ORDER BY issue_type
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []model.ExtractionIssue
	for rows.Next() {
		var issueType, severity string
		if err := rows.Scan(&issueType, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, model.ExtractionIssue{
			Type:     model.IssueType(issueType),
			Severity: model.IssueSeverity(severity),
		})
	}
	return issues, rows.Err()
}

// SaveRepairOutcome records the result of one repair attempt.
func (s *SQLiteStore) SaveRepairOutcome(ctx context.Context, outcome *model.RepairOutcome) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if outcome == nil {
		return fmt.Errorf("outcome cannot be nil")
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_outcomes (campaign_id, status, confidence, notes)
		VALUES (?, ?, ?, ?)
	`, outcome.CampaignID, string(outcome.Status), outcome.Confidence, outcome.Notes); err != nil {
		return &common.PersistenceError{Op: "repair outcome save", Err: err}
	}
	return nil
}
