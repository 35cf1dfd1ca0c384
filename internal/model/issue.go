package model

// IssueType identifies a field-level extraction problem that the auto-fix
// engine knows how to re-ask about.
type IssueType string

// Issue type constants. Each maps to one narrowly-scoped repair prompt.
const (
	IssueInstallments     IssueType = "installments"
	IssueAmbiguousYear    IssueType = "ambiguous_year"
	IssueDateRange        IssueType = "date_range"
	IssueEligibleCards    IssueType = "eligible_cards"
	IssueSMSParticipation IssueType = "sms_participation"
	IssueSpendThreshold   IssueType = "spend_threshold"
	IssueRewardCap        IssueType = "reward_cap"
	IssuePercentage       IssueType = "percentage"
)

// IssueSeverity grades how much an issue degrades the record.
type IssueSeverity string

// Severity constants.
const (
	SeverityWarning  IssueSeverity = "warning"
	SeverityCritical IssueSeverity = "critical"
)

// ExtractionIssue flags one problem on a stored record.
type ExtractionIssue struct {
	Type     IssueType
	Severity IssueSeverity
}

// RepairStatus classifies the outcome of a confidence-gated repair.
type RepairStatus string

// Repair status constants.
const (
	RepairAutoApplied RepairStatus = "AUTO_APPLIED"
	RepairNeedsReview RepairStatus = "NEEDS_REVIEW"
	RepairFailed      RepairStatus = "FAILED"
	// RepairPending marks a record the batch could not reach because the
	// extraction service throttled; a later run retries it.
	RepairPending RepairStatus = "PENDING"
)

// RepairOutcome is the persisted result of one repair attempt on one record.
type RepairOutcome struct {
	CampaignID int64
	Status     RepairStatus
	Confidence float64
	Notes      string
}
