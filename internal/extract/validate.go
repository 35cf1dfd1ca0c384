package extract

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ozanyurtsever/promopipe/internal/mathrule"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

// capTolerance is how far the reported threshold may drift from
// cap/(percentage/100) before a warning is flagged. Cap and percentage
// extraction are themselves imprecise, so a mismatch warns instead of
// blocking persistence.
const capTolerance = 0.10

// reconcile cross-checks the merged extraction result against the
// deterministic math engine and applies local auto-fixes. It never calls the
// extraction service again. Returned issues are flags for the later repair
// batch, not errors.
func reconcile(rec *model.CampaignRecord, math mathrule.Result, text string, logger *slog.Logger) []model.ExtractionIssue {
	var issues []model.ExtractionIssue

	applyMathResult(rec, math, logger)

	issues = append(issues, checkCapConsistency(rec, logger)...)
	fixRewardKindVocabulary(rec, text, logger)
	applyTierOverride(rec, text, logger)
	backfillRewardKind(rec)
	issues = append(issues, checkValidityWindow(rec)...)
	issues = append(issues, checkParticipation(rec, text)...)

	return issues
}

// applyMathResult fills fields the service left empty with deterministic
// recomputations. A fired tiered rule overrides the service outright: the
// per-cycle numbers it misreads are exactly what the rule reconstructs.
func applyMathResult(rec *model.CampaignRecord, math mathrule.Result, logger *slog.Logger) {
	if math.Rule == mathrule.RuleTiered {
		rec.SpendThreshold = math.SpendThreshold
		rec.RewardAmount = math.RewardAmount
		rec.RewardCap = math.RewardCap
		logger.Debug("tiered rule overrode extraction numbers", "threshold", math.SpendThreshold)
	} else {
		if rec.SpendThreshold == nil && math.SpendThreshold != nil {
			rec.SpendThreshold = math.SpendThreshold
		}
		if rec.RewardAmount == nil && math.RewardAmount != nil {
			rec.RewardAmount = math.RewardAmount
		}
		if rec.RewardCap == nil && math.RewardCap != nil {
			rec.RewardCap = math.RewardCap
		}
		if rec.Percentage == nil && math.Percentage != nil {
			rec.Percentage = math.Percentage
		}
	}

	if rec.Installments == nil && math.Installments != nil {
		rec.Installments = math.Installments
	}
}

// checkCapConsistency flags percentage campaigns whose threshold does not
// match cap/(percentage/100) within tolerance.
func checkCapConsistency(rec *model.CampaignRecord, logger *slog.Logger) []model.ExtractionIssue {
	if rec.Percentage == nil || rec.RewardCap == nil || rec.SpendThreshold == nil {
		return nil
	}
	if rec.Percentage.IsZero() {
		return nil
	}

	hundred := decimal.NewFromInt(100)
	expected := rec.RewardCap.Div(rec.Percentage.Div(hundred))
	if expected.IsZero() {
		return nil
	}

	drift := rec.SpendThreshold.Sub(expected).Abs().Div(expected)
	if drift.LessThanOrEqual(decimal.NewFromFloat(capTolerance)) {
		return nil
	}

	logger.Warn("threshold does not match cap/percentage",
		"threshold", rec.SpendThreshold,
		"expected", expected,
		"percentage", rec.Percentage,
		"cap", rec.RewardCap)

	return []model.ExtractionIssue{
		{Type: model.IssueSpendThreshold, Severity: model.SeverityWarning},
	}
}

// fixRewardKindVocabulary corrects the known points/discount confusion: the
// service labels statement discounts as points and vice versa. The campaign
// vocabulary is authoritative.
func fixRewardKindVocabulary(rec *model.CampaignRecord, text string, logger *slog.Logger) {
	combined := strings.ToLower(rec.Title + " " + text)
	mentionsDiscount := strings.Contains(combined, "indirim")
	mentionsPoints := strings.Contains(combined, "puan")
	mentionsStatement := strings.Contains(combined, "ekstre")

	switch {
	case rec.RewardKind == model.RewardPoints && mentionsDiscount && !mentionsPoints:
		if mentionsStatement {
			rec.RewardKind = model.RewardStatementDiscount
		} else {
			rec.RewardKind = model.RewardDiscount
		}
		logger.Debug("rewrote reward kind from vocabulary", "kind", rec.RewardKind)

	case (rec.RewardKind == model.RewardDiscount || rec.RewardKind == model.RewardStatementDiscount) &&
		mentionsPoints && !mentionsDiscount:
		rec.RewardKind = model.RewardPoints
		logger.Debug("rewrote reward kind from vocabulary", "kind", rec.RewardKind)

	case rec.RewardKind == model.RewardDiscount && mentionsStatement:
		rec.RewardKind = model.RewardStatementDiscount
	}
}

// applyTierOverride replaces first-tier-only numbers with a range-aware
// summary when the text carries a repeating tier structure.
func applyTierOverride(rec *model.CampaignRecord, text string, logger *slog.Logger) {
	summary, ok := mathrule.DetectTiers(text)
	if !ok {
		return
	}

	rec.SpendThreshold = &summary.SpendThreshold
	rec.RewardAmount = &summary.RewardAmount
	rec.RewardCap = &summary.RewardCap

	logger.Debug("tier summary overrode extraction numbers",
		"tiers", summary.TierCount,
		"threshold", summary.SpendThreshold,
		"cap", summary.RewardCap)
}

// backfillRewardKind keeps the invariant that amount and kind are never both
// unset when a reward was detected.
func backfillRewardKind(rec *model.CampaignRecord) {
	if rec.RewardAmount == nil && rec.Percentage == nil {
		return
	}
	if rec.RewardKind != "" {
		return
	}
	if rec.Percentage != nil {
		rec.RewardKind = model.RewardDiscount
		return
	}
	rec.RewardKind = model.RewardBenefit
}

// checkValidityWindow drops an inverted window and flags it for repair; the
// usual cause is a missing year on one of the dates.
func checkValidityWindow(rec *model.CampaignRecord) []model.ExtractionIssue {
	if rec.ValidityConsistent() {
		return nil
	}

	rec.ValidUntil = nil
	return []model.ExtractionIssue{
		{Type: model.IssueDateRange, Severity: model.SeverityCritical},
		{Type: model.IssueAmbiguousYear, Severity: model.SeverityWarning},
	}
}

// checkParticipation flags campaigns that mention SMS enrollment but carry
// no participation instructions.
func checkParticipation(rec *model.CampaignRecord, text string) []model.ExtractionIssue {
	if rec.Participation != "" {
		return nil
	}
	if !strings.Contains(strings.ToUpper(text), "SMS") {
		return nil
	}
	return []model.ExtractionIssue{
		{Type: model.IssueSMSParticipation, Severity: model.SeverityWarning},
	}
}
