package repair

import "github.com/ozanyurtsever/promopipe/internal/model"

// Threshold defaults. These are policy constants carried over from earlier
// curation runs, not derived values; override them via Policy when tuning.
const (
	DefaultAutoApplyThreshold = 0.80
	DefaultReviewThreshold    = 0.55
)

// Policy decides what happens to a repair result based on its confidence.
type Policy struct {
	AutoApplyThreshold float64
	ReviewThreshold    float64
}

// DefaultPolicy returns the standard threshold pair.
func DefaultPolicy() Policy {
	return Policy{
		AutoApplyThreshold: DefaultAutoApplyThreshold,
		ReviewThreshold:    DefaultReviewThreshold,
	}
}

// Classify maps a confidence onto auto-apply, needs-review, or failed.
func (p Policy) Classify(confidence float64) model.RepairStatus {
	switch {
	case confidence >= p.AutoApplyThreshold:
		return model.RepairAutoApplied
	case confidence >= p.ReviewThreshold:
		return model.RepairNeedsReview
	default:
		return model.RepairFailed
	}
}
