package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Patch is a partial CampaignRecord produced by one repair step. A nil field
// means "leave the record alone"; EligibleCards distinguishes nil (untouched)
// from an empty slice, which the guard rejects because empty means "unknown",
// never "none eligible".
type Patch struct {
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	SpendThreshold *decimal.Decimal
	RewardCap      *decimal.Decimal
	Percentage     *decimal.Decimal
	Installments   *int
	Participation  *string
	EligibleCards  []string

	Notes      string
	Confidence float64
}

// IsZero reports whether the patch carries no field changes at all.
func (p Patch) IsZero() bool {
	return p.ValidFrom == nil && p.ValidUntil == nil &&
		p.SpendThreshold == nil && p.RewardCap == nil &&
		p.Percentage == nil && p.Installments == nil &&
		p.Participation == nil && p.EligibleCards == nil
}

// Merge folds other into p, other winning on every field it sets.
func (p Patch) Merge(other Patch) Patch {
	if other.ValidFrom != nil {
		p.ValidFrom = other.ValidFrom
	}
	if other.ValidUntil != nil {
		p.ValidUntil = other.ValidUntil
	}
	if other.SpendThreshold != nil {
		p.SpendThreshold = other.SpendThreshold
	}
	if other.RewardCap != nil {
		p.RewardCap = other.RewardCap
	}
	if other.Percentage != nil {
		p.Percentage = other.Percentage
	}
	if other.Installments != nil {
		p.Installments = other.Installments
	}
	if other.Participation != nil {
		p.Participation = other.Participation
	}
	if other.EligibleCards != nil {
		p.EligibleCards = other.EligibleCards
	}
	return p
}

// Apply writes the patch onto a record, field by field.
func (p Patch) Apply(rec *CampaignRecord) {
	if p.ValidFrom != nil {
		rec.ValidFrom = p.ValidFrom
	}
	if p.ValidUntil != nil {
		rec.ValidUntil = p.ValidUntil
	}
	if p.SpendThreshold != nil {
		rec.SpendThreshold = p.SpendThreshold
	}
	if p.RewardCap != nil {
		rec.RewardCap = p.RewardCap
	}
	if p.Percentage != nil {
		rec.Percentage = p.Percentage
	}
	if p.Installments != nil {
		rec.Installments = p.Installments
	}
	if p.Participation != nil {
		rec.Participation = *p.Participation
	}
	if p.EligibleCards != nil {
		rec.EligibleCards = p.EligibleCards
	}
}
