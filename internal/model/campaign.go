// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardKind describes what a campaign pays out.
type RewardKind string

// Reward kind constants.
const (
	RewardPoints   RewardKind = "points"
	RewardDiscount RewardKind = "discount"
	RewardCashback RewardKind = "cashback"
	RewardBenefit  RewardKind = "benefit"
	// RewardStatementDiscount is a discount applied to the card statement
	// rather than at the point of sale.
	RewardStatementDiscount RewardKind = "statement_discount"
)

// DefaultCurrency is assumed when the campaign text names no currency.
const DefaultCurrency = "TRY"

// GenericBrand is the sentinel brand for campaigns that are not tied to any
// merchant (statement credits, application bonuses, payment instructions).
const GenericBrand = "Genel"

// FallbackCategory absorbs category values outside the canonical set.
const FallbackCategory = "Diğer"

// MaxBrands caps how many brands a single campaign may carry.
const MaxBrands = 3

// CampaignRecord is the unit of work and storage: one structured reward
// offer extracted from a single source URL.
type CampaignRecord struct {
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	RewardAmount   *decimal.Decimal
	SpendThreshold *decimal.Decimal
	RewardCap      *decimal.Decimal
	Percentage     *decimal.Decimal
	Installments   *int
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Title             string
	Description       string
	RewardKind        RewardKind
	SpendCurrency     string
	RewardCapCurrency string
	Participation     string
	Category          string
	Bank              string
	CardName          string
	SourceURL         string
	ImageURL          string

	EligibleCards []string
	Brands        []string
	MissingFields []string

	ID         int64
	Incomplete bool
}

// HasReward reports whether any reward signal was detected.
func (r *CampaignRecord) HasReward() bool {
	return r.RewardAmount != nil || r.Percentage != nil || r.RewardKind != ""
}

// ValidityConsistent reports whether the validity window is ordered.
// A half-open window (either side nil) is always consistent.
func (r *CampaignRecord) ValidityConsistent() bool {
	if r.ValidFrom == nil || r.ValidUntil == nil {
		return true
	}
	return r.ValidFrom.Before(*r.ValidUntil)
}

// ConfirmedSource records how a confirmed brand/category mapping came to be.
type ConfirmedSource string

// Confirmed mapping source constants.
const (
	// SourceExtraction marks a mapping written by the pipeline itself.
	SourceExtraction ConfirmedSource = "EXTRACTION"
	// SourceCurated marks a mapping corrected by a human.
	SourceCurated ConfirmedSource = "CURATED"
)

// ConfirmedMapping is a previously confirmed brand/category pair for a
// recurring campaign title. Curated mappings outrank fresh extraction.
type ConfirmedMapping struct {
	ConfirmedAt time.Time
	Title       string
	Brand       string
	Category    string
	Source      ConfirmedSource
}
