// Package extract drives the two-stage natural-language extraction of
// campaign records and the local consistency checks that follow it.
package extract

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ozanyurtsever/promopipe/internal/model"
)

// Critical fields force a second, targeted extraction pass when missing.
const (
	FieldValidUntil     = "valid_until"
	FieldEligibleCards  = "eligible_cards"
	FieldSpendThreshold = "spend_threshold"
	FieldCategory       = "category"
	FieldBank           = "bank"
	FieldRewardAmount   = "reward_amount"
)

// criticalFields in prompt order.
var criticalFields = []string{
	FieldValidUntil,
	FieldEligibleCards,
	FieldSpendThreshold,
	FieldCategory,
	FieldBank,
	FieldRewardAmount,
}

// payload mirrors the JSON schema the extraction service is asked to fill.
// Every field is nullable; the service is told to answer null rather than
// fabricate.
type payload struct {
	Title             *string          `json:"title"`
	RewardAmount      *decimal.Decimal `json:"reward_amount"`
	DiscountAmount    *decimal.Decimal `json:"discount_amount"`
	RewardKind        *string          `json:"reward_kind"`
	SpendThreshold    *decimal.Decimal `json:"spend_threshold"`
	SpendCurrency     *string          `json:"spend_currency"`
	RewardCap         *decimal.Decimal `json:"reward_cap"`
	RewardCapCurrency *string          `json:"reward_cap_currency"`
	Percentage        *decimal.Decimal `json:"percentage"`
	ValidFrom         *string          `json:"valid_from"`
	ValidUntil        *string          `json:"valid_until"`
	EligibleCards     []string         `json:"eligible_cards"`
	Participation     *string          `json:"participation"`
	Category          *string          `json:"category"`
	Brands            []string         `json:"brands"`
	Bank              *string          `json:"bank"`
	CardName          *string          `json:"card_name"`
	Installments      *int             `json:"installments"`
}

// merge folds a later payload into p, the later one winning on overlap.
func (p *payload) merge(other *payload) {
	if other.Title != nil {
		p.Title = other.Title
	}
	if other.RewardAmount != nil {
		p.RewardAmount = other.RewardAmount
	}
	if other.DiscountAmount != nil {
		p.DiscountAmount = other.DiscountAmount
	}
	if other.RewardKind != nil {
		p.RewardKind = other.RewardKind
	}
	if other.SpendThreshold != nil {
		p.SpendThreshold = other.SpendThreshold
	}
	if other.SpendCurrency != nil {
		p.SpendCurrency = other.SpendCurrency
	}
	if other.RewardCap != nil {
		p.RewardCap = other.RewardCap
	}
	if other.RewardCapCurrency != nil {
		p.RewardCapCurrency = other.RewardCapCurrency
	}
	if other.Percentage != nil {
		p.Percentage = other.Percentage
	}
	if other.ValidFrom != nil {
		p.ValidFrom = other.ValidFrom
	}
	if other.ValidUntil != nil {
		p.ValidUntil = other.ValidUntil
	}
	if len(other.EligibleCards) > 0 {
		p.EligibleCards = other.EligibleCards
	}
	if other.Participation != nil {
		p.Participation = other.Participation
	}
	if other.Category != nil {
		p.Category = other.Category
	}
	if len(other.Brands) > 0 {
		p.Brands = other.Brands
	}
	if other.Installments != nil {
		p.Installments = other.Installments
	}
}

// toRecord converts the merged payload into a campaign record. The discount
// and reward amounts are synonyms when only one is present.
func (p *payload) toRecord() *model.CampaignRecord {
	rec := &model.CampaignRecord{
		SpendCurrency: model.DefaultCurrency,
	}

	if p.Title != nil {
		rec.Title = strings.TrimSpace(*p.Title)
	}
	rec.RewardAmount = p.RewardAmount
	if rec.RewardAmount == nil && p.DiscountAmount != nil {
		rec.RewardAmount = p.DiscountAmount
		rec.RewardKind = model.RewardDiscount
	}
	if p.RewardKind != nil {
		rec.RewardKind = model.RewardKind(strings.ToLower(strings.TrimSpace(*p.RewardKind)))
	}
	rec.SpendThreshold = p.SpendThreshold
	if p.SpendCurrency != nil && *p.SpendCurrency != "" {
		rec.SpendCurrency = *p.SpendCurrency
	}
	rec.RewardCap = p.RewardCap
	if p.RewardCapCurrency != nil {
		rec.RewardCapCurrency = *p.RewardCapCurrency
	}
	rec.Percentage = p.Percentage
	rec.ValidFrom = parseDate(p.ValidFrom)
	rec.ValidUntil = parseDate(p.ValidUntil)
	rec.EligibleCards = p.EligibleCards
	if p.Participation != nil {
		rec.Participation = strings.TrimSpace(*p.Participation)
	}
	if p.Category != nil {
		rec.Category = strings.TrimSpace(*p.Category)
	}
	rec.Brands = p.Brands
	rec.Installments = p.Installments

	return rec
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006"}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	value := strings.TrimSpace(*s)
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// missingCriticalFields lists critical fields that are still empty, null, or
// zero-length on the record.
func missingCriticalFields(rec *model.CampaignRecord) []string {
	var missing []string
	for _, field := range criticalFields {
		switch field {
		case FieldValidUntil:
			if rec.ValidUntil == nil {
				missing = append(missing, field)
			}
		case FieldEligibleCards:
			if len(rec.EligibleCards) == 0 {
				missing = append(missing, field)
			}
		case FieldSpendThreshold:
			if rec.SpendThreshold == nil {
				missing = append(missing, field)
			}
		case FieldCategory:
			if rec.Category == "" {
				missing = append(missing, field)
			}
		case FieldBank:
			if rec.Bank == "" {
				missing = append(missing, field)
			}
		case FieldRewardAmount:
			if rec.RewardAmount == nil && rec.Percentage == nil {
				missing = append(missing, field)
			}
		}
	}
	return missing
}
