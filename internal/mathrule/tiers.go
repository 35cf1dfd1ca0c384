package mathrule

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// TierSummary condenses a multi-tier campaign into one record's worth of
// numbers: the lowest spend that earns anything, the entry-level reward, and
// the total reward available across all tiers.
type TierSummary struct {
	SpendThreshold decimal.Decimal
	RewardAmount   decimal.Decimal
	RewardCap      decimal.Decimal
	TierCount      int
}

// tierPairPattern matches one "spend ... reward" pair, e.g.
// "1.000 TL'ye 50 TL" or "1.000 TL harcamaya 50 TL puan".
var tierPairPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL\S*(?:\s+\p{L}+){0,3}?\s+(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL`)

// DetectTiers looks for a repeating spend/reward structure. It only reports
// a summary when the text carries at least two pairs and at least four
// distinct amounts, so single-tier campaigns keep their literal numbers.
func DetectTiers(text string) (TierSummary, bool) {
	matches := tierPairPattern.FindAllStringSubmatch(text, -1)
	if len(matches) < 2 {
		return TierSummary{}, false
	}

	type pair struct{ spend, reward decimal.Decimal }
	var pairs []pair

	for _, m := range matches {
		spend, ok1 := parseAmount(m[1])
		reward, ok2 := parseAmount(m[2])
		if !ok1 || !ok2 || reward.GreaterThanOrEqual(spend) {
			continue
		}
		pairs = append(pairs, pair{spend, reward})
	}

	if len(pairs) < 2 || len(Amounts(text)) < 4 {
		return TierSummary{}, false
	}

	summary := TierSummary{
		SpendThreshold: pairs[0].spend,
		RewardAmount:   pairs[0].reward,
		TierCount:      len(pairs),
	}
	total := decimal.Zero
	for _, p := range pairs {
		total = total.Add(p.reward)
		if p.spend.LessThan(summary.SpendThreshold) {
			summary.SpendThreshold = p.spend
			summary.RewardAmount = p.reward
		}
	}
	summary.RewardCap = total

	return summary, true
}
