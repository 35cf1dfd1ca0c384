package mathrule

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Rule identifies which phrasing pattern produced a result.
type Rule string

// Rule constants, in evaluation priority order.
const (
	RuleNone             Rule = ""
	RuleRange            Rule = "range"
	RuleTiered           Rule = "tiered"
	RulePercentCap       Rule = "percent_cap"
	RuleMultiTransaction Rule = "multi_transaction"
	RulePriceDelta       Rule = "price_delta"
)

// Result is the partial record the engine could reconstruct. Nil means the
// engine found no evidence for that field.
type Result struct {
	SpendThreshold *decimal.Decimal
	RewardAmount   *decimal.Decimal
	RewardCap      *decimal.Decimal
	Percentage     *decimal.Decimal
	Installments   *int
	Rule           Rule
}

var (
	// "1.000 - 20.000 TL" is an explicit range; the threshold is always the
	// low bound, never the high one.
	rangePattern = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*(?:TL)?\s*[-–—]\s*(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL`)

	// "Her 7.500 TL'ye 750 TL ... toplamda 3.000 TL" is a cyclic tier. The
	// stated per-cycle spend is not the threshold; the full threshold is
	// (total / per-cycle reward) * per-cycle spend.
	tieredPattern = regexp.MustCompile(`(?is)her\s+(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL\S*\s+.*?(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL.*?toplam\w*\s+(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL`)

	percentPattern = regexp.MustCompile(`%\s*(\d{1,3}(?:\.\d{3})*(?:,\d+)?)|(\d{1,3}(?:,\d+)?)\s*%`)

	capPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL\S*\s+varan`),
		regexp.MustCompile(`(?i)(?:maksimum|en fazla|azami)\s+(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL`),
		regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL\s+ile\s+s[ıi]n[ıi]rl[ıi]`),
	}

	// "3 ayrı işlemde her biri 1.500 TL": threshold is amount times count.
	multiTxnPattern = regexp.MustCompile(`(?is)(\d+)\s+(?:adet\s+|ayr[ıi]\s+|farkl[ıi]\s+)?(?:i[şs]lem|al[ıi][şs]veri[şs])\w*.{0,60}?(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL`)

	// "2.000 TL yerine 1.500 TL": reward is the delta, threshold the final
	// price.
	priceDeltaPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL\s+yerine\s+(\d{1,3}(?:\.\d{3})*(?:,\d+)?)\s*TL`)

	installmentPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:aya?\s+varan\s+)?taksit`)
	installmentToward  = regexp.MustCompile(`(?i)(\d+)\S*\s*(?:ye|ya|e|a)\s+varan\s+taksit`)
)

// Evaluate runs the rule cascade over title and text. The first monetary rule
// that matches wins; installment extraction is independent of monetary
// fields.
func Evaluate(title, text string) Result {
	combined := title + "\n" + text
	result := Result{Rule: RuleNone}

	if n, ok := extractInstallments(combined); ok {
		result.Installments = &n
	}

	for _, apply := range []func(string, *Result) bool{
		applyRange,
		applyTiered,
		applyPercentCap,
		applyMultiTransaction,
		applyPriceDelta,
	} {
		if apply(combined, &result) {
			return result
		}
	}

	return result
}

func applyRange(text string, result *Result) bool {
	m := rangePattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	low, okLow := parseAmount(m[1])
	high, okHigh := parseAmount(m[2])
	if !okLow || !okHigh {
		return false
	}
	if low.GreaterThan(high) {
		low = high
	}
	result.SpendThreshold = &low
	result.Rule = RuleRange
	return true
}

func applyTiered(text string, result *Result) bool {
	m := tieredPattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	perSpend, ok1 := parseAmount(m[1])
	perReward, ok2 := parseAmount(m[2])
	total, ok3 := parseAmount(m[3])
	if !ok1 || !ok2 || !ok3 || perReward.IsZero() {
		return false
	}

	threshold := total.Div(perReward).Mul(perSpend)
	result.SpendThreshold = &threshold
	result.RewardAmount = &perReward
	result.RewardCap = &total
	result.Rule = RuleTiered
	return true
}

func applyPercentCap(text string, result *Result) bool {
	pm := percentPattern.FindStringSubmatch(text)
	if pm == nil {
		return false
	}
	raw := pm[1]
	if raw == "" {
		raw = pm[2]
	}
	pct, ok := parseAmount(raw)
	if !ok || pct.IsZero() {
		return false
	}

	var capAmount decimal.Decimal
	found := false
	for _, p := range capPatterns {
		if cm := p.FindStringSubmatch(text); cm != nil {
			if c, okC := parseAmount(cm[1]); okC {
				capAmount = c
				found = true
				break
			}
		}
	}
	if !found {
		return false
	}

	hundred := decimal.NewFromInt(100)
	threshold := capAmount.Div(pct.Div(hundred))
	result.SpendThreshold = &threshold
	result.RewardCap = &capAmount
	result.Percentage = &pct
	result.Rule = RulePercentCap
	return true
}

func applyMultiTransaction(text string, result *Result) bool {
	m := multiTxnPattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	count, ok := parseAmount(m[1])
	if !ok || count.IsZero() {
		return false
	}
	perTxn, ok := parseAmount(m[2])
	if !ok {
		return false
	}

	threshold := perTxn.Mul(count)
	result.SpendThreshold = &threshold
	result.Rule = RuleMultiTransaction
	return true
}

func applyPriceDelta(text string, result *Result) bool {
	m := priceDeltaPattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	was, ok1 := parseAmount(m[1])
	now, ok2 := parseAmount(m[2])
	if !ok1 || !ok2 || was.LessThanOrEqual(now) {
		return false
	}

	reward := was.Sub(now)
	result.RewardAmount = &reward
	result.SpendThreshold = &now
	result.Rule = RulePriceDelta
	return true
}

func extractInstallments(text string) (int, bool) {
	m := installmentToward.FindStringSubmatch(text)
	if m == nil {
		m = installmentPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	n, ok := parseAmount(m[1])
	if !ok || !n.IsInteger() || n.IsZero() {
		return 0, false
	}
	return int(n.IntPart()), true
}
