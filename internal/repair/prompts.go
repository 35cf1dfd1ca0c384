package repair

import (
	"fmt"
	"strings"

	"github.com/ozanyurtsever/promopipe/internal/model"
)

// maxSnippet bounds how much record text is sent per repair question.
const maxSnippet = 900

// issueInstructions holds the per-issue question. Each asks for exactly one
// thing so the answer can be scored in isolation.
var issueInstructions = map[model.IssueType]string{
	model.IssueInstallments: `Find the installment count offered by this campaign.
Patch keys: installments (integer). A "taksit" count is an installment count.`,

	model.IssueAmbiguousYear: `The campaign dates may be missing their year. Using the known values and any
month names in the text, decide the correct year for the validity dates.
Patch keys: valid_from, valid_until (YYYY-MM-DD).`,

	model.IssueDateRange: `Find the campaign validity window.
Patch keys: valid_from, valid_until (YYYY-MM-DD). Phrases like
"31 Aralık'a kadar" set valid_until.`,

	model.IssueEligibleCards: `List the card variants eligible for this campaign.
Patch keys: eligible_cards (array of card names). Answer null if the text
names none; never answer an empty array.`,

	model.IssueSMSParticipation: `Determine how a customer joins this campaign, especially SMS enrollment
(keyword and short code).
Patch keys: participation (string, e.g. "SMS KATIL to 4050").`,

	model.IssueSpendThreshold: `Find the minimum cumulative spend required to earn the reward.
Patch keys: spend_threshold (number). For ranges, answer the LOW bound.`,

	model.IssueRewardCap: `Find the maximum total reward this campaign pays out.
Patch keys: reward_cap (number).`,

	model.IssuePercentage: `Find the discount or cashback percentage of this campaign.
Patch keys: percentage (number, e.g. 10 for %10).`,
}

func buildIssuePrompt(issue model.IssueType, rec *model.CampaignRecord, snippet string) string {
	return fmt.Sprintf(`You are repairing one field of an already-extracted Turkish campaign record.

%s

Current known values:
%s
Campaign text snippet:
%s

Respond with a single JSON object: {"patch": {...}, "confidence": 0.0-1.0, "notes": "..."}.
The patch object must contain only the keys named above. Use null when the
text does not state the value; confidence reflects how certain you are.`,
		issueInstructions[issue],
		knownValues(rec),
		snippet)
}

func knownValues(rec *model.CampaignRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- title: %s\n", rec.Title)
	fmt.Fprintf(&b, "- bank: %s\n", rec.Bank)
	fmt.Fprintf(&b, "- card: %s\n", rec.CardName)
	if rec.SpendThreshold != nil {
		fmt.Fprintf(&b, "- spend_threshold: %s\n", rec.SpendThreshold)
	}
	if rec.RewardAmount != nil {
		fmt.Fprintf(&b, "- reward_amount: %s\n", rec.RewardAmount)
	}
	if rec.Percentage != nil {
		fmt.Fprintf(&b, "- percentage: %s\n", rec.Percentage)
	}
	if rec.ValidFrom != nil {
		fmt.Fprintf(&b, "- valid_from: %s\n", rec.ValidFrom.Format("2006-01-02"))
	}
	if rec.ValidUntil != nil {
		fmt.Fprintf(&b, "- valid_until: %s\n", rec.ValidUntil.Format("2006-01-02"))
	}
	return b.String()
}

func snippetOf(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSnippet {
		return text
	}
	return string(runes[:maxSnippet])
}
