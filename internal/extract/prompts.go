package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/master"
)

// maxPromptText bounds how much campaign text is sent per call.
const maxPromptText = 12000

// maxBrandSample caps how many known brands are embedded in the prompt.
const maxBrandSample = 40

func buildStage1Prompt(text string, data *master.Data, auth Authority, today time.Time) string {
	brands := data.Brands
	if len(brands) > maxBrandSample {
		brands = brands[:maxBrandSample]
	}

	return fmt.Sprintf(`Extract the structured campaign offer from this Turkish promotional text.

Today's date: %s
Issuing bank (authoritative, do not change): %s
Card product (authoritative, do not change): %s

Canonical categories (pick exactly one):
%s
Known banks:
%s
Known brands (sample, you may name others):
%s
Campaign text:
%s

Respond with a single JSON object using exactly these keys:
title, reward_amount, discount_amount, reward_kind (points|discount|cashback|benefit|statement_discount),
spend_threshold, spend_currency, reward_cap, reward_cap_currency, percentage,
valid_from (YYYY-MM-DD), valid_until (YYYY-MM-DD), eligible_cards (array),
participation, category, brands (array, merchant names only), bank, card_name,
installments.

Rules:
- spend_threshold is the MINIMUM cumulative spend required, never the top of a range.
- Use null for any field the text does not state. Never invent values.
- Amounts are plain numbers without thousands separators.`,
		today.Format("2006-01-02"),
		auth.Bank,
		auth.Card,
		bulletList(data.Categories),
		bulletList(data.Banks),
		bulletList(brands),
		truncateText(text, maxPromptText))
}

func buildStage2Prompt(text string, missing []string) string {
	return fmt.Sprintf(`A first extraction pass over this Turkish campaign text left some fields empty.
Find ONLY the following fields:
%s
Campaign text:
%s

Respond with a single JSON object containing exactly those keys.
Answer null for any field the text genuinely does not state. Do not guess.
Dates are YYYY-MM-DD, amounts plain numbers, eligible_cards an array.`,
		bulletList(missing),
		truncateText(text, maxPromptText))
}

func bulletList(values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return b.String()
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
