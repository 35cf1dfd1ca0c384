package resolve

import (
	"context"
	"strings"
	"unicode"

	"github.com/ozanyurtsever/promopipe/internal/model"
)

// genericKeywords mark campaigns about banking operations rather than a
// merchant: statement credits, card applications, payment instructions,
// wallet provisioning and the like.
var genericKeywords = []string{
	"ekstre",
	"başvur",
	"otomatik ödeme",
	"fatura talimat",
	"talimat ver",
	"aidat",
	"cüzdan",
	"kart yenileme",
	"ek kart",
	"temassız ödeme",
}

// forbiddenBrandTokens are campaign nouns and product words that extraction
// sometimes reports as brands. They are stripped, never registered.
var forbiddenBrandTokens = []string{
	"kampanya",
	"kart",
	"kredi",
	"banka",
	"puan",
	"indirim",
	"bonus",
	"taksit",
	"harcama",
}

// IsGeneric reports whether the campaign text describes a non-merchant
// banking operation.
func IsGeneric(title, description string) bool {
	combined := strings.ToLower(title + " " + description)
	for _, kw := range genericKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// ResolveBrands canonicalizes the extracted brand value. Generic campaigns
// are forced to the sentinel brand regardless of what extraction returned.
// Unmatched brand-like tokens are registered as new canonical brands so the
// master list grows instead of losing data.
func (r *Resolver) ResolveBrands(ctx context.Context, raw []string, title, description string) ([]string, error) {
	if IsGeneric(title, description) {
		return []string{model.GenericBrand}, nil
	}

	data, err := r.master.Data(ctx)
	if err != nil {
		return nil, err
	}

	bankWords := lowerAll(data.Banks)
	cardWords := lowerAll(data.Cards)

	var resolved []string
	seen := make(map[string]bool)

	for _, field := range raw {
		for _, token := range strings.Split(field, ",") {
			token = strings.TrimSpace(token)
			if token == "" || isForbiddenBrand(token, bankWords, cardWords) {
				continue
			}

			name := token
			if canonical, ok := matchCascade(token, data.Brands, nil); ok {
				name = canonical
			} else {
				name = canonicalizeCapitalization(token)
				if err := r.master.RegisterBrand(ctx, name); err != nil {
					return nil, err
				}
				r.logger.Info("registered new brand", "brand", name)
			}

			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			resolved = append(resolved, name)

			if len(resolved) == model.MaxBrands {
				return resolved, nil
			}
		}
	}

	return resolved, nil
}

func isForbiddenBrand(token string, bankWords, cardWords map[string]bool) bool {
	lowered := strings.ToLower(token)
	if bankWords[lowered] || cardWords[lowered] {
		return true
	}
	for _, forbidden := range forbiddenBrandTokens {
		if lowered == forbidden {
			return true
		}
	}
	return false
}

func lowerAll(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = true
	}
	return out
}

// canonicalizeCapitalization upper-cases the first letter of each word,
// preserving fully upper-cased tokens (acronym brands).
func canonicalizeCapitalization(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == strings.ToUpper(w) {
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
