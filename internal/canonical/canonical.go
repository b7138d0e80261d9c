// Package canonical implements the canonicalizer from spec.md §4.5: it
// puts a PricingPayload into a stable, de-duplicated, sorted shape so it
// can be hashed and diffed deterministically.
package canonical

import (
	"sort"
	"strings"

	"github.com/pricelens/core/internal/models"
)

// Canonicalize trims/normalizes whitespace on title and description,
// lowercases/trims/de-dupes/sorts planNames and customPricingHints,
// rounds price amounts to 2dp, uppercases currencies, de-dupes price
// mentions by (currency, period, roundedAmount) and sorts them by
// currency asc, period asc, amount asc. Applying it twice is a no-op.
func Canonicalize(p models.PricingPayload) models.PricingPayload {
	out := models.PricingPayload{
		SourceURL:       strings.TrimSpace(p.SourceURL),
		PageTitle:       collapseWhitespace(p.PageTitle),
		PageDescription: collapseWhitespace(p.PageDescription),
		PlanNames:       dedupeSortedLower(p.PlanNames),
		CustomPricingHints: dedupeSortedLower(p.CustomPricingHints),
	}

	mentions := make([]models.PriceMention, len(p.PriceMentions))
	for i, m := range p.PriceMentions {
		mentions[i] = models.PriceMention{
			Amount:   m.Amount,
			Currency: strings.ToUpper(strings.TrimSpace(m.Currency)),
			Period:   m.Period,
		}
	}
	out.PriceMentions = models.SortPriceMentions(mentions)

	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupeSortedLower lowercases, trims, de-dupes and locale-sorts a string
// list, per spec.md §4.5.
func dedupeSortedLower(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		v := collapseWhitespace(strings.ToLower(strings.TrimSpace(item)))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
