// Package diffengine implements the snapshot-to-snapshot diff procedure
// from spec.md §4.6: bucketing, pairing, severity assignment, and the
// low-noise guarantee that discards tiny edits and rounding churn.
package diffengine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricelens/core/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Compute diffs a previous canonical payload against a current one. It
// returns ok=false when there is no meaningful change — per spec.md §4.6
// step 4, Diffs are only meaningful-change signals.
func Compute(previous, current models.PricingPayload, currentIsVerified bool, now time.Time) (models.NormalizedDiff, models.Severity, models.VerificationState, bool) {
	prevBuckets := bucketByKey(previous.PriceMentions)
	currBuckets := bucketByKey(current.PriceMentions)

	keys := unionKeys(prevBuckets, currBuckets)

	var buckets []models.BucketChange
	var maxPctDelta decimal.Decimal
	totalAdded, totalRemoved, totalUpdated := 0, 0, 0

	for _, key := range keys {
		prevAmounts := prevBuckets[key.currency+"|"+string(key.period)]
		currAmounts := currBuckets[key.currency+"|"+string(key.period)]

		bucket := models.BucketChange{Currency: key.currency, Period: key.period}
		pairLen := min(len(prevAmounts), len(currAmounts))

		for i := 0; i < pairLen; i++ {
			prev := prevAmounts[i]
			curr := currAmounts[i]
			absDelta := curr.Sub(prev).Abs()

			var pctDelta decimal.Decimal
			if prev.IsZero() {
				pctDelta = hundred
			} else {
				pctDelta = absDelta.Div(prev).Mul(hundred)
			}

			if absDelta.GreaterThanOrEqual(decimal.NewFromFloat(0.50)) && pctDelta.GreaterThanOrEqual(decimal.NewFromInt(1)) {
				bucket.Updated = append(bucket.Updated, models.AmountUpdate{
					Previous: prev,
					Current:  curr,
					AbsDelta: absDelta,
					PctDelta: pctDelta,
				})
				totalUpdated++
				if pctDelta.GreaterThan(maxPctDelta) {
					maxPctDelta = pctDelta
				}
			}
		}
		for i := pairLen; i < len(prevAmounts); i++ {
			bucket.Removed = append(bucket.Removed, prevAmounts[i])
			totalRemoved++
		}
		for i := pairLen; i < len(currAmounts); i++ {
			bucket.Added = append(bucket.Added, currAmounts[i])
			totalAdded++
		}

		if len(bucket.Added) > 0 || len(bucket.Removed) > 0 || len(bucket.Updated) > 0 {
			buckets = append(buckets, bucket)
		}
	}

	addedHints, removedHints := hintDiff(previous.CustomPricingHints, current.CustomPricingHints)

	nd := models.NormalizedDiff{
		Buckets:            buckets,
		AddedHints:         addedHints,
		RemovedHints:       removedHints,
		PreviousPriceCount: len(previous.PriceMentions),
		CurrentPriceCount:  len(current.PriceMentions),
		PreviousPlanCount:  len(previous.PlanNames),
		CurrentPlanCount:   len(current.PlanNames),
		TotalAdded:         totalAdded,
		TotalRemoved:       totalRemoved,
		TotalUpdated:       totalUpdated,
		ChangedAt:          now,
	}

	if nd.IsEmpty() {
		return models.NormalizedDiff{}, "", "", false
	}

	severity := assignSeverity(maxPctDelta, totalAdded, totalRemoved, totalUpdated, len(addedHints)+len(removedHints) > 0)

	verification := models.VerificationUnverified
	if currentIsVerified {
		verification = models.VerificationVerified
	}

	return nd, severity, verification, true
}

// assignSeverity implements spec.md §4.6 step 5, evaluated in order.
func assignSeverity(maxPctDelta decimal.Decimal, added, removed, updated int, anyHintChange bool) models.Severity {
	twenty := decimal.NewFromInt(20)
	ten := decimal.NewFromInt(10)

	if maxPctDelta.GreaterThanOrEqual(twenty) || (added >= 2 && removed >= 2) {
		return models.SeverityHigh
	}
	if maxPctDelta.GreaterThanOrEqual(ten) || (added+removed+updated >= 2) || anyHintChange {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

type bucketKey struct {
	currency string
	period   models.Period
}

func bucketByKey(mentions []models.PriceMention) map[string][]decimal.Decimal {
	out := make(map[string][]decimal.Decimal)
	for _, m := range mentions {
		out[m.Key()] = append(out[m.Key()], m.Amount)
	}
	for key, amounts := range out {
		sort.Slice(amounts, func(i, j int) bool { return amounts[i].LessThan(amounts[j]) })
		out[key] = amounts
	}
	return out
}

func unionKeys(a, b map[string][]decimal.Decimal) []bucketKey {
	seen := make(map[string]bucketKey)
	for key := range a {
		seen[key] = parseKey(key)
	}
	for key := range b {
		seen[key] = parseKey(key)
	}
	keys := make([]bucketKey, 0, len(seen))
	for _, k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].currency != keys[j].currency {
			return keys[i].currency < keys[j].currency
		}
		return keys[i].period < keys[j].period
	})
	return keys
}

func parseKey(key string) bucketKey {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return bucketKey{currency: key[:i], period: models.Period(key[i+1:])}
		}
	}
	return bucketKey{currency: key}
}

func hintDiff(previous, current []string) (added, removed []string) {
	prevSet := make(map[string]bool, len(previous))
	for _, h := range previous {
		prevSet[h] = true
	}
	currSet := make(map[string]bool, len(current))
	for _, h := range current {
		currSet[h] = true
	}
	for _, h := range current {
		if !prevSet[h] {
			added = append(added, h)
		}
	}
	for _, h := range previous {
		if !currSet[h] {
			removed = append(removed, h)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
