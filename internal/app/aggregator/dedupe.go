package aggregator

import "github.com/tasacol/hipotecas-compare/internal/pkg/model"

type dedupeKey struct {
	product model.ProductType
	index   model.CurrencyIndex
	segment model.Segment
}

// Dedupe resolves offers describing the same economic segment to a single
// representative. Grouping ignores the channel, since the same offer can
// surface through multiple document sections; within a group the lowest
// comparison value wins (the aggregator's purpose is "best available rate"),
// ties keeping the first encountered. Called per bank, where extraction
// order is deterministic. Dedupe is idempotent.
func Dedupe(offers []model.Offer) []model.Offer {
	best := make(map[dedupeKey]int, len(offers))
	out := make([]model.Offer, 0, len(offers))

	for _, offer := range offers {
		key := dedupeKey{offer.ProductType, offer.CurrencyIndex, offer.Segment}
		idx, seen := best[key]
		if !seen {
			best[key] = len(out)
			out = append(out, offer)
			continue
		}
		if offer.Rate.ComparisonValue() < out[idx].Rate.ComparisonValue() {
			out[idx] = offer
		}
	}

	return out
}
