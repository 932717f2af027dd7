package aggregator

import (
	"sort"
	"time"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

// ScenarioDefinition names one market scenario: a predicate selecting the
// offers it covers and the value they compete on. Scenarios are static
// configuration; the engine applies one uniform filter/sort policy to all of
// them.
type ScenarioDefinition struct {
	Key     model.ScenarioKey
	Matches func(model.Offer) bool
	Value   func(model.Offer) float64
}

// DefaultScenarios covers the peso/UVR x VIS/no-VIS acquisition grid.
func DefaultScenarios() []ScenarioDefinition {
	grid := []struct {
		key     model.ScenarioKey
		index   model.CurrencyIndex
		segment model.Segment
	}{
		{"best-fixed-cop-vis", model.IndexPesos, model.SegmentVIS},
		{"best-fixed-cop-no-vis", model.IndexPesos, model.SegmentNoVIS},
		{"best-uvr-vis", model.IndexUVR, model.SegmentVIS},
		{"best-uvr-no-vis", model.IndexUVR, model.SegmentNoVIS},
	}

	scenarios := make([]ScenarioDefinition, 0, len(grid))
	for _, g := range grid {
		g := g
		scenarios = append(scenarios, ScenarioDefinition{
			Key: g.key,
			Matches: func(o model.Offer) bool {
				return o.ProductType == model.ProductAcquisition &&
					o.CurrencyIndex == g.index && o.Segment == g.segment
			},
			Value: func(o model.Offer) float64 { return o.Rate.ComparisonValue() },
		})
	}
	return scenarios
}

// Rank produces, for every scenario, the matching offers sorted ascending by
// comparison value with contiguous rank positions starting at 1. The sort is
// stable, so equal values keep insertion order.
func Rank(offers []model.Offer, scenarios []ScenarioDefinition) model.Rankings {
	rankings := model.Rankings{
		GeneratedAt: time.Now().UTC(),
		Scenarios:   make(map[model.ScenarioKey][]model.RankedEntry, len(scenarios)),
	}

	for _, scenario := range scenarios {
		entries := make([]model.RankedEntry, 0)
		for _, offer := range offers {
			if !scenario.Matches(offer) {
				continue
			}
			entries = append(entries, model.RankedEntry{
				OfferID:         offer.ID,
				BankID:          offer.BankID,
				ComparisonValue: scenario.Value(offer),
			})
		}

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].ComparisonValue < entries[j].ComparisonValue
		})
		for i := range entries {
			entries[i].Rank = i + 1
		}

		rankings.Scenarios[scenario.Key] = entries
	}

	return rankings
}
