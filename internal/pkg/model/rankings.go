package model

import "time"

type ScenarioKey string

// RankedEntry references an offer by ID together with the value it was
// compared on and its 1-based position within the scenario.
type RankedEntry struct {
	OfferID         string  `json:"offer_id"`
	BankID          string  `json:"bank_id"`
	ComparisonValue float64 `json:"comparison_value"`
	Rank            int     `json:"rank"`
}

// Rankings maps each configured scenario to its ordered entries. Within one
// scenario, comparison values are non-decreasing by rank.
type Rankings struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Scenarios   map[ScenarioKey][]RankedEntry `json:"scenarios"`
}
