package model

import "time"

const (
	ProductAcquisition ProductType = "acquisition"
	ProductLeasing     ProductType = "leasing"

	IndexPesos CurrencyIndex = "COP"
	IndexUVR   CurrencyIndex = "UVR"

	SegmentVIS   Segment = "vis"
	SegmentNoVIS Segment = "no-vis"

	ChannelGeneral Channel = "general"
	ChannelPayroll Channel = "payroll"
	ChannelDigital Channel = "digital"

	SourceHTML SourceType = "HTML"
	SourcePDF  SourceType = "PDF"

	MethodRegex       ExtractionMethod = "REGEX"
	MethodCSSSelector ExtractionMethod = "CSS_SELECTOR"

	RateFixed         RateKind = "FIXED"
	RateIndexedSpread RateKind = "INDEXED_SPREAD"

	ConditionPayrollDiscount ConditionType = "payroll_discount"
	ConditionPromotional     ConditionType = "promotional"
)

type ProductType string
type CurrencyIndex string
type Segment string
type Channel string
type SourceType string
type ExtractionMethod string
type RateKind string
type ConditionType string

// BankIdentity is static configuration, never mutated after load.
type BankIdentity struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

// Rate is a tagged union over the two quoting conventions banks use:
// a fixed annual-effective percentage in pesos, or a spread over UVR.
// All percent fields are annualized equivalents unless named Monthly.
type Rate struct {
	Kind        RateKind `json:"kind"`
	PercentFrom float64  `json:"percent_from,omitempty"`
	PercentTo   *float64 `json:"percent_to,omitempty"`
	MonthlyFrom *float64 `json:"monthly_from,omitempty"`
	MonthlyTo   *float64 `json:"monthly_to,omitempty"`
	SpreadFrom  float64  `json:"spread_from,omitempty"`
	SpreadTo    *float64 `json:"spread_to,omitempty"`
}

// ComparisonValue is the single number offers are deduped and ranked by:
// the lower bound of whichever shape the rate takes.
func (r Rate) ComparisonValue() float64 {
	if r.Kind == RateIndexedSpread {
		return r.SpreadFrom
	}
	return r.PercentFrom
}

// Condition is an optional structured adjustment attached to an offer,
// e.g. a discount granted under stated eligibility.
type Condition struct {
	Type      ConditionType `json:"type"`
	Magnitude float64       `json:"magnitude"`
	Note      string        `json:"note,omitempty"`
}

// ExtractionMeta is the audit triple pointing back at the exact pattern and
// text excerpt that produced an offer.
type ExtractionMeta struct {
	Method  ExtractionMethod `json:"method"`
	Locator string           `json:"locator"`
	Excerpt string           `json:"excerpt"`
}

// Source carries the full trail from an offer back to the document bytes
// that produced it.
type Source struct {
	URL                string         `json:"url"`
	Type               SourceType     `json:"source_type"`
	DocumentLabel      string         `json:"document_label,omitempty"`
	RetrievedAt        time.Time      `json:"retrieved_at"`
	ContentFingerprint string         `json:"content_fingerprint"`
	Extraction         ExtractionMeta `json:"extraction"`
}

// Offer is the canonical persisted unit. The ID is content-derived: the same
// (bank, product, index, segment, channel, rate_from) tuple always hashes to
// the same ID across runs.
type Offer struct {
	ID            string        `json:"id"`
	BankID        string        `json:"bank_id"`
	BankName      string        `json:"bank_name"`
	ProductType   ProductType   `json:"product_type"`
	CurrencyIndex CurrencyIndex `json:"currency_index"`
	Segment       Segment       `json:"segment"`
	Channel       Channel       `json:"channel"`
	Rate          Rate          `json:"rate"`
	Conditions    []Condition   `json:"conditions,omitempty"`
	Source        Source        `json:"source"`
}

// BankParseResult is the unit of atomicity for one extractor run. Warnings
// carry every recoverable problem; an empty offer list with warnings is a
// valid outcome, not an error.
type BankParseResult struct {
	BankID             string   `json:"bank_id"`
	Offers             []Offer  `json:"offers"`
	Warnings           []string `json:"warnings"`
	ContentFingerprint string   `json:"content_fingerprint"`
}

// OffersDataset is the flat artifact consumed by the presentation layer.
// A run's dataset fully replaces the previous one.
type OffersDataset struct {
	GeneratedAt time.Time `json:"generated_at"`
	Offers      []Offer   `json:"offers"`
}
