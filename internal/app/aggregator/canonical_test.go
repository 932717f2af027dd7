package aggregator

import (
	"testing"
	"time"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

func TestOfferIDDeterministic(t *testing.T) {
	r := extractedRate{
		productType:   model.ProductAcquisition,
		currencyIndex: model.IndexPesos,
		segment:       model.SegmentVIS,
		rateFrom:      12.60,
	}

	first := offerID("bancolombia", r, model.ChannelGeneral)
	second := offerID("bancolombia", r, model.ChannelGeneral)
	if first != second {
		t.Errorf("identical inputs produced different ids: %q vs %q", first, second)
	}
	if len(first) != 16 {
		t.Errorf("id length = %d, want fixed-width 16 hex chars: %q", len(first), first)
	}
}

func TestOfferIDSensitiveToEveryTupleField(t *testing.T) {
	base := extractedRate{
		productType:   model.ProductAcquisition,
		currencyIndex: model.IndexPesos,
		segment:       model.SegmentVIS,
		rateFrom:      12.60,
	}
	baseID := offerID("bancolombia", base, model.ChannelGeneral)

	otherIndex, otherSegment, otherRate := base, base, base
	otherIndex.currencyIndex = model.IndexUVR
	otherSegment.segment = model.SegmentNoVIS
	otherRate.rateFrom = 12.61

	variants := map[string]string{
		"bank":     offerID("davivienda", base, model.ChannelGeneral),
		"channel":  offerID("bancolombia", base, model.ChannelPayroll),
		"currency": offerID("bancolombia", otherIndex, model.ChannelGeneral),
		"segment":  offerID("bancolombia", otherSegment, model.ChannelGeneral),
		"rate":     offerID("bancolombia", otherRate, model.ChannelGeneral),
	}
	for field, id := range variants {
		if id == baseID {
			t.Errorf("changing %s did not change the id", field)
		}
	}
}

func TestFingerprintStability(t *testing.T) {
	docA := []byte("tarifario enero 2026")
	docB := []byte("tarifario enero 2027")

	if Fingerprint(docA) != Fingerprint(append([]byte(nil), docA...)) {
		t.Error("byte-identical documents must fingerprint identically")
	}
	if Fingerprint(docA) == Fingerprint(docB) {
		t.Error("a single-byte change must change the fingerprint")
	}
	if Fingerprint(docA) == "" {
		t.Error("fingerprint must be non-empty")
	}
}

func TestBuildOfferAuditTrail(t *testing.T) {
	retrieved := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rateTo := 13.10
	r := extractedRate{
		productType:   model.ProductAcquisition,
		currencyIndex: model.IndexPesos,
		segment:       model.SegmentNoVIS,
		rateFrom:      12.50,
		rateTo:        &rateTo,
		description:   "12,50% 0,99% 7,95% 0,64%",
	}
	meta := sourceMeta{
		url:           "https://example.com/tasas/vivienda-febrero-2026.pdf",
		sourceType:    model.SourcePDF,
		documentLabel: "tarifario vivienda",
		retrievedAt:   retrieved,
		fingerprint:   Fingerprint([]byte("doc")),
		method:        model.MethodRegex,
		locator:       "bancolombia/vivienda-percent-quad",
	}

	offer := buildOffer(bancolombiaBank, r, model.ChannelGeneral, meta, nil)

	if offer.Rate.Kind != model.RateFixed || offer.Rate.PercentFrom != 12.50 {
		t.Errorf("rate = %+v, want FIXED 12.50", offer.Rate)
	}
	if offer.Rate.PercentTo == nil || *offer.Rate.PercentTo != 13.10 {
		t.Errorf("percent_to = %v, want 13.10", offer.Rate.PercentTo)
	}
	if offer.Source.Extraction.Method != model.MethodRegex {
		t.Errorf("method = %q, want REGEX", offer.Source.Extraction.Method)
	}
	if offer.Source.Extraction.Locator == "" || offer.Source.Extraction.Excerpt == "" {
		t.Error("locator and excerpt must both be populated for debugging")
	}
	if offer.Source.RetrievedAt != retrieved {
		t.Errorf("retrieved_at = %v, want %v", offer.Source.RetrievedAt, retrieved)
	}

	uvrRate := extractedRate{
		productType:   model.ProductAcquisition,
		currencyIndex: model.IndexUVR,
		segment:       model.SegmentNoVIS,
		rateFrom:      7.95,
	}
	uvrOffer := buildOffer(bancolombiaBank, uvrRate, model.ChannelGeneral, meta, nil)
	if uvrOffer.Rate.Kind != model.RateIndexedSpread || uvrOffer.Rate.SpreadFrom != 7.95 {
		t.Errorf("UVR rate = %+v, want INDEXED_SPREAD 7.95", uvrOffer.Rate)
	}
	if uvrOffer.Rate.ComparisonValue() != 7.95 {
		t.Errorf("comparison value = %v, want 7.95", uvrOffer.Rate.ComparisonValue())
	}
}
