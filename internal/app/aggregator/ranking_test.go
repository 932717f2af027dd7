package aggregator

import (
	"testing"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

func rankedFixture() []model.Offer {
	offers := []model.Offer{
		mkOffer("bc-vis", model.IndexPesos, model.SegmentVIS, model.ChannelGeneral, 12.60),
		mkOffer("dv-vis", model.IndexPesos, model.SegmentVIS, model.ChannelGeneral, 12.30),
		mkOffer("bb-vis", model.IndexPesos, model.SegmentVIS, model.ChannelGeneral, 12.90),
		mkOffer("bc-uvr", model.IndexUVR, model.SegmentVIS, model.ChannelGeneral, 6.95),
		mkOffer("dv-uvr", model.IndexUVR, model.SegmentVIS, model.ChannelGeneral, 7.40),
		mkOffer("bc-novis", model.IndexPesos, model.SegmentNoVIS, model.ChannelGeneral, 12.50),
	}
	offers[1].BankID = "davivienda"
	offers[2].BankID = "bbva-colombia"
	offers[4].BankID = "davivienda"
	return offers
}

func TestRankOrderAndPositions(t *testing.T) {
	rankings := Rank(rankedFixture(), DefaultScenarios())

	for key, entries := range rankings.Scenarios {
		for i, entry := range entries {
			if entry.Rank != i+1 {
				t.Errorf("%s[%d].Rank = %d, want contiguous sequence from 1", key, i, entry.Rank)
			}
			if i > 0 && entries[i-1].ComparisonValue > entry.ComparisonValue {
				t.Errorf("%s not sorted: %v after %v", key, entry.ComparisonValue, entries[i-1].ComparisonValue)
			}
		}
	}

	copVIS := rankings.Scenarios["best-fixed-cop-vis"]
	if len(copVIS) != 3 {
		t.Fatalf("best-fixed-cop-vis has %d entries, want 3", len(copVIS))
	}
	if copVIS[0].OfferID != "dv-vis" || copVIS[0].ComparisonValue != 12.30 {
		t.Errorf("best-fixed-cop-vis winner = %+v, want dv-vis at 12.30", copVIS[0])
	}
}

func TestRankScenarioFiltering(t *testing.T) {
	rankings := Rank(rankedFixture(), DefaultScenarios())

	uvrVIS := rankings.Scenarios["best-uvr-vis"]
	if len(uvrVIS) != 2 {
		t.Fatalf("best-uvr-vis has %d entries, want 2", len(uvrVIS))
	}
	for _, entry := range uvrVIS {
		if entry.OfferID != "bc-uvr" && entry.OfferID != "dv-uvr" {
			t.Errorf("best-uvr-vis contains foreign offer %q", entry.OfferID)
		}
	}

	if len(rankings.Scenarios["best-uvr-no-vis"]) != 0 {
		t.Error("best-uvr-no-vis should be empty for this fixture")
	}
}

func TestRankOrderIndependence(t *testing.T) {
	offers := rankedFixture()
	reversed := make([]model.Offer, len(offers))
	for i, o := range offers {
		reversed[len(offers)-1-i] = o
	}

	a := Rank(offers, DefaultScenarios())
	b := Rank(reversed, DefaultScenarios())

	for key := range a.Scenarios {
		ea, eb := a.Scenarios[key], b.Scenarios[key]
		if len(ea) != len(eb) {
			t.Fatalf("%s lengths differ: %d vs %d", key, len(ea), len(eb))
		}
		for i := range ea {
			if ea[i].OfferID != eb[i].OfferID {
				t.Errorf("%s[%d] differs by input order: %q vs %q", key, i, ea[i].OfferID, eb[i].OfferID)
			}
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	offers := []model.Offer{
		mkOffer("first", model.IndexPesos, model.SegmentVIS, model.ChannelGeneral, 12.60),
		mkOffer("second", model.IndexPesos, model.SegmentVIS, model.ChannelGeneral, 12.60),
	}

	entries := Rank(offers, DefaultScenarios()).Scenarios["best-fixed-cop-vis"]
	if len(entries) != 2 || entries[0].OfferID != "first" || entries[1].OfferID != "second" {
		t.Errorf("tied entries = %+v, want insertion order preserved", entries)
	}
}
