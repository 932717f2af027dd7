package aggregator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

// sourceMeta carries everything the canonicalizer needs to assemble the
// audit trail of an offer.
type sourceMeta struct {
	url           string
	sourceType    model.SourceType
	documentLabel string
	retrievedAt   time.Time
	fingerprint   string
	method        model.ExtractionMethod
	locator       string
}

// offerID derives the short content-addressable identifier. The hash is
// order-sensitive over the identity tuple and deterministic across runs;
// fnv-64a is not cryptographic, which is all this id needs to be.
func offerID(bankID string, r extractedRate, channel model.Channel) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%.4f",
		bankID, r.productType, r.currencyIndex, r.segment, channel, r.rateFrom)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes raw document bytes. Byte-identical documents always
// fingerprint identically; any single-byte change produces a different value.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// buildOffer converts a transient extracted rate into the canonical Offer.
func buildOffer(bank model.BankIdentity, r extractedRate, channel model.Channel, meta sourceMeta, conditions []model.Condition) model.Offer {
	rate := model.Rate{Kind: model.RateFixed, PercentFrom: r.rateFrom, PercentTo: r.rateTo, MonthlyFrom: r.monthlyFrom}
	if r.currencyIndex == model.IndexUVR {
		rate = model.Rate{Kind: model.RateIndexedSpread, SpreadFrom: r.rateFrom, SpreadTo: r.rateTo}
	}

	return model.Offer{
		ID:            offerID(bank.ID, r, channel),
		BankID:        bank.ID,
		BankName:      bank.Name,
		ProductType:   r.productType,
		CurrencyIndex: r.currencyIndex,
		Segment:       r.segment,
		Channel:       channel,
		Rate:          rate,
		Conditions:    conditions,
		Source: model.Source{
			URL:                meta.url,
			Type:               meta.sourceType,
			DocumentLabel:      meta.documentLabel,
			RetrievedAt:        meta.retrievedAt,
			ContentFingerprint: meta.fingerprint,
			Extraction: model.ExtractionMeta{
				Method:  meta.method,
				Locator: meta.locator,
				Excerpt: r.description,
			},
		},
	}
}
