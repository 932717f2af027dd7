// Package aggregator implements the disclosure-to-dataset pipeline: per-bank
// rate extraction, canonicalization, dedup and ranking.
package aggregator

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tasacol/hipotecas-compare/internal/pkg/fetch"
	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

// RateExtractor is the shared per-bank contract. Parse never returns an
// error: transport failures, missing section markers, zero matches and
// under-extraction all surface as warnings on the result, so one bank's
// layout change cannot abort the aggregate run.
type RateExtractor interface {
	BankID() string
	Parse(ctx context.Context) model.BankParseResult
}

// Extractor run stages, logged as the run progresses.
const (
	stageFetching       = "FETCHING"
	stageExtractingText = "EXTRACTING_TEXT"
	stageMatching       = "MATCHING"
	stageBuildingOffers = "BUILDING_OFFERS"
	stageDone           = "DONE"
	stageDoneWarnings   = "DONE_WITH_WARNINGS"
)

// SourceFunc obtains the raw document bytes for one run: a live fetch in
// production, a pinned fixture in deterministic tests.
type SourceFunc func(ctx context.Context) (*fetch.Result, error)

// FixtureSource reads a pre-captured document from disk, standing in for the
// remote endpoint.
func FixtureSource(path string) SourceFunc {
	return func(context.Context) (*fetch.Result, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
		}
		return &fetch.Result{
			Bytes:       raw,
			ResolvedURL: "file://" + path,
			RetrievedAt: time.Now().UTC(),
		}, nil
	}
}

// extractedRate is the transient record emitted per matched pattern,
// consumed immediately by the canonicalizer.
type extractedRate struct {
	productType   model.ProductType
	currencyIndex model.CurrencyIndex
	segment       model.Segment
	rateFrom      float64
	rateTo        *float64
	monthlyFrom   *float64
	description   string
}

// bounds is a closed plausibility interval for one semantic field.
type bounds struct {
	min, max float64
}

func (b bounds) contains(v float64) bool {
	return v >= b.min && v <= b.max
}

// Plausibility bounds shared by the peso/UVR disclosure layout. Several banks
// print four structurally identical percentages per row (two currencies x two
// rate conventions); text order alone cannot tell them apart, the ranges can.
var (
	pesoAnnualBounds  = bounds{min: 10, max: 14}
	uvrSpreadBounds   = bounds{min: 5, max: 10}
	pesoMonthlyBounds = bounds{min: 0.3, max: 1.5}
)

var percentToken = regexp.MustCompile(`(\d{1,2},\d{1,2})\s*%`)

// parseDecimal parses a comma-decimal numeric string ("12,60" -> 12.60).
func parseDecimal(s string) (float64, error) {
	sanitized := strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	v, err := strconv.ParseFloat(sanitized, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse decimal %q: %w", s, err)
	}
	return v, nil
}

// percentGroup is a run of adjacent percentage tokens with the text span
// they were matched in, kept for the audit excerpt.
type percentGroup struct {
	values  []float64
	excerpt string
}

// findPercentGroups scans text for runs of exactly groupSize adjacent
// percentage tokens. Tokens more than maxGap characters apart start a new
// run; runs of any other length are discarded.
func findPercentGroups(text string, groupSize, maxGap int) []percentGroup {
	matches := percentToken.FindAllStringSubmatchIndex(text, -1)

	var groups []percentGroup
	var run [][]int
	flush := func() {
		if len(run) == groupSize {
			values := make([]float64, 0, groupSize)
			for _, m := range run {
				v, err := parseDecimal(text[m[2]:m[3]])
				if err != nil {
					return
				}
				values = append(values, v)
			}
			groups = append(groups, percentGroup{
				values:  values,
				excerpt: strings.TrimSpace(text[run[0][0]:run[len(run)-1][1]]),
			})
		}
		run = nil
	}

	for _, m := range matches {
		if len(run) > 0 && m[0]-run[len(run)-1][1] > maxGap {
			flush()
		}
		run = append(run, m)
		if len(run) == groupSize {
			flush()
		}
	}
	flush()

	return groups
}

// pickPlausible selects the annual peso rate, UVR spread and peso monthly
// rate from a candidate group by range, returning ok=false when neither
// annual field has a plausible candidate (the whole group is then rejected
// rather than coerced).
func pickPlausible(values []float64) (peso, uvr, monthly *float64, ok bool) {
	for i := range values {
		v := values[i]
		switch {
		case peso == nil && pesoAnnualBounds.contains(v):
			peso = &values[i]
		case uvr == nil && uvrSpreadBounds.contains(v):
			uvr = &values[i]
		case monthly == nil && pesoMonthlyBounds.contains(v):
			monthly = &values[i]
		}
	}
	return peso, uvr, monthly, peso != nil || uvr != nil
}

// warnf appends a formatted warning to a result.
func warnf(result *model.BankParseResult, format string, args ...interface{}) {
	result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
}
