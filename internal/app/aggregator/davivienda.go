package aggregator

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/doc"
	"github.com/tasacol/hipotecas-compare/internal/pkg/fetch"
	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

const daviviendaMinOffers = 2

var daviviendaSectionMarker = regexp.MustCompile(`(?i)cr[eé]dito\s+hipotecario`)

// Label-anchored patterns: every number on the tarifario page is a
// percentage, so each pattern is tied to the wording around its field.
var daviviendaPatterns = []struct {
	name    string
	re      *regexp.Regexp
	index   model.CurrencyIndex
	segment model.Segment
}{
	{"pesos-vis", regexp.MustCompile(`(?i)\bVIS\b[^%]{0,100}?tasa[^%]{0,40}?(\d{1,2},\d{1,2})\s*%\s*E\.?\s*A`), model.IndexPesos, model.SegmentVIS},
	{"pesos-no-vis", regexp.MustCompile(`(?i)No\s+VIS\b[^%]{0,100}?tasa[^%]{0,40}?(\d{1,2},\d{1,2})\s*%\s*E\.?\s*A`), model.IndexPesos, model.SegmentNoVIS},
	{"uvr-vis", regexp.MustCompile(`(?i)\bVIS\b[^%]{0,100}?UVR\s*\+\s*(\d{1,2},\d{1,2})\s*%`), model.IndexUVR, model.SegmentVIS},
	{"uvr-no-vis", regexp.MustCompile(`(?i)No\s+VIS\b[^%]{0,100}?UVR\s*\+\s*(\d{1,2},\d{1,2})\s*%`), model.IndexUVR, model.SegmentNoVIS},
}

// daviviendaMatch pairs an extracted rate with the pattern that located it.
type daviviendaMatch struct {
	rate    extractedRate
	locator string
}

var _ RateExtractor = &DaviviendaExtractor{}

// DaviviendaExtractor reads the tarifario PDF through a browser session; the
// site's WAF fingerprints and blocks plain HTTP clients, so the document is
// only reachable after loading the home page with a real browser profile.
type DaviviendaExtractor struct {
	src    SourceFunc
	logger *zap.Logger
}

func NewDaviviendaExtractor(session *fetch.SessionFetcher, logger *zap.Logger) *DaviviendaExtractor {
	src := func(ctx context.Context) (*fetch.Result, error) {
		raw, err := session.FetchViaSession(ctx, daviviendaBank.URLs[1], daviviendaBank.URLs[0])
		if err != nil {
			return nil, err
		}
		return &fetch.Result{
			Bytes:       raw,
			ResolvedURL: daviviendaBank.URLs[1],
			RetrievedAt: time.Now().UTC(),
		}, nil
	}
	return &DaviviendaExtractor{src: src, logger: logger}
}

func NewDaviviendaFixtureExtractor(src SourceFunc, logger *zap.Logger) *DaviviendaExtractor {
	return &DaviviendaExtractor{src: src, logger: logger}
}

func (e *DaviviendaExtractor) BankID() string { return daviviendaBank.ID }

func (e *DaviviendaExtractor) Parse(ctx context.Context) model.BankParseResult {
	result := model.BankParseResult{BankID: daviviendaBank.ID, Offers: []model.Offer{}}

	e.logger.Debug("stage", zap.String("stage", stageFetching))
	res, err := e.src(ctx)
	if err != nil {
		// browser sessions are expensive, no retry: surface and move on
		warnf(&result, "browser session fetch failed: %v", err)
		return result
	}
	result.ContentFingerprint = Fingerprint(res.Bytes)

	e.logger.Debug("stage", zap.String("stage", stageExtractingText))
	pages, err := doc.ExtractPDFPages(res.Bytes)
	if err != nil {
		warnf(&result, "failed to extract PDF text: %v", err)
		return result
	}

	e.logger.Debug("stage", zap.String("stage", stageMatching))
	matches, warnings := parseDaviviendaPages(pages)
	result.Warnings = append(result.Warnings, warnings...)
	if matches == nil {
		return result
	}

	e.logger.Debug("stage", zap.String("stage", stageBuildingOffers))
	for _, m := range matches {
		meta := sourceMeta{
			url:           res.ResolvedURL,
			sourceType:    model.SourcePDF,
			documentLabel: "tarifario vivienda",
			retrievedAt:   res.RetrievedAt,
			fingerprint:   result.ContentFingerprint,
			method:        model.MethodRegex,
			locator:       "davivienda/" + m.locator,
		}
		result.Offers = append(result.Offers, buildOffer(daviviendaBank, m.rate, model.ChannelGeneral, meta, nil))
	}

	if len(result.Offers) < daviviendaMinOffers {
		warnf(&result, "extracted %d offers, expected at least %d", len(result.Offers), daviviendaMinOffers)
	}
	e.logger.Info("parse finished", zap.Int("offers", len(result.Offers)), zap.Int("warnings", len(result.Warnings)))
	return result
}

// parseDaviviendaPages applies the label-anchored patterns to the first page
// carrying the mortgage section marker. A nil slice means the marker was
// absent.
func parseDaviviendaPages(pages []string) ([]daviviendaMatch, []string) {
	var warnings []string

	for _, page := range pages {
		if !daviviendaSectionMarker.MatchString(page) {
			continue
		}

		matches := make([]daviviendaMatch, 0, len(daviviendaPatterns))
		for _, p := range daviviendaPatterns {
			m := p.re.FindStringSubmatch(page)
			if m == nil {
				continue
			}
			v, err := parseDecimal(m[1])
			if err != nil {
				continue
			}

			plausible := pesoAnnualBounds
			if p.index == model.IndexUVR {
				plausible = uvrSpreadBounds
			}
			if !plausible.contains(v) {
				warnings = append(warnings, "rejected implausible "+p.name+" value "+m[1])
				continue
			}

			matches = append(matches, daviviendaMatch{
				locator: p.name,
				rate: extractedRate{
					productType:   model.ProductAcquisition,
					currencyIndex: p.index,
					segment:       p.segment,
					rateFrom:      v,
					description:   m[0],
				},
			})
		}

		if len(matches) == 0 {
			warnings = append(warnings, "mortgage section found but no anchored pattern matched")
		}
		return matches, warnings
	}

	warnings = append(warnings, "mortgage section marker not found in any page; layout may have changed")
	return nil, warnings
}
