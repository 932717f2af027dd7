package aggregator

import (
	"context"
	"regexp"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/doc"
	"github.com/tasacol/hipotecas-compare/internal/pkg/fetch"
	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

const bancolombiaMinOffers = 4

var (
	bancolombiaSectionMarker = regexp.MustCompile(`(?i)cr[eé]ditos?\s+(de\s+)?vivienda`)

	// Segment order as printed in the tarifario. Each segment row carries
	// four percentages (peso E.A., peso M.V., UVR spread E.A., UVR M.V.);
	// the plausibility bounds pick the right fields out of the group.
	bancolombiaSegments = []model.Segment{model.SegmentVIS, model.SegmentNoVIS}
)

var _ RateExtractor = &BancolombiaExtractor{}

// BancolombiaExtractor parses the monthly housing tarifario PDF.
type BancolombiaExtractor struct {
	src    SourceFunc
	logger *zap.Logger
}

func NewBancolombiaExtractor(fetcher *fetch.Fetcher, retries int, logger *zap.Logger) *BancolombiaExtractor {
	src := func(ctx context.Context) (*fetch.Result, error) {
		return fetcher.FetchMonthly(ctx, bancolombiaDocTemplate, civil.DateOf(time.Now()), fetch.Options{
			Retries:            retries,
			UseBrowserIdentity: true,
		})
	}
	return &BancolombiaExtractor{src: src, logger: logger}
}

// NewBancolombiaFixtureExtractor runs the same parse against pinned bytes.
func NewBancolombiaFixtureExtractor(src SourceFunc, logger *zap.Logger) *BancolombiaExtractor {
	return &BancolombiaExtractor{src: src, logger: logger}
}

func (e *BancolombiaExtractor) BankID() string { return bancolombiaBank.ID }

func (e *BancolombiaExtractor) Parse(ctx context.Context) model.BankParseResult {
	result := model.BankParseResult{BankID: bancolombiaBank.ID, Offers: []model.Offer{}}

	e.logger.Debug("stage", zap.String("stage", stageFetching))
	res, err := e.src(ctx)
	if err != nil {
		warnf(&result, "failed to fetch tarifario: %v", err)
		e.logger.Warn("fetch failed", zap.Error(err))
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
	rates, warnings := parseBancolombiaPages(pages)
	result.Warnings = append(result.Warnings, warnings...)
	if rates == nil {
		e.logger.Warn("done with warnings", zap.String("stage", stageDoneWarnings), zap.Strings("warnings", result.Warnings))
		return result
	}

	e.logger.Debug("stage", zap.String("stage", stageBuildingOffers))
	meta := sourceMeta{
		url:           res.ResolvedURL,
		sourceType:    model.SourcePDF,
		documentLabel: "tarifario vivienda",
		retrievedAt:   res.RetrievedAt,
		fingerprint:   result.ContentFingerprint,
		method:        model.MethodRegex,
		locator:       "bancolombia/vivienda-percent-quad",
	}
	for _, r := range rates {
		result.Offers = append(result.Offers, buildOffer(bancolombiaBank, r, model.ChannelGeneral, meta, nil))
	}

	if len(result.Offers) < bancolombiaMinOffers {
		warnf(&result, "extracted %d offers, expected at least %d", len(result.Offers), bancolombiaMinOffers)
	}
	e.logger.Info("parse finished", zap.String("stage", stageDone),
		zap.Int("offers", len(result.Offers)), zap.Int("warnings", len(result.Warnings)))
	return result
}

// parseBancolombiaPages locates the housing section and matches its
// four-percentage rows. A nil rate slice means the section marker itself was
// missing (the fail-soft short circuit); an empty one means the section was
// there but no row survived plausibility filtering.
func parseBancolombiaPages(pages []string) ([]extractedRate, []string) {
	var warnings []string

	for _, page := range pages {
		loc := bancolombiaSectionMarker.FindStringIndex(page)
		if loc == nil {
			continue
		}

		// PDF extraction order is not visual order, so values may precede
		// their labels; match on the numeric structure, not on position.
		groups := findPercentGroups(page[loc[0]:], 4, 80)
		rates := make([]extractedRate, 0, len(bancolombiaSegments)*2)
		segIdx := 0
		for _, g := range groups {
			if segIdx >= len(bancolombiaSegments) {
				break
			}
			peso, uvr, monthly, ok := pickPlausible(g.values)
			if !ok {
				warnings = append(warnings, "rejected implausible percent group: "+g.excerpt)
				continue
			}
			segment := bancolombiaSegments[segIdx]
			segIdx++

			if peso != nil {
				rates = append(rates, extractedRate{
					productType:   model.ProductAcquisition,
					currencyIndex: model.IndexPesos,
					segment:       segment,
					rateFrom:      *peso,
					monthlyFrom:   monthly,
					description:   g.excerpt,
				})
			}
			if uvr != nil {
				rates = append(rates, extractedRate{
					productType:   model.ProductAcquisition,
					currencyIndex: model.IndexUVR,
					segment:       segment,
					rateFrom:      *uvr,
					description:   g.excerpt,
				})
			}
		}

		if len(rates) == 0 {
			warnings = append(warnings, "housing section found but no plausible rate rows matched")
		}
		return rates, warnings
	}

	warnings = append(warnings, "housing section marker not found in any page; layout may have changed")
	return nil, warnings
}
