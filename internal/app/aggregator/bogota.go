package aggregator

import (
	"context"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/doc"
	"github.com/tasacol/hipotecas-compare/internal/pkg/fetch"
	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

const (
	bogotaMinOffers = 2

	bogotaSectionXPath = `//*[self::h1 or self::h2 or self::h3][contains(., 'Crédito Hipotecario')]`
	bogotaRowsXPath    = `//table//tr[td]`
)

var _ RateExtractor = &BogotaExtractor{}

// BogotaExtractor scrapes the rate table on the Banco de Bogotá tariff page.
type BogotaExtractor struct {
	src    SourceFunc
	logger *zap.Logger
}

func NewBogotaExtractor(fetcher *fetch.Fetcher, retries int, logger *zap.Logger) *BogotaExtractor {
	src := func(ctx context.Context) (*fetch.Result, error) {
		return fetcher.Fetch(ctx, bogotaBank.URLs[0], fetch.Options{
			Retries:            retries,
			UseBrowserIdentity: true,
		})
	}
	return &BogotaExtractor{src: src, logger: logger}
}

func NewBogotaFixtureExtractor(src SourceFunc, logger *zap.Logger) *BogotaExtractor {
	return &BogotaExtractor{src: src, logger: logger}
}

func (e *BogotaExtractor) BankID() string { return bogotaBank.ID }

func (e *BogotaExtractor) Parse(ctx context.Context) model.BankParseResult {
	result := model.BankParseResult{BankID: bogotaBank.ID, Offers: []model.Offer{}}

	e.logger.Debug("stage", zap.String("stage", stageFetching))
	res, err := e.src(ctx)
	if err != nil {
		warnf(&result, "failed to fetch tariff page: %v", err)
		return result
	}
	result.ContentFingerprint = Fingerprint(res.Bytes)

	e.logger.Debug("stage", zap.String("stage", stageExtractingText))
	root, err := doc.ParseHTML(res.Bytes)
	if err != nil {
		warnf(&result, "failed to parse HTML: %v", err)
		return result
	}

	e.logger.Debug("stage", zap.String("stage", stageMatching))
	// this is the shaky part: any restructuring of their page breaks here,
	// which is why absence short-circuits with a warning instead of an error
	marker, err := htmlquery.Query(root, bogotaSectionXPath)
	if err != nil || marker == nil {
		warnf(&result, "housing section heading not found; layout may have changed")
		return result
	}

	rows, err := htmlquery.QueryAll(root, bogotaRowsXPath)
	if err != nil || len(rows) == 0 {
		warnf(&result, "no rate table rows found under housing section")
		return result
	}

	meta := sourceMeta{
		url:           res.ResolvedURL,
		sourceType:    model.SourceHTML,
		documentLabel: "tasas y tarifas",
		retrievedAt:   res.RetrievedAt,
		fingerprint:   result.ContentFingerprint,
		method:        model.MethodCSSSelector,
		locator:       bogotaRowsXPath,
	}

	e.logger.Debug("stage", zap.String("stage", stageBuildingOffers))
	for _, row := range rows {
		cells, err := htmlquery.QueryAll(row, "//td")
		if err != nil || len(cells) < 2 {
			continue
		}

		label := doc.NodeText(cells[0])
		segment, ok := bogotaSegment(label)
		if !ok {
			continue
		}

		rowText := doc.NodeText(row)
		for _, cell := range cells[1:] {
			text := doc.NodeText(cell)
			values := percentToken.FindAllStringSubmatch(text, -1)
			if len(values) == 0 {
				continue
			}
			v, err := parseDecimal(values[0][1])
			if err != nil {
				continue
			}

			r := extractedRate{
				productType: model.ProductAcquisition,
				segment:     segment,
				rateFrom:    v,
				description: rowText,
			}
			switch {
			case strings.Contains(text, "UVR") && uvrSpreadBounds.contains(v):
				r.currencyIndex = model.IndexUVR
			case pesoAnnualBounds.contains(v):
				r.currencyIndex = model.IndexPesos
			default:
				warnf(&result, "rejected implausible rate %s in row: %s", values[0][0], rowText)
				continue
			}
			result.Offers = append(result.Offers, buildOffer(bogotaBank, r, model.ChannelGeneral, meta, nil))
		}
	}

	if len(result.Offers) == 0 {
		warnf(&result, "rate table present but no plausible rates matched")
	} else if len(result.Offers) < bogotaMinOffers {
		warnf(&result, "extracted %d offers, expected at least %d", len(result.Offers), bogotaMinOffers)
	}
	e.logger.Info("parse finished", zap.Int("offers", len(result.Offers)), zap.Int("warnings", len(result.Warnings)))
	return result
}

func bogotaSegment(label string) (model.Segment, bool) {
	normalized := strings.ToLower(label)
	switch {
	case strings.Contains(normalized, "no vis"):
		return model.SegmentNoVIS, true
	case strings.Contains(normalized, "vis"):
		return model.SegmentVIS, true
	default:
		return "", false
	}
}
