package aggregator

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/doc"
	"github.com/tasacol/hipotecas-compare/internal/pkg/fetch"
	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

const bbvaMinOffers = 2

var (
	bbvaSectionMarker = regexp.MustCompile(`(?i)pr[eé]stamo\s+(de\s+)?vivienda|cr[eé]dito\s+hipotecario`)

	bbvaPatterns = []struct {
		name    string
		re      *regexp.Regexp
		index   model.CurrencyIndex
		segment model.Segment
	}{
		{"pesos-vis", regexp.MustCompile(`(?i)vivienda\s+VIS[^%]{0,120}?(\d{1,2},\d{1,2})\s*%`), model.IndexPesos, model.SegmentVIS},
		{"pesos-no-vis", regexp.MustCompile(`(?i)vivienda\s+No\s+VIS[^%]{0,120}?(\d{1,2},\d{1,2})\s*%`), model.IndexPesos, model.SegmentNoVIS},
		{"uvr-no-vis", regexp.MustCompile(`(?i)UVR\s*\+\s*(\d{1,2},\d{1,2})\s*%`), model.IndexUVR, model.SegmentNoVIS},
	}

	// e.g. "0,50% de descuento por nómina domiciliada"
	bbvaPayrollDiscount = regexp.MustCompile(`(?i)(\d{1},\d{1,2})\s*%\s*de\s+descuento[^.]{0,60}?n[oó]mina`)
)

var _ RateExtractor = &BBVAExtractor{}

// BBVAExtractor scrapes the housing-loan page. The host presents a broken
// certificate chain, so the fetch bypasses TLS verification; the bypass is
// scoped to the call inside the fetcher, never a process-wide toggle.
type BBVAExtractor struct {
	src    SourceFunc
	logger *zap.Logger
}

func NewBBVAExtractor(fetcher *fetch.Fetcher, retries int, logger *zap.Logger) *BBVAExtractor {
	src := func(ctx context.Context) (*fetch.Result, error) {
		return fetcher.Fetch(ctx, bbvaBank.URLs[0], fetch.Options{
			Retries:             retries,
			UseBrowserIdentity:  true,
			SkipTLSVerification: true,
		})
	}
	return &BBVAExtractor{src: src, logger: logger}
}

func NewBBVAFixtureExtractor(src SourceFunc, logger *zap.Logger) *BBVAExtractor {
	return &BBVAExtractor{src: src, logger: logger}
}

func (e *BBVAExtractor) BankID() string { return bbvaBank.ID }

func (e *BBVAExtractor) Parse(ctx context.Context) model.BankParseResult {
	result := model.BankParseResult{BankID: bbvaBank.ID, Offers: []model.Offer{}}

	e.logger.Debug("stage", zap.String("stage", stageFetching))
	res, err := e.src(ctx)
	if err != nil {
		warnf(&result, "failed to fetch housing page: %v", err)
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
	var sectionText string
	for _, block := range doc.PageTexts(root) {
		if bbvaSectionMarker.MatchString(block) {
			sectionText = block
			break
		}
	}
	if sectionText == "" {
		warnf(&result, "housing section marker not found; layout may have changed")
		return result
	}

	var discount *model.Condition
	if m := bbvaPayrollDiscount.FindStringSubmatch(sectionText); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			discount = &model.Condition{Type: model.ConditionPayrollDiscount, Magnitude: v, Note: m[0]}
		}
	}

	e.logger.Debug("stage", zap.String("stage", stageBuildingOffers))
	for _, p := range bbvaPatterns {
		m := p.re.FindStringSubmatch(sectionText)
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
			warnf(&result, "rejected implausible %s value %s", p.name, m[1])
			continue
		}

		meta := sourceMeta{
			url:           res.ResolvedURL,
			sourceType:    model.SourceHTML,
			documentLabel: "préstamo vivienda",
			retrievedAt:   res.RetrievedAt,
			fingerprint:   result.ContentFingerprint,
			method:        model.MethodRegex,
			locator:       "bbva/" + p.name,
		}
		r := extractedRate{
			productType:   model.ProductAcquisition,
			currencyIndex: p.index,
			segment:       p.segment,
			rateFrom:      v,
			description:   m[0],
		}
		result.Offers = append(result.Offers, buildOffer(bbvaBank, r, model.ChannelGeneral, meta, nil))

		// the stated payroll discount yields a distinct channel offer with
		// the eligibility condition attached
		if discount != nil && p.index == model.IndexPesos {
			discounted := r
			discounted.rateFrom = r.rateFrom - discount.Magnitude
			result.Offers = append(result.Offers,
				buildOffer(bbvaBank, discounted, model.ChannelPayroll, meta, []model.Condition{*discount}))
		}
	}

	if len(result.Offers) == 0 {
		warnf(&result, "housing section present but no plausible rates matched")
	} else if len(result.Offers) < bbvaMinOffers {
		warnf(&result, "extracted %d offers, expected at least %d", len(result.Offers), bbvaMinOffers)
	}
	e.logger.Info("parse finished", zap.Int("offers", len(result.Offers)), zap.Int("warnings", len(result.Warnings)))
	return result
}
