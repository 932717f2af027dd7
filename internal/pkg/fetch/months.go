package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

// MonthPlaceholder is substituted in monthly URL templates with a localized
// "month-year" token, e.g. "tasas-{mes}.pdf" -> "tasas-enero-2026.pdf".
const MonthPlaceholder = "{mes}"

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthToken renders the localized month/year token for a date.
func MonthToken(d civil.Date) string {
	return fmt.Sprintf("%s-%d", spanishMonths[d.Month-1], d.Year)
}

// MonthURL expands a monthly URL template for the given date.
func MonthURL(template string, d civil.Date) string {
	return strings.ReplaceAll(template, MonthPlaceholder, MonthToken(d))
}

// FetchMonthly resolves a month-templated URL for the month of asOf and
// fetches it. On a 404 specifically it falls back exactly one calendar month
// and retries once; disclosures are republished near month boundaries with a
// lag, so last month's document is the right answer then. Any non-404
// failure propagates unchanged. The returned Result reports the URL that
// actually resolved.
func (f *Fetcher) FetchMonthly(ctx context.Context, template string, asOf civil.Date, opts Options) (*Result, error) {
	current := MonthURL(template, asOf)
	res, err := f.Fetch(ctx, current, opts)
	if err == nil {
		return res, nil
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		return nil, err
	}

	previous := MonthURL(template, asOf.AddDays(-asOf.Day))
	f.logger.Info("monthly document not yet published, falling back one month",
		zap.String("current", current), zap.String("previous", previous))

	return f.Fetch(ctx, previous, opts)
}
