package aggregator

import "github.com/tasacol/hipotecas-compare/internal/pkg/model"

// Static bank registration. Identities are configuration: never mutated,
// keyed by the same ids the extractor registry uses.
var (
	bancolombiaBank = model.BankIdentity{
		ID:   "bancolombia",
		Name: "Bancolombia",
		URLs: []string{"https://www.bancolombia.com/personas/creditos/vivienda"},
	}
	bogotaBank = model.BankIdentity{
		ID:   "banco-de-bogota",
		Name: "Banco de Bogotá",
		URLs: []string{"https://www.bancodebogota.com/tasas-y-tarifas/credito-hipotecario"},
	}
	daviviendaBank = model.BankIdentity{
		ID:   "davivienda",
		Name: "Davivienda",
		URLs: []string{"https://www.davivienda.com", "https://www.davivienda.com/tarifario/tasas-vivienda.pdf"},
	}
	bbvaBank = model.BankIdentity{
		ID:   "bbva-colombia",
		Name: "BBVA Colombia",
		URLs: []string{"https://www.bbva.com.co/personas/productos/prestamos/vivienda.html"},
	}
)

// bancolombiaDocTemplate embeds a localized month/year token; the published
// path moves every month, with a republication lag the fetcher's one-month
// fallback absorbs.
const bancolombiaDocTemplate = "https://www.bancolombia.com/docs/tasas/vivienda-{mes}.pdf"
