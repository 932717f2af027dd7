package aggregator

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

const bbvaFixtureHTML = `<html><body><section>
<h2>Préstamo de Vivienda</h2>
<p>Vivienda VIS tasa desde 12,90% E.A.</p>
<p>Vivienda No VIS tasa desde 13,40% E.A.</p>
<p>Líneas en UVR + 8,30% para todos los plazos.</p>
<p>Obtén 0,50% de descuento por nómina domiciliada.</p>
</section></body></html>`

func TestBBVAParseFixture(t *testing.T) {
	e := NewBBVAFixtureExtractor(bytesSource(bbvaFixtureHTML), zap.NewNop())

	result := e.Parse(context.Background())
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if len(result.Offers) != 5 {
		t.Fatalf("extracted %d offers, want 5 (3 general + 2 payroll): %+v", len(result.Offers), result.Offers)
	}

	var payroll []model.Offer
	for _, o := range result.Offers {
		if o.Channel == model.ChannelPayroll {
			payroll = append(payroll, o)
		}
	}
	if len(payroll) != 2 {
		t.Fatalf("payroll offers = %d, want 2", len(payroll))
	}
	for _, o := range payroll {
		if len(o.Conditions) != 1 || o.Conditions[0].Type != model.ConditionPayrollDiscount {
			t.Errorf("payroll offer %s missing discount condition: %+v", o.ID, o.Conditions)
		}
		if o.Conditions[0].Magnitude != 0.50 {
			t.Errorf("discount magnitude = %v, want 0.50", o.Conditions[0].Magnitude)
		}
	}

	// VIS payroll: 12.90 minus the stated 0.50 discount
	found := false
	for _, o := range payroll {
		if o.Segment == model.SegmentVIS && o.Rate.PercentFrom == 12.40 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected discounted VIS payroll offer at 12.40, got %+v", payroll)
	}
}

func TestBBVAParseRejectsImplausible(t *testing.T) {
	fixture := `<html><body><section>
	<h2>Crédito Hipotecario</h2>
	<p>Vivienda VIS tasa desde 45,00% E.A.</p>
	</section></body></html>`

	e := NewBBVAFixtureExtractor(bytesSource(fixture), zap.NewNop())
	result := e.Parse(context.Background())

	if len(result.Offers) != 0 {
		t.Errorf("implausible rate coerced into offers: %+v", result.Offers)
	}
	if len(result.Warnings) == 0 {
		t.Error("rejection must surface as a warning")
	}
}

func TestBBVAParseMissingSectionFailSoft(t *testing.T) {
	e := NewBBVAFixtureExtractor(bytesSource("<html><body><section><p>Tarjetas</p></section></body></html>"), zap.NewNop())

	result := e.Parse(context.Background())
	if len(result.Offers) != 0 || len(result.Warnings) == 0 || result.ContentFingerprint == "" {
		t.Errorf("fail-soft contract violated: %+v", result)
	}
}
