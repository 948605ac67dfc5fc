package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

func line(qty, price string) *entity.InvoiceLine {
	return &entity.InvoiceLine{
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestApplyTotals_IVA21(t *testing.T) {
	inv := &entity.Invoice{TaxRate: decimal.NewFromInt(21)}
	lines := []*entity.InvoiceLine{line("2", "50"), line("1", "0.335")}

	inv.ApplyTotals(lines)

	assert.Equal(t, "100.00", lines[0].Total.StringFixed(2))
	assert.Equal(t, "0.34", lines[1].Total.StringFixed(2), "redondeo estándar a 2 decimales")
	assert.Equal(t, "100.34", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "21.07", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "121.41", inv.Total.StringFixed(2))
}

func TestApplyTotals_SinLineas(t *testing.T) {
	inv := &entity.Invoice{TaxRate: decimal.NewFromInt(21)}
	inv.ApplyTotals(nil)

	assert.True(t, inv.Subtotal.IsZero())
	assert.True(t, inv.TaxAmount.IsZero())
	assert.True(t, inv.Total.IsZero())
}

// Las cantidades negadas producen totales exactamente opuestos (rectificativas).
func TestApplyTotals_NegacionSimetrica(t *testing.T) {
	orig := &entity.Invoice{TaxRate: decimal.NewFromInt(21)}
	rect := &entity.Invoice{TaxRate: decimal.NewFromInt(21)}

	orig.ApplyTotals([]*entity.InvoiceLine{line("3", "10.005"), line("1", "7.5")})
	rect.ApplyTotals([]*entity.InvoiceLine{line("-3", "10.005"), line("-1", "7.5")})

	assert.True(t, orig.Subtotal.Neg().Equal(rect.Subtotal))
	assert.True(t, orig.TaxAmount.Neg().Equal(rect.TaxAmount))
	assert.True(t, orig.Total.Neg().Equal(rect.Total))
}

func TestFiscalPolicy_ComplianceActive(t *testing.T) {
	p := entity.DefaultFiscalPolicy("c1")
	assert.False(t, p.ComplianceActive())

	p.ComplianceMode = entity.ComplianceModeTest
	assert.True(t, p.ComplianceActive())
}

func TestIssuer_NumberingLockedFor(t *testing.T) {
	iss := &entity.Issuer{NumberingLocked: true, LockedYear: 2025}
	assert.True(t, iss.NumberingLockedFor(2025))
	assert.True(t, iss.NumberingLockedFor(2024), "validación fechada en un año posterior")
	assert.False(t, iss.NumberingLockedFor(2026))
	assert.False(t, (&entity.Issuer{LockedYear: 2025}).NumberingLockedFor(2025))
}

func TestIssuer_SuggestedTaxNote(t *testing.T) {
	iss := &entity.Issuer{ReducedRateText: "IVA reducido (art. 91 LIVA)."}

	note, ok := iss.SuggestedTaxNote(decimal.Zero)
	assert.True(t, ok)
	assert.Equal(t, entity.DefaultExemptText, note)

	note, ok = iss.SuggestedTaxNote(decimal.RequireFromString("10.00"))
	assert.True(t, ok)
	assert.Equal(t, "IVA reducido (art. 91 LIVA).", note)

	note, ok = iss.SuggestedTaxNote(decimal.RequireFromString("10.5"))
	assert.False(t, ok)
	assert.Empty(t, note)
}
