package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una factura.
const (
	InvoiceStatusDraft     = "DRAFT"     // editable, sin número
	InvoiceStatusValidated = "VALIDATED" // número asignado, registro fiscal emitido
	InvoiceStatusVoided    = "VOIDED"    // anulada por una rectificativa
)

// Invoice representa la cabecera de una factura.
//
// Number se asigna una sola vez al validar y nunca se reutiliza. El registro
// fiscal se referencia por LedgerHash; la relación inversa se resuelve con
// LedgerRepository.GetByInvoiceID.
type Invoice struct {
	ID                string
	CompanyID         string
	CustomerID        string
	Number            string // vacío mientras está en DRAFT
	Date              time.Time
	Subtotal          decimal.Decimal
	TaxRate           decimal.Decimal // porcentaje global (21 = 21 %)
	TaxAmount         decimal.Decimal
	Total             decimal.Decimal
	Status            string
	TaxNote           string // mensaje legal de IVA impreso en el documento
	LedgerHash        string
	OriginalInvoiceID string // solo en rectificativas
	ValidatedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsDraft informa si la factura sigue siendo editable.
func (i *Invoice) IsDraft() bool { return i.Status == InvoiceStatusDraft }

// IsRectification informa si la factura rectifica otra.
func (i *Invoice) IsRectification() bool { return i.OriginalInvoiceID != "" }

// ApplyTotals recalcula el total de cada línea y los totales de la cabecera.
// El impuesto se aplica a nivel de factura; redondeo a 2 decimales.
func (i *Invoice) ApplyTotals(lines []*InvoiceLine) {
	subtotal := decimal.Zero
	for _, l := range lines {
		l.Total = l.Quantity.Mul(l.UnitPrice).Round(2)
		subtotal = subtotal.Add(l.Total)
	}
	i.Subtotal = subtotal.Round(2)
	i.TaxAmount = i.Subtotal.Mul(i.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	i.Total = i.Subtotal.Add(i.TaxAmount).Round(2)
}
