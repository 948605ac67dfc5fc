package entity

import "github.com/shopspring/decimal"

// InvoiceLine representa una línea de detalle de una factura.
// Total = Quantity × UnitPrice; el impuesto se aplica en la cabecera.
type InvoiceLine struct {
	ID          string
	InvoiceID   string
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}
