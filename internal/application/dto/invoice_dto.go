package dto

import "github.com/shopspring/decimal"

// InvoiceLineRequest línea de un borrador.
type InvoiceLineRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// DraftInvoiceRequest body para POST /api/invoices y PUT /api/invoices/:id.
// Date en formato YYYY-MM-DD; vacía = hoy.
type DraftInvoiceRequest struct {
	CustomerID string               `json:"customer_id"`
	Date       string               `json:"date,omitempty"`
	TaxRate    decimal.Decimal      `json:"tax_rate"`
	Lines      []InvoiceLineRequest `json:"lines"`
}

// ValidateInvoiceRequest body para POST /api/invoices/:id/validate.
type ValidateInvoiceRequest struct {
	Date    string `json:"date,omitempty"` // fecha de expedición YYYY-MM-DD; vacía = hoy
	TaxNote string `json:"tax_note,omitempty"`
}

// PreValidateResponse respuesta de POST /api/invoices/:id/prevalidate: si la
// factura necesita nota de IVA antes de validar y el texto sugerido.
type PreValidateResponse struct {
	OK            bool   `json:"ok"`
	NeedsTaxNote  bool   `json:"needs_tax_note"`
	SuggestedNote string `json:"suggested_tax_note,omitempty"`
}

// SubmissionResponse resultado del envío del registro fiscal.
type SubmissionResponse struct {
	Status string `json:"status"` // SENT | ERROR
	Detail string `json:"detail,omitempty"`
}

// ValidateInvoiceResponse respuesta de una validación correcta.
type ValidateInvoiceResponse struct {
	OK         bool                `json:"ok"`
	InvoiceID  string              `json:"invoice_id"`
	Number     string              `json:"number"`
	Status     string              `json:"status"`
	LedgerHash string              `json:"ledger_hash,omitempty"`
	Submission *SubmissionResponse `json:"submission,omitempty"`
}

// VoidInvoiceResponse respuesta de POST /api/invoices/:id/void.
type VoidInvoiceResponse struct {
	OK              bool                `json:"ok"`
	OriginalID      string              `json:"original_id"`
	RectificationID string              `json:"rectification_id"`
	Number          string              `json:"number"`
	LedgerHash      string              `json:"ledger_hash,omitempty"`
	Submission      *SubmissionResponse `json:"submission,omitempty"`
}

// BusinessErrorResponse regla de negocio incumplida: {ok:false, error}.
type BusinessErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// InvoiceResponse factura con líneas.
type InvoiceResponse struct {
	ID                string                `json:"id"`
	CompanyID         string                `json:"company_id"`
	CustomerID        string                `json:"customer_id"`
	Number            string                `json:"number,omitempty"`
	Date              string                `json:"date"`
	Status            string                `json:"status"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	TaxRate           decimal.Decimal       `json:"tax_rate"`
	TaxAmount         decimal.Decimal       `json:"tax_amount"`
	Total             decimal.Decimal       `json:"total"`
	TaxNote           string                `json:"tax_note,omitempty"`
	LedgerHash        string                `json:"ledger_hash,omitempty"`
	OriginalInvoiceID string                `json:"original_invoice_id,omitempty"`
	ValidatedAt       string                `json:"validated_at,omitempty"`
	Lines             []InvoiceLineResponse `json:"lines"`
}

// InvoiceLineResponse línea en la respuesta.
type InvoiceLineResponse struct {
	ID          string          `json:"id"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// MinDateResponse fecha mínima admitida para validar (GET /api/invoices/min-date).
type MinDateResponse struct {
	MinDate string `json:"min_date"`
}
