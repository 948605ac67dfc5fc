package dto

import "github.com/shopspring/decimal"

// IssuerRequest body para PUT /api/fiscal/issuer.
type IssuerRequest struct {
	Name              string `json:"name"`
	TaxID             string `json:"tax_id"`
	RectificationText string `json:"rectification_text,omitempty"`
	ExemptText        string `json:"exempt_text,omitempty"`
	ReducedRateText   string `json:"reduced_rate_text,omitempty"`
}

// NumberingRequest body para PUT /api/fiscal/numbering.
type NumberingRequest struct {
	Series   string `json:"series"`
	Template string `json:"template"`
}

// IssuerResponse emisor y estado de su numeración.
type IssuerResponse struct {
	CompanyID         string `json:"company_id"`
	Name              string `json:"name"`
	TaxID             string `json:"tax_id"`
	Series            string `json:"series"`
	Template          string `json:"template"`
	NextNumber        int64  `json:"next_number"`
	LastNumberedYear  int    `json:"last_numbered_year,omitempty"`
	NumberingLocked   bool   `json:"numbering_locked"`
	LockedYear        int    `json:"locked_year,omitempty"`
	RectificationText string `json:"rectification_text"`
	ExemptText        string `json:"exempt_text"`
	ReducedRateText   string `json:"reduced_rate_text"`
}

// NumberPreviewResponse número que recibiría la siguiente validación.
type NumberPreviewResponse struct {
	Date   string `json:"date"`
	Number string `json:"number"`
}

// PolicyRequest body para PUT /api/fiscal/policy.
type PolicyRequest struct {
	ImmutableValidated      bool   `json:"immutable_validated"`
	ForbidValidatedDeletion bool   `json:"forbid_validated_deletion"`
	BlockPastDates          bool   `json:"block_past_dates"`
	ComplianceMode          string `json:"compliance_mode"`
	ComplianceURL           string `json:"compliance_url,omitempty"`
	AuditEnabled            bool   `json:"audit_enabled"`
	AuditLevel              string `json:"audit_level"`
}

// PolicyResponse política fiscal vigente.
type PolicyResponse struct {
	PolicyRequest
	CompanyID string `json:"company_id"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// LedgerEntryResponse registro fiscal encadenado.
type LedgerEntryResponse struct {
	ID               string          `json:"id"`
	InvoiceID        string          `json:"invoice_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	InvoiceDate      string          `json:"invoice_date"`
	InvoiceTotal     decimal.Decimal `json:"invoice_total"`
	IssuerTaxID      string          `json:"issuer_tax_id"`
	Hash             string          `json:"hash"`
	PreviousHash     string          `json:"previous_hash"`
	RegisteredAt     string          `json:"registered_at"`
	SubmissionStatus string          `json:"submission_status"`
	SubmissionError  string          `json:"submission_error,omitempty"`
	SubmittedAt      string          `json:"submitted_at,omitempty"`
	QRURL            string          `json:"qr_url,omitempty"`
}

// ChainBreak primer eslabón que no cuadra.
type ChainBreak struct {
	EntryID       string `json:"entry_id"`
	InvoiceNumber string `json:"invoice_number"`
	Position      int    `json:"position"`
	Reason        string `json:"reason"`
}

// ChainVerificationResponse resultado de GET /api/fiscal/ledger/verify.
type ChainVerificationResponse struct {
	Valid    bool        `json:"valid"`
	Entries  int         `json:"entries"`
	LastHash string      `json:"last_hash,omitempty"`
	Break    *ChainBreak `json:"break,omitempty"`
}

// AuditQuery filtros de GET /api/fiscal/audit (from/to en RFC3339 o YYYY-MM-DD).
type AuditQuery struct {
	Entity   string `query:"entity"`
	EntityID string `query:"entity_id"`
	Action   string `query:"action"`
	Outcome  string `query:"outcome"`
	From     string `query:"from"`
	To       string `query:"to"`
	PageRequest
}

// AuditEventResponse evento de auditoría.
type AuditEventResponse struct {
	ID        string         `json:"id"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Action    string         `json:"action"`
	Outcome   string         `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt string         `json:"created_at"`
}
