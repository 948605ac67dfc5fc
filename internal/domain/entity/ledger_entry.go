package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de envío de un registro fiscal. Solo se transita PENDING → SENT | ERROR, una vez.
const (
	SubmissionPending = "PENDING"
	SubmissionSent    = "SENT"
	SubmissionError   = "ERROR"
)

// LedgerEntry registro fiscal encadenado (append-only) de una factura validada.
//
// Hash = SHA-256 del JSON canónico de {emisor.nif, numero, fecha, total,
// hash anterior, fecha de registro}. IssuerTaxID y RegisteredAt se guardan tal
// como entraron en el hash para que cualquiera pueda recalcularlo.
type LedgerEntry struct {
	ID               string
	CompanyID        string
	InvoiceID        string
	InvoiceNumber    string
	InvoiceDate      time.Time
	InvoiceTotal     decimal.Decimal
	IssuerTaxID      string
	Hash             string
	PreviousHash     string // vacío solo en el primer registro de la empresa
	RegisteredAt     time.Time
	SubmissionStatus string
	SubmissionError  string
	SubmittedAt      *time.Time
}
