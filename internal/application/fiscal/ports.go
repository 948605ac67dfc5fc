package fiscal

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Invoices repository.InvoiceRepository
	Issuers  repository.IssuerRepository
	Ledger   repository.LedgerRepository
	Policies repository.PolicyRepository
}

// FiscalTxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil,
// Rollback en cualquier otro caso. Numeración, encadenado y cambios de estado
// de una operación fiscal se confirman juntos.
type FiscalTxRunner interface {
	RunFiscal(ctx context.Context, fn func(repos TxRepos) error) error
}

// SubmissionRequest datos necesarios para remitir un registro fiscal.
type SubmissionRequest struct {
	Mode     string // TEST | PRODUCTION
	URL      string
	Issuer   *entity.Issuer
	Invoice  *entity.Invoice
	Customer *entity.Customer
	Entry    *entity.LedgerEntry
}

// SubmissionResult resultado del envío: SENT o ERROR con detalle truncado.
type SubmissionResult struct {
	Status string
	Detail string
}

// Submitter canal de envío del registro a la administración.
// Un único intento síncrono con timeout acotado; nunca devuelve error, el fallo
// se expresa como Status ERROR.
type Submitter interface {
	Submit(ctx context.Context, req SubmissionRequest) SubmissionResult
}

// InvoiceDocument datos de la representación impresa de una factura.
type InvoiceDocument struct {
	Invoice  *entity.Invoice
	Lines    []*entity.InvoiceLine
	Issuer   *entity.Issuer
	Company  *entity.Company
	Customer *entity.Customer
	Original *entity.Invoice     // factura rectificada, solo en rectificativas
	Entry    *entity.LedgerEntry // nil si la validación no generó registro
	QRURL    string              // vacío si no hay registro fiscal
}

// DocumentRenderer genera el PDF de una factura.
type DocumentRenderer interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// DocumentStore guarda la última representación generada de cada factura.
type DocumentStore interface {
	SaveDocument(ctx context.Context, companyID, invoiceID string, pdf []byte, at time.Time) error
	GetDocument(ctx context.Context, invoiceID string) ([]byte, error)
}

// Clock fuente de tiempo inyectable.
type Clock func() time.Time
