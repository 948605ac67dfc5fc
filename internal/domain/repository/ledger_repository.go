package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

// LedgerFilter filtros del listado de registros fiscales.
type LedgerFilter struct {
	SubmissionStatus string
	Limit            int
	Offset           int
}

// LedgerRepository registro fiscal encadenado. No existe operación de borrado
// ni de modificación salvo el estado de envío.
type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	// Last último registro de la empresa por fecha de registro descendente.
	Last(ctx context.Context, companyID string) (*entity.LedgerEntry, error)
	GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.LedgerEntry, error)
	// UpdateSubmission mueve el estado PENDING → SENT | ERROR. Falla con
	// domain.ErrInvalidInput si el registro ya no está PENDING.
	UpdateSubmission(ctx context.Context, id, status, detail string, at time.Time) error
	// ListByCompany registros en orden de registro ascendente.
	ListByCompany(ctx context.Context, companyID string, filter LedgerFilter) ([]*entity.LedgerEntry, error)
}
