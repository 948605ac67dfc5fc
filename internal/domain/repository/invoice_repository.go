package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

// InvoiceFilter filtros del listado de facturas.
type InvoiceFilter struct {
	Status string
	Limit  int
	Offset int
}

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
// Las lecturas devuelven (nil, nil) cuando no existe el registro.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update persiste cabecera completa: estado, número, totales, nota de IVA y hash.
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByNumber(ctx context.Context, companyID, number string) (*entity.Invoice, error)
	// GetRectificationOf devuelve la rectificativa de originalID, si existe.
	GetRectificationOf(ctx context.Context, originalID string) (*entity.Invoice, error)
	ListByCompany(ctx context.Context, companyID string, filter InvoiceFilter) ([]*entity.Invoice, error)

	// ReplaceLines sustituye todas las líneas de la factura (solo borradores).
	ReplaceLines(ctx context.Context, invoiceID string, lines []*entity.InvoiceLine) error
	GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error)

	// LastValidatedDate fecha de la última factura validada (o anulada) de la empresa; nil si no hay.
	LastValidatedDate(ctx context.Context, companyID string) (*time.Time, error)
}
