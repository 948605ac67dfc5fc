package repository

import (
	"context"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

// IssuerRepository datos del emisor y estado de su secuencia de numeración.
type IssuerRepository interface {
	Get(ctx context.Context, companyID string) (*entity.Issuer, error)
	// GetForUpdate lee el emisor bloqueando la fila hasta el fin de la transacción.
	// Serializa numeración y encadenado de una misma empresa.
	GetForUpdate(ctx context.Context, companyID string) (*entity.Issuer, error)
	// Save inserta o actualiza (upsert por company_id).
	Save(ctx context.Context, issuer *entity.Issuer) error
}
