package repository

import (
	"context"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

// PolicyRepository política fiscal por empresa (una fila por empresa).
type PolicyRepository interface {
	Get(ctx context.Context, companyID string) (*entity.FiscalPolicy, error)
	Save(ctx context.Context, policy *entity.FiscalPolicy) error
}
