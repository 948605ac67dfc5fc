package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

// AuditFilter filtros del listado de auditoría. Los campos vacíos no filtran.
type AuditFilter struct {
	Entity   string
	EntityID string
	Action   string
	Outcome  string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// AuditRepository eventos de auditoría (solo inserción y consulta).
type AuditRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	List(ctx context.Context, companyID string, filter AuditFilter) ([]*entity.AuditEvent, error)
}
