package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo eventos de auditoría. Siempre con el pool: un evento de una
// operación fallida debe sobrevivir al rollback.
type AuditRepo struct {
	q Querier
}

func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Create inserta el evento; payload se guarda como JSONB.
func (r *AuditRepo) Create(ctx context.Context, ev *entity.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, company_id, entity, entity_id, action, outcome, reason,
		                          user_id, ip, user_agent, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	var payload any
	if len(ev.Payload) > 0 {
		payload = ev.Payload
	}
	_, err := r.q.Exec(ctx, query,
		ev.ID, ev.CompanyID, ev.Entity, ev.EntityID, ev.Action, ev.Outcome, nullIfEmpty(ev.Reason),
		nullIfEmpty(ev.UserID), nullIfEmpty(ev.IP), nullIfEmpty(ev.UserAgent), payload, ev.CreatedAt,
	)
	if err != nil {
		return writeErr("insert audit event", err)
	}
	return nil
}

// List eventos de la empresa, más recientes primero.
func (r *AuditRepo) List(ctx context.Context, companyID string, f repository.AuditFilter) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, company_id, entity, entity_id, action, outcome, COALESCE(reason, ''),
		       COALESCE(user_id, ''), COALESCE(ip, ''), COALESCE(user_agent, ''), COALESCE(payload, '{}'::jsonb), created_at
		FROM audit_events WHERE company_id = $1`
	args := []any{companyID}
	pos := 2
	for _, c := range []struct {
		column string
		value  string
	}{
		{"entity", f.Entity},
		{"entity_id", f.EntityID},
		{"action", f.Action},
		{"outcome", f.Outcome},
	} {
		if c.value == "" {
			continue
		}
		query += fmt.Sprintf(" AND %s = $%d", c.column, pos)
		args = append(args, c.value)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditEvent
	for rows.Next() {
		var ev entity.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.CompanyID, &ev.Entity, &ev.EntityID, &ev.Action, &ev.Outcome, &ev.Reason,
			&ev.UserID, &ev.IP, &ev.UserAgent, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.CreatedAt = ev.CreatedAt.UTC()
		list = append(list, &ev)
	}
	return list, rows.Err()
}
