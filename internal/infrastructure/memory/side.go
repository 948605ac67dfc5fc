package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var (
	_ repository.AuditRepository = (*AuditRepo)(nil)
	_ fiscal.DocumentStore       = (*DocumentStore)(nil)
)

// AuditRepo eventos de auditoría (solo inserción).
type AuditRepo struct{ s *Store }

func (r *AuditRepo) Create(_ context.Context, ev *entity.AuditEvent) error {
	r.s.sideMu.Lock()
	defer r.s.sideMu.Unlock()
	if r.s.auditErr != nil {
		return r.s.auditErr
	}
	cp := *ev
	if ev.Payload != nil {
		cp.Payload = make(map[string]any, len(ev.Payload))
		for k, v := range ev.Payload {
			cp.Payload[k] = v
		}
	}
	r.s.audits = append(r.s.audits, cp)
	return nil
}

// List eventos más recientes primero.
func (r *AuditRepo) List(_ context.Context, companyID string, f repository.AuditFilter) ([]*entity.AuditEvent, error) {
	r.s.sideMu.Lock()
	var out []*entity.AuditEvent
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		ev := r.s.audits[i]
		if ev.CompanyID != companyID || !matchAudit(ev, f) {
			continue
		}
		out = append(out, &ev)
	}
	r.s.sideMu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func matchAudit(ev entity.AuditEvent, f repository.AuditFilter) bool {
	switch {
	case f.Entity != "" && ev.Entity != f.Entity:
		return false
	case f.EntityID != "" && ev.EntityID != f.EntityID:
		return false
	case f.Action != "" && ev.Action != f.Action:
		return false
	case f.Outcome != "" && ev.Outcome != f.Outcome:
		return false
	case f.From != nil && ev.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && ev.CreatedAt.After(*f.To):
		return false
	}
	return true
}

// DocumentStore PDFs generados por factura.
type DocumentStore struct{ s *Store }

func (d *DocumentStore) SaveDocument(_ context.Context, _, invoiceID string, pdf []byte, _ time.Time) error {
	d.s.sideMu.Lock()
	defer d.s.sideMu.Unlock()
	d.s.docs[invoiceID] = append([]byte(nil), pdf...)
	return nil
}

func (d *DocumentStore) GetDocument(_ context.Context, invoiceID string) ([]byte, error) {
	d.s.sideMu.Lock()
	defer d.s.sideMu.Unlock()
	pdf, ok := d.s.docs[invoiceID]
	if !ok {
		return nil, fmt.Errorf("%w: documento de %s", domain.ErrNotFound, invoiceID)
	}
	return append([]byte(nil), pdf...), nil
}
