package fiscal

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// Motivos de denegación del guard.
const (
	DenyLedgerBound    = "LEDGER"    // la factura tiene registro fiscal: bloqueo absoluto
	DenyImmutable      = "IMMUTABLE" // política: facturas validadas inmutables
	DenyDeleteDisabled = "DELETE"    // política: prohibido borrar validadas
)

// Denial decisión negativa del guard.
type Denial struct {
	Kind   string
	Reason string
}

// Error expone la denegación como domain.ErrBlocked.
func (d *Denial) Error() string { return fmt.Sprintf("%s: %s", domain.ErrBlocked, d.Reason) }

// Unwrap permite errors.Is(err, domain.ErrBlocked).
func (d *Denial) Unwrap() error { return domain.ErrBlocked }

// Guard precondición de toda operación que modifica o borra una factura.
type Guard struct {
	recorder *Recorder
}

// NewGuard construye el guard.
func NewGuard(recorder *Recorder) *Guard {
	return &Guard{recorder: recorder}
}

// Evaluate decide sin efectos. entry es el registro fiscal de la factura (nil si no tiene).
// El registro fiscal bloquea siempre, con independencia de la política.
func (g *Guard) Evaluate(inv *entity.Invoice, entry *entity.LedgerEntry, policy *entity.FiscalPolicy, action string) *Denial {
	if entry != nil || inv.LedgerHash != "" {
		return &Denial{Kind: DenyLedgerBound, Reason: fmt.Sprintf("la factura %s tiene registro fiscal y no admite %s", inv.Number, action)}
	}
	if policy == nil || inv.IsDraft() {
		return nil
	}
	if policy.ImmutableValidated {
		return &Denial{Kind: DenyImmutable, Reason: fmt.Sprintf("factura %s en estado %s: las facturas validadas son inmutables", inv.Number, inv.Status)}
	}
	if action == entity.AuditActionDelete && policy.ForbidValidatedDeletion {
		return &Denial{Kind: DenyDeleteDisabled, Reason: fmt.Sprintf("factura %s en estado %s: no se permite borrar facturas validadas", inv.Number, inv.Status)}
	}
	return nil
}

// Check busca el registro fiscal en ledger (el de la transacción en curso),
// evalúa y audita como BLOCKED cualquier denegación. Devuelve *Denial o nil.
func (g *Guard) Check(ctx context.Context, ledger repository.LedgerRepository, actor entity.Actor, inv *entity.Invoice, policy *entity.FiscalPolicy, action string) error {
	entry, err := ledger.GetByInvoiceID(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("guard: buscar registro fiscal: %w", err)
	}
	d := g.Evaluate(inv, entry, policy, action)
	if d == nil {
		return nil
	}
	g.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: inv.ID,
		Action:   action,
		Outcome:  entity.AuditOutcomeBlocked,
		Reason:   d.Reason,
		Payload:  map[string]any{"status": inv.Status, "number": inv.Number, "rule": d.Kind},
	})
	return d
}
