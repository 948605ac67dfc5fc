package fiscal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// AuditRecord datos de un evento antes de aplicar la política de auditoría.
type AuditRecord struct {
	Actor    entity.Actor
	Entity   string
	EntityID string
	Action   string
	Outcome  string
	Reason   string
	Payload  map[string]any
}

// Recorder registra eventos de auditoría según la política de la empresa.
//
// Un fallo al auditar nunca llega al llamador: se envía al canal de fallos
// (logger dedicado) y se contabiliza.
type Recorder struct {
	policies repository.PolicyRepository
	audits   repository.AuditRepository
	failures zerolog.Logger
	now      Clock
	failed   atomic.Int64
}

// NewRecorder construye el recorder. failures recibe los errores de auditoría.
func NewRecorder(policies repository.PolicyRepository, audits repository.AuditRepository, failures zerolog.Logger, now Clock) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		policies: policies,
		audits:   audits,
		failures: failures.With().Str("channel", "audit_failure").Logger(),
		now:      now,
	}
}

// Record persiste el evento si la política lo admite:
// auditoría desactivada o sin política → no-op; BASIC → solo ERROR y BLOCKED; FULL → todo.
func (r *Recorder) Record(ctx context.Context, rec AuditRecord) {
	policy, err := r.policies.Get(ctx, rec.Actor.CompanyID)
	if err != nil {
		r.fail(err, rec, "leer política")
		return
	}
	if !shouldAudit(policy, rec.Outcome) {
		return
	}

	ev := &entity.AuditEvent{
		ID:        uuid.New().String(),
		CompanyID: rec.Actor.CompanyID,
		Entity:    rec.Entity,
		EntityID:  rec.EntityID,
		Action:    rec.Action,
		Outcome:   rec.Outcome,
		Reason:    rec.Reason,
		UserID:    rec.Actor.UserID,
		IP:        rec.Actor.IP,
		UserAgent: rec.Actor.UserAgent,
		Payload:   rec.Payload,
		CreatedAt: r.now().UTC(),
	}
	if err := r.audits.Create(ctx, ev); err != nil {
		r.fail(err, rec, "guardar evento")
	}
}

// Failures número de eventos que no se pudieron registrar.
func (r *Recorder) Failures() int64 { return r.failed.Load() }

func (r *Recorder) fail(err error, rec AuditRecord, stage string) {
	r.failed.Add(1)
	r.failures.Error().Err(err).
		Str("stage", stage).
		Str("company_id", rec.Actor.CompanyID).
		Str("entity", rec.Entity).
		Str("entity_id", rec.EntityID).
		Str("action", rec.Action).
		Str("outcome", rec.Outcome).
		Msg("auditoría no registrada")
}

func shouldAudit(policy *entity.FiscalPolicy, outcome string) bool {
	if policy == nil || !policy.AuditEnabled {
		return false
	}
	if policy.AuditLevel == entity.AuditLevelFull {
		return true
	}
	return outcome == entity.AuditOutcomeError || outcome == entity.AuditOutcomeBlocked
}
