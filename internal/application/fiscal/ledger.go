package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// MaxSubmissionDetail longitud máxima (en caracteres) del detalle de envío guardado.
const MaxSubmissionDetail = 2000

// Ledger registro fiscal encadenado por empresa.
type Ledger struct {
	submitter Submitter
	recorder  *Recorder
	now       Clock
	log       zerolog.Logger
}

// NewLedger construye el ledger. submitter puede ser nil si ninguna empresa envía.
func NewLedger(submitter Submitter, recorder *Recorder, now Clock, log zerolog.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{submitter: submitter, recorder: recorder, now: now, log: log}
}

// Append encadena un registro PENDING para la factura ya numerada.
// Debe ejecutarse en la transacción que bloqueó el emisor, con repo atado a ella.
func (l *Ledger) Append(ctx context.Context, repo repository.LedgerRepository, inv *entity.Invoice, issuer *entity.Issuer) (*entity.LedgerEntry, error) {
	prev, err := repo.Last(ctx, inv.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("leer último registro: %w", err)
	}

	registeredAt := verifactu.RegistrationTime(l.now())
	previousHash := ""
	if prev != nil {
		previousHash = prev.Hash
		// el orden por fecha de registro debe coincidir con el orden de la cadena
		if !registeredAt.After(prev.RegisteredAt) {
			registeredAt = prev.RegisteredAt.Add(time.Microsecond)
		}
	}

	entry := &entity.LedgerEntry{
		ID:               uuid.New().String(),
		CompanyID:        inv.CompanyID,
		InvoiceID:        inv.ID,
		InvoiceNumber:    inv.Number,
		InvoiceDate:      inv.Date,
		InvoiceTotal:     inv.Total,
		IssuerTaxID:      verifactu.NormalizeTaxID(issuer.TaxID),
		PreviousHash:     previousHash,
		RegisteredAt:     registeredAt,
		SubmissionStatus: entity.SubmissionPending,
	}
	hash, err := verifactu.Hash(RecordOf(entry))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	entry.Hash = hash

	if err := repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("guardar registro fiscal: %w", err)
	}
	return entry, nil
}

// Submit envía un registro ya confirmado y guarda el resultado (PENDING → SENT | ERROR).
// Un fallo de envío no se propaga: queda en el registro y en la auditoría.
func (l *Ledger) Submit(ctx context.Context, repo repository.LedgerRepository, actor entity.Actor, policy *entity.FiscalPolicy, req SubmissionRequest) SubmissionResult {
	entry := req.Entry
	var res SubmissionResult
	if l.submitter == nil {
		res = SubmissionResult{Status: entity.SubmissionError, Detail: "canal de envío no configurado"}
	} else {
		req.Mode = policy.ComplianceMode
		req.URL = policy.ComplianceURL
		res = l.submitter.Submit(ctx, req)
	}
	if res.Status != entity.SubmissionSent {
		res.Status = entity.SubmissionError
	}
	res.Detail = Truncate(res.Detail, MaxSubmissionDetail)

	at := l.now().UTC()
	if err := repo.UpdateSubmission(ctx, entry.ID, res.Status, res.Detail, at); err != nil {
		l.log.Error().Err(err).
			Str("company_id", entry.CompanyID).
			Str("ledger_id", entry.ID).
			Msg("no se pudo guardar el estado de envío")
	} else {
		entry.SubmissionStatus = res.Status
		entry.SubmissionError = res.Detail
		entry.SubmittedAt = &at
	}

	outcome, reason := entity.AuditOutcomeOK, ""
	if res.Status == entity.SubmissionError {
		outcome = entity.AuditOutcomeError
		reason = fmt.Sprintf("%s: %s", domain.ErrExternalService, res.Detail)
		l.log.Warn().
			Str("company_id", entry.CompanyID).
			Str("number", entry.InvoiceNumber).
			Str("detail", res.Detail).
			Msg("envío Veri*Factu fallido")
	}
	l.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityLedger,
		EntityID: entry.ID,
		Action:   entity.AuditActionSubmit,
		Outcome:  outcome,
		Reason:   reason,
		Payload: map[string]any{
			"invoice_id": entry.InvoiceID,
			"number":     entry.InvoiceNumber,
			"mode":       policy.ComplianceMode,
			"status":     res.Status,
		},
	})
	return res
}

// RecordOf datos de la huella tal como están persistidos en el registro.
func RecordOf(e *entity.LedgerEntry) verifactu.Record {
	return verifactu.Record{
		IssuerTaxID:   e.IssuerTaxID,
		InvoiceNumber: e.InvoiceNumber,
		InvoiceDate:   e.InvoiceDate,
		Total:         e.InvoiceTotal,
		PreviousHash:  e.PreviousHash,
		RegisteredAt:  e.RegisteredAt,
	}
}

// Truncate recorta s a limit caracteres (no bytes).
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
