package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// RectificationLinePrefix prefijo de la descripción de las líneas rectificativas.
const RectificationLinePrefix = "(Rectific.) "

// Options parámetros globales de los casos de uso fiscales.
type Options struct {
	Location            *time.Location // zona fiscal para "hoy"
	RectificationSuffix string
	Now                 Clock
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.RectificationSuffix == "" {
		o.RectificationSuffix = "R"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// InvoiceUseCase ciclo de vida fiscal de las facturas:
// DRAFT → VALIDATED → VOIDED (con rectificativa VALIDATED).
type InvoiceUseCase struct {
	tx        FiscalTxRunner
	invoices  repository.InvoiceRepository
	customers repository.CustomerRepository
	policies  repository.PolicyRepository
	issuers   repository.IssuerRepository
	ledgerDB  repository.LedgerRepository
	allocator *Allocator
	ledger    *Ledger
	guard     *Guard
	recorder  *Recorder
	documents *DocumentUseCase // opcional: render best-effort tras validar
	opts      Options
	log       zerolog.Logger
}

// NewInvoiceUseCase construye el caso de uso. Los repositorios sueltos son los
// del pool; las escrituras fiscales pasan siempre por tx.
func NewInvoiceUseCase(
	tx FiscalTxRunner,
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	policies repository.PolicyRepository,
	issuers repository.IssuerRepository,
	ledgerDB repository.LedgerRepository,
	allocator *Allocator,
	ledger *Ledger,
	guard *Guard,
	recorder *Recorder,
	documents *DocumentUseCase,
	opts Options,
	log zerolog.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		tx:        tx,
		invoices:  invoices,
		customers: customers,
		policies:  policies,
		issuers:   issuers,
		ledgerDB:  ledgerDB,
		allocator: allocator,
		ledger:    ledger,
		guard:     guard,
		recorder:  recorder,
		documents: documents,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

func (uc *InvoiceUseCase) today() time.Time {
	return CivilDate(uc.opts.Now(), uc.opts.Location)
}

// Validate numera la factura, la encadena en el registro fiscal (si el envío está
// activo) y la deja VALIDATED. Numeración, registro y estado se confirman juntos;
// el envío y el PDF se intentan después y nunca revierten la validación.
func (uc *InvoiceUseCase) Validate(ctx context.Context, actor entity.Actor, invoiceID string, in dto.ValidateInvoiceRequest) (*dto.ValidateInvoiceResponse, error) {
	inv, err := uc.load(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	fail := func(err error) error {
		uc.auditFailure(ctx, actor, inv, entity.AuditActionValidate, err)
		return err
	}

	if !inv.IsDraft() {
		return nil, fail(fmt.Errorf("%w: la factura %s ya está en estado %s", domain.ErrBlocked, inv.Number, inv.Status))
	}
	date, err := ParseDate(in.Date, uc.today())
	if err != nil {
		return nil, err
	}
	policy, err := uc.requirePolicy(ctx, actor.CompanyID)
	if err != nil {
		return nil, fail(err)
	}

	var (
		issuer *entity.Issuer
		entry  *entity.LedgerEntry
	)
	err = uc.tx.RunFiscal(ctx, func(r TxRepos) error {
		issuer, err = uc.lockIssuer(ctx, r, actor.CompanyID)
		if err != nil {
			return err
		}
		cur, err := r.Invoices.GetByID(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("releer factura: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, inv.ID)
		}
		if !cur.IsDraft() {
			return fmt.Errorf("%w: la factura %s ya está en estado %s", domain.ErrBlocked, cur.Number, cur.Status)
		}
		inv = cur

		if err := uc.checkDate(ctx, r, policy, actor.CompanyID, date); err != nil {
			return err
		}
		number, err := uc.allocator.Allocate(ctx, r.Issuers, issuer, date)
		if err != nil {
			return err
		}
		lines, err := r.Invoices.GetLines(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("leer líneas: %w", err)
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: la factura no tiene líneas", domain.ErrValidation)
		}
		if note := strings.TrimSpace(in.TaxNote); note != "" {
			inv.TaxNote = note
		}
		entry, err = uc.finalize(ctx, r, issuer, policy, inv, lines, date, number)
		return err
	})
	if err != nil {
		return nil, fail(err)
	}

	uc.log.Info().
		Str("company_id", inv.CompanyID).
		Str("invoice_id", inv.ID).
		Str("number", inv.Number).
		Bool("ledger", entry != nil).
		Msg("factura validada")
	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: inv.ID,
		Action:   entity.AuditActionValidate,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"number": inv.Number, "date": FormatDate(inv.Date), "total": inv.Total.StringFixed(2)},
	})

	out := &dto.ValidateInvoiceResponse{
		OK:         true,
		InvoiceID:  inv.ID,
		Number:     inv.Number,
		Status:     inv.Status,
		LedgerHash: inv.LedgerHash,
	}
	if entry != nil {
		out.Submission = uc.submit(ctx, actor, policy, issuer, inv, entry)
	}
	uc.renderBestEffort(ctx, actor, inv.ID)
	return out, nil
}

// PreValidate indica si el borrador necesita nota de IVA antes de validarlo
// (IVA 0 o reducido) y propone el texto configurado en el emisor. No modifica nada.
func (uc *InvoiceUseCase) PreValidate(ctx context.Context, actor entity.Actor, invoiceID string) (*dto.PreValidateResponse, error) {
	inv, err := uc.load(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	issuer, err := uc.issuers.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	if issuer == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene emisor configurado", domain.ErrConfiguration)
	}
	note, ok := issuer.SuggestedTaxNote(inv.TaxRate)
	return &dto.PreValidateResponse{OK: true, NeedsTaxNote: ok, SuggestedNote: note}, nil
}

// Void anula una factura validada y emite su rectificativa (número original +
// sufijo, líneas negadas, fecha de hoy). Todo o nada.
func (uc *InvoiceUseCase) Void(ctx context.Context, actor entity.Actor, invoiceID string) (*dto.VoidInvoiceResponse, error) {
	inv, err := uc.load(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	fail := func(err error) error {
		uc.auditFailure(ctx, actor, inv, entity.AuditActionVoid, err)
		return err
	}
	policy, err := uc.requirePolicy(ctx, actor.CompanyID)
	if err != nil {
		return nil, fail(err)
	}

	today := uc.today()
	var (
		issuer *entity.Issuer
		rect   *entity.Invoice
		entry  *entity.LedgerEntry
	)
	err = uc.tx.RunFiscal(ctx, func(r TxRepos) error {
		issuer, err = uc.lockIssuer(ctx, r, actor.CompanyID)
		if err != nil {
			return err
		}
		orig, err := r.Invoices.GetByID(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("releer factura: %w", err)
		}
		if orig == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, inv.ID)
		}
		inv = orig
		switch orig.Status {
		case entity.InvoiceStatusValidated:
		case entity.InvoiceStatusVoided:
			return fmt.Errorf("%w: la factura %s ya está anulada", domain.ErrBlocked, orig.Number)
		default:
			return fmt.Errorf("%w: solo se pueden anular facturas validadas", domain.ErrValidation)
		}
		if orig.IsRectification() {
			return fmt.Errorf("%w: la factura %s ya es una rectificativa", domain.ErrValidation, orig.Number)
		}

		number := orig.Number + uc.opts.RectificationSuffix
		existing, err := r.Invoices.GetRectificationOf(ctx, orig.ID)
		if err != nil {
			return fmt.Errorf("buscar rectificativa: %w", err)
		}
		if existing == nil {
			if existing, err = r.Invoices.GetByNumber(ctx, orig.CompanyID, number); err != nil {
				return fmt.Errorf("buscar número %s: %w", number, err)
			}
		}
		if existing != nil {
			return fmt.Errorf("%w: ya existe la rectificativa %s", domain.ErrBlocked, existing.Number)
		}

		lines, err := r.Invoices.GetLines(ctx, orig.ID)
		if err != nil {
			return fmt.Errorf("leer líneas: %w", err)
		}

		now := uc.opts.Now().UTC()
		orig.Status = entity.InvoiceStatusVoided
		orig.UpdatedAt = now
		if err := r.Invoices.Update(ctx, orig); err != nil {
			return fmt.Errorf("anular factura: %w", err)
		}

		rect = &entity.Invoice{
			ID:                uuid.New().String(),
			CompanyID:         orig.CompanyID,
			CustomerID:        orig.CustomerID,
			Date:              today,
			TaxRate:           orig.TaxRate,
			Status:            entity.InvoiceStatusDraft,
			TaxNote:           RectificationNote(issuer, orig),
			OriginalInvoiceID: orig.ID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := r.Invoices.Create(ctx, rect); err != nil {
			return fmt.Errorf("crear rectificativa: %w", err)
		}
		entry, err = uc.finalize(ctx, r, issuer, policy, rect, NegateLines(rect.ID, lines), today, number)
		return err
	})
	if err != nil {
		return nil, fail(err)
	}

	uc.log.Info().
		Str("company_id", inv.CompanyID).
		Str("invoice_id", inv.ID).
		Str("number", inv.Number).
		Str("rectification", rect.Number).
		Msg("factura anulada")
	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: inv.ID,
		Action:   entity.AuditActionVoid,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"number": inv.Number, "rectification_id": rect.ID, "rectification_number": rect.Number},
	})
	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: rect.ID,
		Action:   entity.AuditActionValidate,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"number": rect.Number, "original_id": inv.ID, "total": rect.Total.StringFixed(2)},
	})

	out := &dto.VoidInvoiceResponse{
		OK:              true,
		OriginalID:      inv.ID,
		RectificationID: rect.ID,
		Number:          rect.Number,
		LedgerHash:      rect.LedgerHash,
	}
	if entry != nil {
		out.Submission = uc.submit(ctx, actor, policy, issuer, rect, entry)
	}
	uc.renderBestEffort(ctx, actor, rect.ID)
	return out, nil
}

// finalize recalcula totales, encadena el registro fiscal si procede y persiste
// la factura como VALIDATED. Corre dentro de la transacción de la operación.
func (uc *InvoiceUseCase) finalize(
	ctx context.Context,
	r TxRepos,
	issuer *entity.Issuer,
	policy *entity.FiscalPolicy,
	inv *entity.Invoice,
	lines []*entity.InvoiceLine,
	date time.Time,
	number string,
) (*entity.LedgerEntry, error) {
	now := uc.opts.Now().UTC()
	inv.Number = number
	inv.Date = date
	inv.ApplyTotals(lines)
	if err := r.Invoices.ReplaceLines(ctx, inv.ID, lines); err != nil {
		return nil, fmt.Errorf("guardar líneas: %w", err)
	}

	var entry *entity.LedgerEntry
	if policy.ComplianceActive() {
		var err error
		entry, err = uc.ledger.Append(ctx, r.Ledger, inv, issuer)
		if err != nil {
			return nil, err
		}
		inv.LedgerHash = entry.Hash
	}

	inv.Status = entity.InvoiceStatusValidated
	inv.ValidatedAt = &now
	inv.UpdatedAt = now
	if err := r.Invoices.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("guardar factura validada: %w", err)
	}
	return entry, nil
}

// checkDate política de fechas pasadas y orden cronológico de la empresa.
func (uc *InvoiceUseCase) checkDate(ctx context.Context, r TxRepos, policy *entity.FiscalPolicy, companyID string, date time.Time) error {
	if policy.BlockPastDates && date.Before(uc.today()) {
		return fmt.Errorf("%w: no se permiten fechas pasadas según la configuración fiscal", domain.ErrValidation)
	}
	last, err := r.Invoices.LastValidatedDate(ctx, companyID)
	if err != nil {
		return fmt.Errorf("leer última fecha validada: %w", err)
	}
	if last != nil && date.Before(*last) {
		return fmt.Errorf("%w: la fecha %s es anterior a la última factura validada (%s)",
			domain.ErrValidation, FormatDate(date), FormatDate(*last))
	}
	return nil
}

func (uc *InvoiceUseCase) submit(ctx context.Context, actor entity.Actor, policy *entity.FiscalPolicy, issuer *entity.Issuer, inv *entity.Invoice, entry *entity.LedgerEntry) *dto.SubmissionResponse {
	customer, err := uc.customers.GetByID(ctx, inv.CustomerID)
	if err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("cliente no disponible para el envío")
	}
	res := uc.ledger.Submit(ctx, uc.ledgerDB, actor, policy, SubmissionRequest{
		Issuer:   issuer,
		Invoice:  inv,
		Customer: customer,
		Entry:    entry,
	})
	return &dto.SubmissionResponse{Status: res.Status, Detail: res.Detail}
}

func (uc *InvoiceUseCase) renderBestEffort(ctx context.Context, actor entity.Actor, invoiceID string) {
	if uc.documents == nil {
		return
	}
	uc.documents.Render(ctx, actor, invoiceID)
}

// load factura de la empresa del actor; otra empresa se trata como inexistente.
func (uc *InvoiceUseCase) load(ctx context.Context, actor entity.Actor, invoiceID string) (*entity.Invoice, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: id de factura vacío", domain.ErrInvalidInput)
	}
	inv, err := uc.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil || inv.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	return inv, nil
}

// requirePolicy política de la empresa; si el envío está activo exige endpoint.
func (uc *InvoiceUseCase) requirePolicy(ctx context.Context, companyID string) (*entity.FiscalPolicy, error) {
	policy, err := uc.policies.Get(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("obtener política fiscal: %w", err)
	}
	if policy == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene política fiscal", domain.ErrConfiguration)
	}
	if policy.ComplianceActive() && strings.TrimSpace(policy.ComplianceURL) == "" {
		return nil, fmt.Errorf("%w: modo %s sin URL de envío", domain.ErrConfiguration, policy.ComplianceMode)
	}
	return policy, nil
}

func (uc *InvoiceUseCase) lockIssuer(ctx context.Context, r TxRepos, companyID string) (*entity.Issuer, error) {
	issuer, err := r.Issuers.GetForUpdate(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("bloquear emisor: %w", err)
	}
	if issuer == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene emisor configurado", domain.ErrConfiguration)
	}
	if strings.TrimSpace(issuer.TaxID) == "" {
		return nil, fmt.Errorf("%w: el emisor no tiene NIF", domain.ErrConfiguration)
	}
	return issuer, nil
}

// auditFailure audita una operación abortada. Los bloqueos ya auditados por el
// guard no llegan aquí.
func (uc *InvoiceUseCase) auditFailure(ctx context.Context, actor entity.Actor, inv *entity.Invoice, action string, err error) {
	outcome := entity.AuditOutcomeError
	if errors.Is(err, domain.ErrBlocked) {
		outcome = entity.AuditOutcomeBlocked
	}
	uc.log.Warn().Err(err).
		Str("company_id", actor.CompanyID).
		Str("invoice_id", inv.ID).
		Str("action", action).
		Msg("operación fiscal rechazada")
	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: inv.ID,
		Action:   action,
		Outcome:  outcome,
		Reason:   err.Error(),
		Payload:  map[string]any{"status": inv.Status, "number": inv.Number},
	})
}

// RectificationNote texto legal de la rectificativa de orig.
func RectificationNote(issuer *entity.Issuer, orig *entity.Invoice) string {
	base := strings.TrimSpace(issuer.RectificationText)
	if base == "" {
		base = entity.DefaultRectificationText
	}
	return fmt.Sprintf("%s Esta rectificación afecta a la factura original Nº %s de fecha %s, dejando sin efecto sus importes.",
		base, orig.Number, orig.Date.Format("02/01/2006"))
}

// NegateLines copia las líneas con cantidad negada y el mismo precio unitario.
func NegateLines(invoiceID string, lines []*entity.InvoiceLine) []*entity.InvoiceLine {
	out := make([]*entity.InvoiceLine, 0, len(lines))
	for i, l := range lines {
		out = append(out, &entity.InvoiceLine{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			Position:    i + 1,
			Description: RectificationLinePrefix + l.Description,
			Quantity:    l.Quantity.Neg(),
			UnitPrice:   l.UnitPrice,
		})
	}
	return out
}
