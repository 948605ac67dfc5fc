package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// DocumentUseCase genera la representación gráfica (PDF) de una factura validada.
// El render tras validar es best-effort: un fallo se audita y no afecta a la factura.
type DocumentUseCase struct {
	invoices  repository.InvoiceRepository
	companies repository.CompanyRepository
	customers repository.CustomerRepository
	issuers   repository.IssuerRepository
	ledger    repository.LedgerRepository
	policies  repository.PolicyRepository
	renderer  DocumentRenderer
	store     DocumentStore
	recorder  *Recorder
	qr        QRBases
	now       Clock
	log       zerolog.Logger
}

// NewDocumentUseCase construye el caso de uso inyectando todas sus dependencias.
func NewDocumentUseCase(
	invoices repository.InvoiceRepository,
	companies repository.CompanyRepository,
	customers repository.CustomerRepository,
	issuers repository.IssuerRepository,
	ledger repository.LedgerRepository,
	policies repository.PolicyRepository,
	renderer DocumentRenderer,
	store DocumentStore,
	recorder *Recorder,
	qr QRBases,
	now Clock,
	log zerolog.Logger,
) *DocumentUseCase {
	if now == nil {
		now = time.Now
	}
	return &DocumentUseCase{
		invoices:  invoices,
		companies: companies,
		customers: customers,
		issuers:   issuers,
		ledger:    ledger,
		policies:  policies,
		renderer:  renderer,
		store:     store,
		recorder:  recorder,
		qr:        qr,
		now:       now,
		log:       log,
	}
}

// Render genera y guarda el PDF. Nunca devuelve error: el fallo queda auditado (PDF/ERROR).
func (uc *DocumentUseCase) Render(ctx context.Context, actor entity.Actor, invoiceID string) {
	pdf, inv, err := uc.build(ctx, actor, invoiceID)
	if err == nil {
		err = uc.store.SaveDocument(ctx, inv.CompanyID, inv.ID, pdf, uc.now().UTC())
	}
	rec := AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: invoiceID,
		Action:   entity.AuditActionDocument,
		Outcome:  entity.AuditOutcomeOK,
	}
	if err != nil {
		uc.log.Warn().Err(err).
			Str("company_id", actor.CompanyID).
			Str("invoice_id", invoiceID).
			Msg("no se pudo generar el PDF")
		rec.Outcome = entity.AuditOutcomeError
		rec.Reason = err.Error()
	} else {
		rec.Payload = map[string]any{"number": inv.Number, "bytes": len(pdf)}
	}
	uc.recorder.Record(ctx, rec)
}

// Download devuelve el PDF guardado o lo genera si no existe.
//
// Retorna:
//   - domain.ErrNotFound     si la factura no existe o es de otra empresa.
//   - domain.ErrInvalidInput si la factura sigue en DRAFT.
func (uc *DocumentUseCase) Download(ctx context.Context, actor entity.Actor, invoiceID string) (pdf []byte, filename string, err error) {
	inv, err := uc.invoice(ctx, actor, invoiceID)
	if err != nil {
		return nil, "", err
	}
	filename = fmt.Sprintf("factura_%s.pdf", sanitizeFilename(inv.Number))

	if stored, err := uc.store.GetDocument(ctx, inv.ID); err == nil && len(stored) > 0 {
		return stored, filename, nil
	}
	pdf, _, err = uc.build(ctx, actor, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if err := uc.store.SaveDocument(ctx, inv.CompanyID, inv.ID, pdf, uc.now().UTC()); err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("no se pudo guardar el PDF")
	}
	return pdf, filename, nil
}

func (uc *DocumentUseCase) invoice(ctx context.Context, actor entity.Actor, invoiceID string) (*entity.Invoice, error) {
	inv, err := uc.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil || inv.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	if inv.IsDraft() {
		return nil, fmt.Errorf("%w: la factura está en borrador, valídela antes de generar el PDF", domain.ErrInvalidInput)
	}
	return inv, nil
}

func (uc *DocumentUseCase) build(ctx context.Context, actor entity.Actor, invoiceID string) ([]byte, *entity.Invoice, error) {
	inv, err := uc.invoice(ctx, actor, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	doc := InvoiceDocument{Invoice: inv}

	if doc.Lines, err = uc.invoices.GetLines(ctx, inv.ID); err != nil {
		return nil, nil, fmt.Errorf("pdf: obtener líneas: %w", err)
	}
	if doc.Issuer, err = uc.issuers.Get(ctx, inv.CompanyID); err != nil || doc.Issuer == nil {
		return nil, nil, fmt.Errorf("pdf: obtener emisor: %w", errOr(err, domain.ErrConfiguration))
	}
	if doc.Company, err = uc.companies.GetByID(ctx, inv.CompanyID); err != nil || doc.Company == nil {
		return nil, nil, fmt.Errorf("pdf: obtener empresa: %w", errOr(err, domain.ErrNotFound))
	}
	if doc.Customer, err = uc.customers.GetByID(ctx, inv.CustomerID); err != nil || doc.Customer == nil {
		return nil, nil, fmt.Errorf("pdf: obtener cliente: %w", errOr(err, domain.ErrNotFound))
	}
	if inv.IsRectification() {
		if doc.Original, err = uc.invoices.GetByID(ctx, inv.OriginalInvoiceID); err != nil {
			return nil, nil, fmt.Errorf("pdf: obtener factura original: %w", err)
		}
	}
	if doc.Entry, err = uc.ledger.GetByInvoiceID(ctx, inv.ID); err != nil {
		return nil, nil, fmt.Errorf("pdf: obtener registro fiscal: %w", err)
	}
	if doc.Entry != nil {
		if p, err := uc.policies.Get(ctx, inv.CompanyID); err == nil && p != nil {
			if base := uc.qr.For(p.ComplianceMode); base != "" {
				doc.QRURL = verifactu.QRURL(base, doc.Entry.IssuerTaxID, doc.Entry.InvoiceNumber, doc.Entry.InvoiceDate, doc.Entry.InvoiceTotal)
			}
		}
	}

	pdf, err := uc.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdf, inv, nil
}

func errOr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '"':
			return '_'
		}
		return r
	}, s)
}
