package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// QRBases URL base de cotejo por entorno de envío.
type QRBases struct {
	Test       string
	Production string
}

// For URL base del modo indicado; vacío en OFF.
func (q QRBases) For(mode string) string {
	switch mode {
	case entity.ComplianceModeTest:
		return q.Test
	case entity.ComplianceModeProduction:
		return q.Production
	}
	return ""
}

// verifyPageSize tamaño de página al recorrer la cadena completa.
const verifyPageSize = 500

// LedgerUseCase consulta y verificación del registro fiscal y de la auditoría.
type LedgerUseCase struct {
	ledger   repository.LedgerRepository
	audits   repository.AuditRepository
	policies repository.PolicyRepository
	qr       QRBases
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(ledger repository.LedgerRepository, audits repository.AuditRepository, policies repository.PolicyRepository, qr QRBases) *LedgerUseCase {
	return &LedgerUseCase{ledger: ledger, audits: audits, policies: policies, qr: qr}
}

// List registros de la empresa en orden de registro.
func (uc *LedgerUseCase) List(ctx context.Context, actor entity.Actor, status string, page dto.PageRequest) ([]dto.LedgerEntryResponse, error) {
	page.DefaultPage()
	entries, err := uc.ledger.ListByCompany(ctx, actor.CompanyID, repository.LedgerFilter{
		SubmissionStatus: strings.ToUpper(strings.TrimSpace(status)),
		Limit:            page.Limit,
		Offset:           page.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listar registros: %w", err)
	}
	qrBase := ""
	if p, err := uc.policies.Get(ctx, actor.CompanyID); err == nil && p != nil {
		qrBase = uc.qr.For(p.ComplianceMode)
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToLedgerEntryResponse(e, qrBase))
	}
	return out, nil
}

// Verify recorre la cadena de la empresa en orden de registro y recalcula cada
// huella con los datos persistidos (incluida su marca de registro). Informa del
// primer eslabón roto.
func (uc *LedgerUseCase) Verify(ctx context.Context, actor entity.Actor) (*dto.ChainVerificationResponse, error) {
	out := &dto.ChainVerificationResponse{Valid: true}
	prevHash := ""
	var prevAt time.Time
	for offset := 0; ; offset += verifyPageSize {
		page, err := uc.ledger.ListByCompany(ctx, actor.CompanyID, repository.LedgerFilter{Limit: verifyPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("leer registros: %w", err)
		}
		for _, e := range page {
			pos := out.Entries
			out.Entries++
			if reason := checkLink(e, prevHash, prevAt); reason != "" {
				out.Valid = false
				out.Break = &dto.ChainBreak{EntryID: e.ID, InvoiceNumber: e.InvoiceNumber, Position: pos, Reason: reason}
				return out, nil
			}
			prevHash, prevAt = e.Hash, e.RegisteredAt
			out.LastHash = e.Hash
		}
		if len(page) < verifyPageSize {
			return out, nil
		}
	}
}

func checkLink(e *entity.LedgerEntry, prevHash string, prevAt time.Time) string {
	if e.PreviousHash != prevHash {
		return fmt.Sprintf("hash_anterior %q no coincide con el registro previo %q", e.PreviousHash, prevHash)
	}
	if !prevAt.IsZero() && !e.RegisteredAt.After(prevAt) {
		return "fecha de registro no posterior a la del registro previo"
	}
	ok, err := verifactu.Verify(RecordOf(e), e.Hash)
	if err != nil {
		return err.Error()
	}
	if !ok {
		return "la huella recalculada no coincide con la guardada"
	}
	return ""
}

// Audit eventos de auditoría de la empresa con filtros.
func (uc *LedgerUseCase) Audit(ctx context.Context, actor entity.Actor, q dto.AuditQuery) ([]dto.AuditEventResponse, error) {
	q.DefaultPage()
	filter := repository.AuditFilter{
		Entity:   strings.ToUpper(strings.TrimSpace(q.Entity)),
		EntityID: strings.TrimSpace(q.EntityID),
		Action:   strings.ToUpper(strings.TrimSpace(q.Action)),
		Outcome:  strings.ToUpper(strings.TrimSpace(q.Outcome)),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	var err error
	if filter.From, err = parseBound(q.From, false); err != nil {
		return nil, err
	}
	if filter.To, err = parseBound(q.To, true); err != nil {
		return nil, err
	}
	events, err := uc.audits.List(ctx, actor.CompanyID, filter)
	if err != nil {
		return nil, fmt.Errorf("listar auditoría: %w", err)
	}
	out := make([]dto.AuditEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, ToAuditEventResponse(ev))
	}
	return out, nil
}

// parseBound admite RFC3339 o YYYY-MM-DD; una fecha sola como cota superior cubre el día entero.
func parseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha %q (RFC3339 o YYYY-MM-DD)", domain.ErrInvalidInput, s)
	}
	if upper {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}
