package fiscal

import (
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// ToInvoiceResponse mapea factura y líneas al DTO.
func ToInvoiceResponse(inv *entity.Invoice, lines []*entity.InvoiceLine) *dto.InvoiceResponse {
	out := &dto.InvoiceResponse{
		ID:                inv.ID,
		CompanyID:         inv.CompanyID,
		CustomerID:        inv.CustomerID,
		Number:            inv.Number,
		Date:              FormatDate(inv.Date),
		Status:            inv.Status,
		Subtotal:          inv.Subtotal,
		TaxRate:           inv.TaxRate,
		TaxAmount:         inv.TaxAmount,
		Total:             inv.Total,
		TaxNote:           inv.TaxNote,
		LedgerHash:        inv.LedgerHash,
		OriginalInvoiceID: inv.OriginalInvoiceID,
		Lines:             make([]dto.InvoiceLineResponse, 0, len(lines)),
	}
	if inv.ValidatedAt != nil {
		out.ValidatedAt = inv.ValidatedAt.UTC().Format(time.RFC3339)
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, dto.InvoiceLineResponse{
			ID:          l.ID,
			Position:    l.Position,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		})
	}
	return out
}

// ToLedgerEntryResponse mapea un registro fiscal; qrBase vacío omite la URL de cotejo.
func ToLedgerEntryResponse(e *entity.LedgerEntry, qrBase string) dto.LedgerEntryResponse {
	out := dto.LedgerEntryResponse{
		ID:               e.ID,
		InvoiceID:        e.InvoiceID,
		InvoiceNumber:    e.InvoiceNumber,
		InvoiceDate:      FormatDate(e.InvoiceDate),
		InvoiceTotal:     e.InvoiceTotal,
		IssuerTaxID:      e.IssuerTaxID,
		Hash:             e.Hash,
		PreviousHash:     e.PreviousHash,
		RegisteredAt:     verifactu.FormatTimestamp(e.RegisteredAt),
		SubmissionStatus: e.SubmissionStatus,
		SubmissionError:  e.SubmissionError,
	}
	if e.SubmittedAt != nil {
		out.SubmittedAt = e.SubmittedAt.UTC().Format(time.RFC3339)
	}
	if qrBase != "" {
		out.QRURL = verifactu.QRURL(qrBase, e.IssuerTaxID, e.InvoiceNumber, e.InvoiceDate, e.InvoiceTotal)
	}
	return out
}

// ToAuditEventResponse mapea un evento de auditoría.
func ToAuditEventResponse(ev *entity.AuditEvent) dto.AuditEventResponse {
	return dto.AuditEventResponse{
		ID:        ev.ID,
		Entity:    ev.Entity,
		EntityID:  ev.EntityID,
		Action:    ev.Action,
		Outcome:   ev.Outcome,
		Reason:    ev.Reason,
		UserID:    ev.UserID,
		IP:        ev.IP,
		UserAgent: ev.UserAgent,
		Payload:   ev.Payload,
		CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToIssuerResponse mapea el emisor y su estado de numeración.
func ToIssuerResponse(i *entity.Issuer) *dto.IssuerResponse {
	return &dto.IssuerResponse{
		CompanyID:         i.CompanyID,
		Name:              i.Name,
		TaxID:             i.TaxID,
		Series:            i.Series,
		Template:          i.NumberingTemplate,
		NextNumber:        i.NextNumber,
		LastNumberedYear:  i.LastNumberedYear,
		NumberingLocked:   i.NumberingLocked,
		LockedYear:        i.LockedYear,
		RectificationText: i.RectificationText,
		ExemptText:        i.ExemptText,
		ReducedRateText:   i.ReducedRateText,
	}
}

// ToPolicyResponse mapea la política fiscal.
func ToPolicyResponse(p *entity.FiscalPolicy) *dto.PolicyResponse {
	out := &dto.PolicyResponse{
		PolicyRequest: dto.PolicyRequest{
			ImmutableValidated:      p.ImmutableValidated,
			ForbidValidatedDeletion: p.ForbidValidatedDeletion,
			BlockPastDates:          p.BlockPastDates,
			ComplianceMode:          p.ComplianceMode,
			ComplianceURL:           p.ComplianceURL,
			AuditEnabled:            p.AuditEnabled,
			AuditLevel:              p.AuditLevel,
		},
		CompanyID: p.CompanyID,
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}
