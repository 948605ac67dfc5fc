package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// CreateDraft crea una factura en DRAFT con sus líneas y totales calculados.
func (uc *InvoiceUseCase) CreateDraft(ctx context.Context, actor entity.Actor, in dto.DraftInvoiceRequest) (*dto.InvoiceResponse, error) {
	date, err := uc.checkDraft(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	now := uc.opts.Now().UTC()
	inv := &entity.Invoice{
		ID:         uuid.New().String(),
		CompanyID:  actor.CompanyID,
		CustomerID: in.CustomerID,
		Date:       date,
		TaxRate:    in.TaxRate,
		Status:     entity.InvoiceStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	lines := draftLines(inv.ID, in.Lines)
	inv.ApplyTotals(lines)

	err = uc.tx.RunFiscal(ctx, func(r TxRepos) error {
		if err := r.Invoices.Create(ctx, inv); err != nil {
			return fmt.Errorf("crear factura: %w", err)
		}
		return r.Invoices.ReplaceLines(ctx, inv.ID, lines)
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv, lines), nil
}

// UpdateDraft reemplaza cliente, fecha, tipo de IVA y líneas. Pasa por el guard.
func (uc *InvoiceUseCase) UpdateDraft(ctx context.Context, actor entity.Actor, invoiceID string, in dto.DraftInvoiceRequest) (*dto.InvoiceResponse, error) {
	if _, err := uc.load(ctx, actor, invoiceID); err != nil {
		return nil, err
	}
	date, err := uc.checkDraft(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	policy, err := uc.policies.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("obtener política fiscal: %w", err)
	}

	var (
		inv   *entity.Invoice
		lines []*entity.InvoiceLine
	)
	err = uc.tx.RunFiscal(ctx, func(r TxRepos) error {
		cur, err := r.Invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("releer factura: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
		}
		if err := uc.guard.Check(ctx, r.Ledger, actor, cur, policy, entity.AuditActionEdit); err != nil {
			return err
		}
		inv = cur
		inv.CustomerID = in.CustomerID
		inv.Date = date
		inv.TaxRate = in.TaxRate
		inv.UpdatedAt = uc.opts.Now().UTC()
		lines = draftLines(inv.ID, in.Lines)
		inv.ApplyTotals(lines)
		if err := r.Invoices.Update(ctx, inv); err != nil {
			return fmt.Errorf("actualizar factura: %w", err)
		}
		return r.Invoices.ReplaceLines(ctx, inv.ID, lines)
	})
	if err != nil {
		return nil, err
	}

	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: inv.ID,
		Action:   entity.AuditActionEdit,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"status": inv.Status, "lines": len(lines), "total": inv.Total.StringFixed(2)},
	})
	return ToInvoiceResponse(inv, lines), nil
}

// Delete borra una factura. Pasa por el guard, que además aplica la política de
// borrado de validadas.
func (uc *InvoiceUseCase) Delete(ctx context.Context, actor entity.Actor, invoiceID string) error {
	if _, err := uc.load(ctx, actor, invoiceID); err != nil {
		return err
	}
	policy, err := uc.policies.Get(ctx, actor.CompanyID)
	if err != nil {
		return fmt.Errorf("obtener política fiscal: %w", err)
	}

	var deleted *entity.Invoice
	err = uc.tx.RunFiscal(ctx, func(r TxRepos) error {
		cur, err := r.Invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("releer factura: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
		}
		if err := uc.guard.Check(ctx, r.Ledger, actor, cur, policy, entity.AuditActionDelete); err != nil {
			return err
		}
		deleted = cur
		return r.Invoices.Delete(ctx, cur.ID)
	})
	if err != nil {
		return err
	}

	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityInvoice,
		EntityID: deleted.ID,
		Action:   entity.AuditActionDelete,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"status": deleted.Status, "number": deleted.Number},
	})
	return nil
}

// Get factura con líneas.
func (uc *InvoiceUseCase) Get(ctx context.Context, actor entity.Actor, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	lines, err := uc.invoices.GetLines(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("obtener líneas: %w", err)
	}
	return ToInvoiceResponse(inv, lines), nil
}

// List facturas de la empresa (sin líneas).
func (uc *InvoiceUseCase) List(ctx context.Context, actor entity.Actor, status string, page dto.PageRequest) ([]dto.InvoiceResponse, error) {
	page.DefaultPage()
	list, err := uc.invoices.ListByCompany(ctx, actor.CompanyID, repository.InvoiceFilter{
		Status: strings.ToUpper(strings.TrimSpace(status)),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listar facturas: %w", err)
	}
	out := make([]dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, *ToInvoiceResponse(inv, nil))
	}
	return out, nil
}

// MinDate fecha mínima para la siguiente validación: la de la última factura
// validada, o hoy si la empresa aún no ha validado ninguna.
func (uc *InvoiceUseCase) MinDate(ctx context.Context, actor entity.Actor) (*dto.MinDateResponse, error) {
	last, err := uc.invoices.LastValidatedDate(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("leer última fecha validada: %w", err)
	}
	minDate := uc.today()
	if last != nil {
		minDate = *last
	}
	return &dto.MinDateResponse{MinDate: FormatDate(minDate)}, nil
}

func (uc *InvoiceUseCase) checkDraft(ctx context.Context, actor entity.Actor, in dto.DraftInvoiceRequest) (time.Time, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return time.Time{}, fmt.Errorf("%w: customer_id es obligatorio", domain.ErrInvalidInput)
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return time.Time{}, fmt.Errorf("%w: tax_rate fuera de rango (0-100)", domain.ErrInvalidInput)
	}
	for i, l := range in.Lines {
		if strings.TrimSpace(l.Description) == "" {
			return time.Time{}, fmt.Errorf("%w: línea %d sin descripción", domain.ErrInvalidInput, i+1)
		}
		if !l.Quantity.IsPositive() {
			return time.Time{}, fmt.Errorf("%w: línea %d con cantidad no positiva", domain.ErrInvalidInput, i+1)
		}
		if l.UnitPrice.IsNegative() {
			return time.Time{}, fmt.Errorf("%w: línea %d con precio negativo", domain.ErrInvalidInput, i+1)
		}
	}
	customer, err := uc.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		return time.Time{}, fmt.Errorf("obtener cliente: %w", err)
	}
	if customer == nil || customer.CompanyID != actor.CompanyID {
		return time.Time{}, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, in.CustomerID)
	}
	return ParseDate(in.Date, uc.today())
}

func draftLines(invoiceID string, in []dto.InvoiceLineRequest) []*entity.InvoiceLine {
	lines := make([]*entity.InvoiceLine, 0, len(in))
	for i, l := range in {
		lines = append(lines, &entity.InvoiceLine{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			Position:    i + 1,
			Description: strings.TrimSpace(l.Description),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	return lines
}
