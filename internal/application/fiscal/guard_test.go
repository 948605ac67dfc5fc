package fiscal_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

func TestGuardEvaluate(t *testing.T) {
	g := fiscal.NewGuard(nil)
	validated := &entity.Invoice{Number: "2025-0001", Status: entity.InvoiceStatusValidated}
	draft := &entity.Invoice{Status: entity.InvoiceStatusDraft}
	permissive := &entity.FiscalPolicy{}
	strict := entity.DefaultFiscalPolicy("c1")
	noDelete := &entity.FiscalPolicy{ForbidValidatedDeletion: true}

	tests := []struct {
		name   string
		inv    *entity.Invoice
		entry  *entity.LedgerEntry
		policy *entity.FiscalPolicy
		action string
		want   string // "" = permitido
	}{
		{"registro fiscal bloquea aunque la política permita", validated, &entity.LedgerEntry{}, permissive, entity.AuditActionEdit, fiscal.DenyLedgerBound},
		{"hash en la factura bloquea sin política", &entity.Invoice{Status: entity.InvoiceStatusVoided, LedgerHash: "abc"}, nil, nil, entity.AuditActionDelete, fiscal.DenyLedgerBound},
		{"borrador editable", draft, nil, strict, entity.AuditActionEdit, ""},
		{"validada inmutable", validated, nil, strict, entity.AuditActionEdit, fiscal.DenyImmutable},
		{"validada editable con política permisiva", validated, nil, permissive, entity.AuditActionEdit, ""},
		{"borrado de validada prohibido", validated, nil, noDelete, entity.AuditActionDelete, fiscal.DenyDeleteDisabled},
		{"edición con borrado prohibido", validated, nil, noDelete, entity.AuditActionEdit, ""},
		{"sin política y sin registro", validated, nil, nil, entity.AuditActionDelete, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(tt.inv, tt.entry, tt.policy, tt.action)
			if tt.want == "" {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.Equal(t, tt.want, d.Kind)
			assert.True(t, errors.Is(d, domain.ErrBlocked))
		})
	}
}

func TestGuard_RegistroFiscalBloqueaEdicionYBorrado(t *testing.T) {
	f := newFixture(t, func(p *entity.FiscalPolicy) {
		testMode("https://verifactu.test/api")(p)
		p.ImmutableValidated = false
		p.ForbidValidatedDeletion = false
	})
	f.acceptSubmissions()
	res := f.validate(f.draft(""), "")

	// la política ya no es estricta: el registro fiscal sigue bloqueando
	require.NoError(t, f.store.Policies().Save(f.ctx, &entity.FiscalPolicy{CompanyID: companyID, AuditEnabled: true, AuditLevel: entity.AuditLevelBasic}))

	_, err := f.invoices.UpdateDraft(f.ctx, f.actor, res.InvoiceID, editRequest(f.customer))
	var denial *fiscal.Denial
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, fiscal.DenyLedgerBound, denial.Kind)

	err = f.invoices.Delete(f.ctx, f.actor, res.InvoiceID)
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, fiscal.DenyLedgerBound, denial.Kind)

	inv := f.invoice(res.InvoiceID)
	assert.Equal(t, "121.41", inv.Total.StringFixed(2), "sin cambios")
	assert.Len(t, f.audits(entity.AuditActionEdit, entity.AuditOutcomeBlocked), 1)
	assert.Len(t, f.audits(entity.AuditActionDelete, entity.AuditOutcomeBlocked), 1)
}

func TestGuard_ValidadaSinRegistroSegunPolitica(t *testing.T) {
	f := newFixture(t, func(p *entity.FiscalPolicy) {
		p.ImmutableValidated = false
		p.ForbidValidatedDeletion = true
	})
	res := f.validate(f.draft(""), "")

	updated, err := f.invoices.UpdateDraft(f.ctx, f.actor, res.InvoiceID, editRequest(f.customer))
	require.NoError(t, err)
	assert.Equal(t, "12.10", updated.Total.StringFixed(2))
	assert.Equal(t, "2025-0001", updated.Number)

	err = f.invoices.Delete(f.ctx, f.actor, res.InvoiceID)
	var denial *fiscal.Denial
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, fiscal.DenyDeleteDisabled, denial.Kind)
}

func TestGuard_PoliticaEstrictaBloqueaValidadas(t *testing.T) {
	f := newFixture(t, nil)
	res := f.validate(f.draft(""), "")

	_, err := f.invoices.UpdateDraft(f.ctx, f.actor, res.InvoiceID, editRequest(f.customer))
	var denial *fiscal.Denial
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, fiscal.DenyImmutable, denial.Kind)
}

func TestDrafts_EditarYBorrarBorrador(t *testing.T) {
	f := newFixture(t, fullAudit)
	id := f.draft("")

	updated, err := f.invoices.UpdateDraft(f.ctx, f.actor, id, editRequest(f.customer))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusDraft, updated.Status)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, "10.00", updated.Subtotal.StringFixed(2))

	require.NoError(t, f.invoices.Delete(f.ctx, f.actor, id))
	_, err = f.invoices.Get(f.ctx, f.actor, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Len(t, f.audits(entity.AuditActionEdit, entity.AuditOutcomeOK), 1)
	assert.Len(t, f.audits(entity.AuditActionDelete, entity.AuditOutcomeOK), 1)
}

func TestDrafts_EntradaInvalida(t *testing.T) {
	f := newFixture(t, nil)
	base := editRequest(f.customer)

	tests := []struct {
		name   string
		mutate func(r *dto.DraftInvoiceRequest)
		want   error
	}{
		{"sin cliente", func(r *dto.DraftInvoiceRequest) { r.CustomerID = "" }, domain.ErrInvalidInput},
		{"cliente inexistente", func(r *dto.DraftInvoiceRequest) { r.CustomerID = "nope" }, domain.ErrNotFound},
		{"iva negativo", func(r *dto.DraftInvoiceRequest) { r.TaxRate = decimal.NewFromInt(-1) }, domain.ErrInvalidInput},
		{"cantidad cero", func(r *dto.DraftInvoiceRequest) { r.Lines[0].Quantity = decimal.Zero }, domain.ErrInvalidInput},
		{"precio negativo", func(r *dto.DraftInvoiceRequest) { r.Lines[0].UnitPrice = decimal.NewFromInt(-5) }, domain.ErrInvalidInput},
		{"descripción vacía", func(r *dto.DraftInvoiceRequest) { r.Lines[0].Description = "  " }, domain.ErrInvalidInput},
		{"fecha inválida", func(r *dto.DraftInvoiceRequest) { r.Date = "2025-13-01" }, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Lines = append([]dto.InvoiceLineRequest(nil), base.Lines...)
			tt.mutate(&req)
			_, err := f.invoices.CreateDraft(f.ctx, f.actor, req)
			assert.True(t, errors.Is(err, tt.want), "error: %v", err)
		})
	}
}

func TestValidate_SinLineasEsErrorDeValidacion(t *testing.T) {
	f := newFixture(t, nil)
	req := editRequest(f.customer)
	req.Lines = nil
	inv, err := f.invoices.CreateDraft(f.ctx, f.actor, req)
	require.NoError(t, err)

	_, err = f.invoices.Validate(f.ctx, f.actor, inv.ID, dto.ValidateInvoiceRequest{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.EqualValues(t, 1, f.issuer().NextNumber)
}

func TestDrafts_ListPorEstado(t *testing.T) {
	f := newFixture(t, nil)
	f.draft("")
	f.validate(f.draft(""), "")

	drafts, err := f.invoices.List(f.ctx, f.actor, "draft", dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	all, err := f.invoices.List(f.ctx, f.actor, "", dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func editRequest(customerID string) dto.DraftInvoiceRequest {
	return dto.DraftInvoiceRequest{
		CustomerID: customerID,
		TaxRate:    decimal.NewFromInt(21),
		Lines: []dto.InvoiceLineRequest{
			{Description: "Revisión", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	}
}
