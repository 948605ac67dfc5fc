package fiscal_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

func TestValidate_NumeracionCorrelativa(t *testing.T) {
	f := newFixture(t, nil)

	first := f.validate(f.draft(""), "")
	second := f.validate(f.draft(""), "")

	assert.Equal(t, "2025-0001", first.Number)
	assert.Equal(t, "2025-0002", second.Number)
	assert.Equal(t, entity.InvoiceStatusValidated, second.Status)
	assert.Empty(t, second.LedgerHash, "sin envío activo no hay registro fiscal")

	iss := f.issuer()
	assert.EqualValues(t, 3, iss.NextNumber)
	assert.Equal(t, 2025, iss.LastNumberedYear)
	assert.True(t, iss.NumberingLocked)
	assert.Equal(t, 2025, iss.LockedYear)

	inv := f.invoice(first.InvoiceID)
	assert.Equal(t, "121.41", inv.Total.StringFixed(2))
	assert.NotNil(t, inv.ValidatedAt)
}

func TestValidate_FechaAnteriorRechazadaSinConsumirNumero(t *testing.T) {
	f := newFixture(t, nil)
	f.validate(f.draft(""), "")

	id := f.draft("")
	_, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{Date: "2025-03-10"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.EqualValues(t, 2, f.issuer().NextNumber, "el número no se consume")
	inv := f.invoice(id)
	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.Empty(t, inv.Number)

	errs := f.audits(entity.AuditActionValidate, entity.AuditOutcomeError)
	require.Len(t, errs, 1)
	assert.Equal(t, id, errs[0].EntityID)
	assert.Equal(t, "10.0.0.1", errs[0].IP)

	// la misma fecha que la última validada sí se admite
	res := f.validate(id, "2025-03-14")
	assert.Equal(t, "2025-0002", res.Number)
}

func TestValidate_FechasPasadasBloqueadasPorPolitica(t *testing.T) {
	f := newFixture(t, func(p *entity.FiscalPolicy) { p.BlockPastDates = true })

	_, err := f.invoices.Validate(f.ctx, f.actor, f.draft(""), dto.ValidateInvoiceRequest{Date: "2025-03-13"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	res := f.validate(f.draft(""), "2025-03-20")
	assert.Equal(t, "2025-0001", res.Number)
}

func TestValidate_FechaInvalida(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.invoices.Validate(f.ctx, f.actor, f.draft(""), dto.ValidateInvoiceRequest{Date: "14/03/2025"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestValidate_YaValidadaConFechaMalformadaSigueBloqueada(t *testing.T) {
	f := newFixture(t, nil)
	id := f.draft("")
	f.validate(id, "")

	_, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{Date: "14/03/2025"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	assert.False(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Len(t, f.audits(entity.AuditActionValidate, entity.AuditOutcomeBlocked), 1)
}

func TestValidate_FalloTardioNoConsumeNumero(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	id := f.draft("")
	f.useRunner(failingLedgerTx{store: f.store, err: errors.New("disco lleno")})

	_, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{TaxNote: "nota"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disco lleno")

	iss := f.issuer()
	assert.EqualValues(t, 1, iss.NextNumber)
	assert.Zero(t, iss.LastNumberedYear)
	assert.False(t, iss.NumberingLocked, "el bloqueo de numeración tampoco persiste")

	inv := f.invoice(id)
	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.Empty(t, inv.Number)
	assert.Empty(t, inv.TaxNote)
	assert.Empty(t, f.entries())
	assert.Len(t, f.audits(entity.AuditActionValidate, entity.AuditOutcomeError), 1)
	f.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)

	// con el registro disponible la misma factura recibe el primer número
	f.useRunner(f.store)
	f.acceptSubmissions()
	assert.Equal(t, "2025-0001", f.validate(id, "").Number)
}

func TestValidate_YaValidadaBloqueada(t *testing.T) {
	f := newFixture(t, nil)
	id := f.draft("")
	f.validate(id, "")

	_, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	assert.EqualValues(t, 2, f.issuer().NextNumber)
	assert.Len(t, f.audits(entity.AuditActionValidate, entity.AuditOutcomeBlocked), 1)
}

func TestValidate_OtraEmpresaNoEncontrada(t *testing.T) {
	f := newFixture(t, nil)
	id := f.draft("")

	other := f.actor
	other.CompanyID = "company-2"
	_, err := f.invoices.Validate(f.ctx, other, id, dto.ValidateInvoiceRequest{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestValidate_SinEmisorEsErrorDeConfiguracion(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.Issuers().Save(f.ctx, &entity.Issuer{CompanyID: companyID, Name: "Acme SL", NextNumber: 1}))

	_, err := f.invoices.Validate(f.ctx, f.actor, f.draft(""), dto.ValidateInvoiceRequest{})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestValidate_EnvioActivoSinURLEsErrorDeConfiguracion(t *testing.T) {
	f := newFixture(t, testMode(""))
	id := f.draft("")

	_, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.EqualValues(t, 1, f.issuer().NextNumber)
	assert.Empty(t, f.entries())
	f.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestValidate_ModoOffNoGeneraRegistros(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 3; i++ {
		res := f.validate(f.draft(""), "")
		assert.Nil(t, res.Submission)
	}

	assert.Empty(t, f.entries())
	f.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestValidate_EncadenaRegistros(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.acceptSubmissions()

	var hashes []string
	for i := 0; i < 3; i++ {
		res := f.validate(f.draft(""), "")
		require.NotNil(t, res.Submission)
		assert.Equal(t, entity.SubmissionSent, res.Submission.Status)
		hashes = append(hashes, res.LedgerHash)
	}

	entries := f.entries()
	require.Len(t, entries, 3)
	assert.Empty(t, entries[0].PreviousHash, "el primer registro no tiene anterior")
	for i, e := range entries {
		assert.Equal(t, hashes[i], e.Hash)
		assert.Equal(t, issuerNIF, e.IssuerTaxID)
		assert.Equal(t, entity.SubmissionSent, e.SubmissionStatus)
		assert.NotNil(t, e.SubmittedAt)
		ok, err := verifactu.Verify(fiscal.RecordOf(e), e.Hash)
		require.NoError(t, err)
		assert.True(t, ok)
		if i > 0 {
			assert.Equal(t, entries[i-1].Hash, e.PreviousHash)
			assert.True(t, e.RegisteredAt.After(entries[i-1].RegisteredAt), "el reloj fijo no rompe el orden de registro")
		}
	}

	chain, err := f.ledger.Verify(f.ctx, f.actor)
	require.NoError(t, err)
	assert.True(t, chain.Valid)
	assert.Equal(t, 3, chain.Entries)
	assert.Equal(t, hashes[2], chain.LastHash)

	f.submitter.AssertNumberOfCalls(t, "Submit", 3)
	f.submitter.AssertCalled(t, "Submit", mock.Anything, mock.MatchedBy(func(req fiscal.SubmissionRequest) bool {
		return req.Mode == entity.ComplianceModeTest &&
			req.URL == "https://verifactu.test/api" &&
			req.Entry != nil && req.Customer != nil && req.Issuer != nil
	}))
}

func TestValidate_EnvioFallidoNoRevierteLaValidacion(t *testing.T) {
	f := newFixture(t, func(p *entity.FiscalPolicy) {
		p.ComplianceMode = entity.ComplianceModeProduction
		p.ComplianceURL = "http://127.0.0.1:1/verifactu"
	})
	f.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(fiscal.SubmissionResult{Status: entity.SubmissionError, Detail: "dial tcp 127.0.0.1:1: connect: connection refused"})

	res := f.validate(f.draft(""), "")

	assert.True(t, res.OK)
	assert.Equal(t, "2025-0001", res.Number)
	assert.Equal(t, entity.InvoiceStatusValidated, f.invoice(res.InvoiceID).Status)
	require.NotNil(t, res.Submission)
	assert.Equal(t, entity.SubmissionError, res.Submission.Status)

	entries := f.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entity.SubmissionError, entries[0].SubmissionStatus)
	assert.Contains(t, entries[0].SubmissionError, "connection refused")
	assert.Len(t, f.audits(entity.AuditActionSubmit, entity.AuditOutcomeError), 1)
}

func TestValidate_EstadoDeEnvioDesconocidoCuentaComoError(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(fiscal.SubmissionResult{Status: "WHATEVER", Detail: string(make([]rune, 3000))})

	res := f.validate(f.draft(""), "")

	assert.Equal(t, entity.SubmissionError, res.Submission.Status)
	assert.Len(t, []rune(f.entries()[0].SubmissionError), fiscal.MaxSubmissionDetail)
}

func TestValidate_CambioDeAnioReiniciaNumeracion(t *testing.T) {
	f := newFixture(t, nil)
	f.clock.Set(time.Date(2025, time.December, 31, 18, 0, 0, 0, time.UTC))
	f.validate(f.draft(""), "")
	f.validate(f.draft(""), "")

	f.clock.Set(time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC))
	res := f.validate(f.draft(""), "")

	assert.Equal(t, "2026-0001", res.Number)
	iss := f.issuer()
	assert.Equal(t, 2026, iss.LastNumberedYear)
	assert.Equal(t, 2026, iss.LockedYear)
	assert.EqualValues(t, 2, iss.NextNumber)
}

func TestValidate_ConcurrenteSinHuecosNiDuplicados(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.acceptSubmissions()

	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.draft("")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[res.Number] = true
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	require.Len(t, numbers, n)
	for i := 1; i <= n; i++ {
		assert.True(t, numbers[fmt.Sprintf("2025-%04d", i)], "falta el número %d", i)
	}
	chain, err := f.ledger.Verify(f.ctx, f.actor)
	require.NoError(t, err)
	assert.True(t, chain.Valid)
	assert.Equal(t, n, chain.Entries)
}

func TestValidate_FalloDeAuditoriaNoAfectaALaOperacion(t *testing.T) {
	f := newFixture(t, fullAudit)
	f.store.FailAudits(errBoom)

	res := f.validate(f.draft(""), "")

	assert.Equal(t, "2025-0001", res.Number)
	assert.Positive(t, f.recorder.Failures())

	f.store.FailAudits(nil)
	assert.Empty(t, f.audits(entity.AuditActionValidate, ""))
}

func TestValidate_PDFBestEffort(t *testing.T) {
	f := newFixture(t, fullAudit)
	f.renderer.err = errBoom

	res := f.validate(f.draft(""), "")

	assert.True(t, res.OK)
	failed := f.audits(entity.AuditActionDocument, entity.AuditOutcomeError)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Reason, "boom")
}

func TestVoid_EmiteRectificativa(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.acceptSubmissions()
	orig := f.validate(f.draft(""), "")

	res, err := f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.NoError(t, err)

	assert.Equal(t, "2025-0001R", res.Number)
	assert.Equal(t, orig.InvoiceID, res.OriginalID)
	assert.NotEmpty(t, res.LedgerHash)
	assert.EqualValues(t, 2, f.issuer().NextNumber, "la rectificativa no consume correlativo")

	original := f.invoice(orig.InvoiceID)
	assert.Equal(t, entity.InvoiceStatusVoided, original.Status)

	rect := f.invoice(res.RectificationID)
	assert.Equal(t, entity.InvoiceStatusValidated, rect.Status)
	assert.Equal(t, orig.InvoiceID, rect.OriginalInvoiceID)
	assert.Equal(t, original.CustomerID, rect.CustomerID)
	assert.Equal(t, "-121.41", rect.Total.StringFixed(2))
	assert.Contains(t, rect.TaxNote, "Nº 2025-0001 de fecha 14/03/2025")
	assert.Contains(t, rect.TaxNote, entity.DefaultRectificationText)

	lines, err := f.store.Invoices().GetLines(f.ctx, rect.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, fiscal.RectificationLinePrefix+"Consultoría", lines[0].Description)
	assert.Equal(t, "-2", lines[0].Quantity.String())
	assert.Equal(t, "50", lines[0].UnitPrice.String())

	entries := f.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-0001R", entries[1].InvoiceNumber)
	assert.Equal(t, entries[0].Hash, entries[1].PreviousHash)

	_, err = f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	assert.Len(t, f.entries(), 2)
}

func TestVoid_EstadosNoAnulables(t *testing.T) {
	f := newFixture(t, nil)

	draft := f.draft("")
	_, err := f.invoices.Void(f.ctx, f.actor, draft)
	assert.True(t, errors.Is(err, domain.ErrValidation), "un borrador no se anula")

	orig := f.validate(f.draft(""), "")
	res, err := f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.NoError(t, err)

	_, err = f.invoices.Void(f.ctx, f.actor, res.RectificationID)
	assert.True(t, errors.Is(err, domain.ErrValidation), "una rectificativa no se anula")
}

func TestVoid_NumeroDeRectificativaOcupado(t *testing.T) {
	f := newFixture(t, nil)
	orig := f.validate(f.draft(""), "")

	// otra factura ya ocupa el número con sufijo
	taken := f.invoice(f.draft(""))
	taken.Number = "2025-0001R"
	require.NoError(t, f.store.Invoices().Update(f.ctx, taken))

	_, err := f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	assert.Equal(t, entity.InvoiceStatusValidated, f.invoice(orig.InvoiceID).Status, "todo o nada")
}

func TestVoid_FalloTardioNoAnulaLaOriginal(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.acceptSubmissions()
	orig := f.validate(f.draft(""), "")

	f.useRunner(failingLedgerTx{store: f.store, err: errors.New("disco lleno")})
	_, err := f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disco lleno")

	assert.Equal(t, entity.InvoiceStatusValidated, f.invoice(orig.InvoiceID).Status)
	list, err := f.store.Invoices().ListByCompany(f.ctx, companyID, repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1, "la rectificativa no se crea")
	assert.Len(t, f.entries(), 1)
	assert.Len(t, f.audits(entity.AuditActionVoid, entity.AuditOutcomeError), 1)

	f.useRunner(f.store)
	res, err := f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "2025-0001R", res.Number)
}

func TestPreValidate_NotaDeIVASugerida(t *testing.T) {
	f := newFixture(t, nil)
	iss := f.issuer()
	iss.ExemptText = "Exenta art. 20 LIVA."
	require.NoError(t, f.store.Issuers().Save(f.ctx, iss))

	tests := []struct {
		name     string
		rate     decimal.Decimal
		needs    bool
		expected string
	}{
		{"exenta", decimal.Zero, true, "Exenta art. 20 LIVA."},
		{"reducido sin texto propio", decimal.NewFromInt(10), true, entity.DefaultReducedRateText},
		{"superreducido", decimal.NewFromInt(4), true, entity.DefaultReducedRateText},
		{"general", decimal.NewFromInt(21), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := f.draftAt("", tt.rate)
			res, err := f.invoices.PreValidate(f.ctx, f.actor, id)
			require.NoError(t, err)
			assert.True(t, res.OK)
			assert.Equal(t, tt.needs, res.NeedsTaxNote)
			assert.Equal(t, tt.expected, res.SuggestedNote)
			assert.Equal(t, entity.InvoiceStatusDraft, f.invoice(id).Status, "no modifica la factura")
		})
	}
}

func TestPreValidate_IdVacioYOtraEmpresa(t *testing.T) {
	f := newFixture(t, nil)
	id := f.draft("")

	other := f.actor
	other.CompanyID = "company-2"
	_, err := f.invoices.PreValidate(f.ctx, other, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.invoices.PreValidate(f.ctx, f.actor, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestMinDate(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.invoices.MinDate(f.ctx, f.actor)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", res.MinDate)

	f.validate(f.draft(""), "2025-03-20")
	res, err = f.invoices.MinDate(f.ctx, f.actor)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-20", res.MinDate)
}
