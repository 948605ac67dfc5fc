package fiscal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-fiscal/pkg/logger"
)

const (
	companyID = "company-1"
	issuerNIF = "B12345678"
)

// ── dobles ────────────────────────────────────────────────────────────────────

type submitterMock struct{ mock.Mock }

func (m *submitterMock) Submit(ctx context.Context, req fiscal.SubmissionRequest) fiscal.SubmissionResult {
	args := m.Called(ctx, req)
	return args.Get(0).(fiscal.SubmissionResult)
}

type stubRenderer struct {
	mu    sync.Mutex
	err   error
	calls int
	last  fiscal.InvoiceDocument
}

func (r *stubRenderer) RenderInvoice(_ context.Context, doc fiscal.InvoiceDocument) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = doc
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 " + doc.Invoice.Number), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// ── fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	clock     *testClock
	submitter *submitterMock
	renderer  *stubRenderer
	recorder  *fiscal.Recorder
	invoices  *fiscal.InvoiceUseCase
	settings  *fiscal.SettingsUseCase
	ledger    *fiscal.LedgerUseCase
	documents *fiscal.DocumentUseCase
	actor     entity.Actor
	customer  string

	allocator *fiscal.Allocator
	chain     *fiscal.Ledger
	guard     *fiscal.Guard
	opts      fiscal.Options
	log       zerolog.Logger
}

var qrBases = fiscal.QRBases{
	Test:       "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR",
	Production: "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR",
}

// newFixture empresa con emisor (plantilla {YEAR}-{NUM:04d}), cliente y la
// política por defecto modificada por tune.
func newFixture(t *testing.T, tune func(p *entity.FiscalPolicy)) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)}
	log := logger.Nop().Zerolog()

	f := &fixture{
		t:         t,
		ctx:       ctx,
		store:     store,
		clock:     clock,
		submitter: &submitterMock{},
		renderer:  &stubRenderer{},
		actor:     entity.Actor{CompanyID: companyID, UserID: "user-1", IP: "10.0.0.1", UserAgent: "test"},
	}
	opts := fiscal.Options{Location: time.UTC, RectificationSuffix: "R", Now: clock.Now}

	f.opts, f.log = opts, log
	f.recorder = fiscal.NewRecorder(store.Policies(), store.Audits(), log, clock.Now)
	f.allocator = fiscal.NewAllocator()
	f.chain = fiscal.NewLedger(f.submitter, f.recorder, clock.Now, log)
	f.guard = fiscal.NewGuard(f.recorder)
	f.documents = fiscal.NewDocumentUseCase(
		store.Invoices(), store.Companies(), store.Customers(), store.Issuers(),
		store.Ledger(), store.Policies(), f.renderer, store.Documents(), f.recorder, qrBases, clock.Now, log,
	)
	f.useRunner(store)
	f.settings = fiscal.NewSettingsUseCase(store, store.Issuers(), store.Policies(), f.allocator, f.recorder, opts, log)
	f.ledger = fiscal.NewLedgerUseCase(store.Ledger(), store.Audits(), store.Policies(), qrBases)

	now := clock.Now()
	require.NoError(t, store.Companies().Create(ctx, &entity.Company{ID: companyID, Name: "Acme SL", Status: "active", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.Issuers().Save(ctx, &entity.Issuer{
		CompanyID:         companyID,
		Name:              "Acme SL",
		TaxID:             issuerNIF,
		Series:            "A",
		NumberingTemplate: "{YEAR}-{NUM:04d}",
		NextNumber:        1,
		RectificationText: entity.DefaultRectificationText,
	}))
	policy := entity.DefaultFiscalPolicy(companyID)
	if tune != nil {
		tune(policy)
	}
	require.NoError(t, store.Policies().Save(ctx, policy))

	customers := fiscal.NewCustomerUseCase(store.Customers(), clock.Now)
	c, err := customers.Create(ctx, f.actor, dto.CreateCustomerRequest{Name: "Cliente Uno", TaxID: "12345678Z"})
	require.NoError(t, err)
	f.customer = c.ID
	return f
}

// useRunner reconstruye el caso de uso de facturas sobre otro ejecutor de transacciones.
func (f *fixture) useRunner(tx fiscal.FiscalTxRunner) {
	s := f.store
	f.invoices = fiscal.NewInvoiceUseCase(
		tx, s.Invoices(), s.Customers(), s.Policies(), s.Issuers(), s.Ledger(),
		f.allocator, f.chain, f.guard, f.recorder, f.documents, f.opts, f.log,
	)
}

// failingLedgerTx transacción real del almacén en la que guardar el registro
// fiscal falla: el error llega después de numerar y de cambiar estados.
type failingLedgerTx struct {
	store *memory.Store
	err   error
}

func (tx failingLedgerTx) RunFiscal(ctx context.Context, fn func(repos fiscal.TxRepos) error) error {
	return tx.store.RunFiscal(ctx, func(r fiscal.TxRepos) error {
		r.Ledger = failingLedger{LedgerRepository: r.Ledger, err: tx.err}
		return fn(r)
	})
}

type failingLedger struct {
	repository.LedgerRepository
	err error
}

func (l failingLedger) Append(context.Context, *entity.LedgerEntry) error { return l.err }

func testMode(url string) func(p *entity.FiscalPolicy) {
	return func(p *entity.FiscalPolicy) {
		p.ComplianceMode = entity.ComplianceModeTest
		p.ComplianceURL = url
	}
}

func fullAudit(p *entity.FiscalPolicy) { p.AuditLevel = entity.AuditLevelFull }

func (f *fixture) acceptSubmissions() {
	f.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(fiscal.SubmissionResult{Status: entity.SubmissionSent, Detail: `{"estado":"Correcto"}`})
}

// draft crea un borrador con 2×50 + 1×0.335 al 21 %.
func (f *fixture) draft(date string) string {
	f.t.Helper()
	return f.draftAt(date, decimal.NewFromInt(21))
}

func (f *fixture) draftAt(date string, rate decimal.Decimal) string {
	f.t.Helper()
	inv, err := f.invoices.CreateDraft(f.ctx, f.actor, dto.DraftInvoiceRequest{
		CustomerID: f.customer,
		Date:       date,
		TaxRate:    rate,
		Lines: []dto.InvoiceLineRequest{
			{Description: "Consultoría", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
			{Description: "Material", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("0.335")},
		},
	})
	require.NoError(f.t, err)
	return inv.ID
}

func (f *fixture) validate(id, date string) *dto.ValidateInvoiceResponse {
	f.t.Helper()
	res, err := f.invoices.Validate(f.ctx, f.actor, id, dto.ValidateInvoiceRequest{Date: date})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) invoice(id string) *entity.Invoice {
	f.t.Helper()
	inv, err := f.store.Invoices().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, inv)
	return inv
}

func (f *fixture) issuer() *entity.Issuer {
	f.t.Helper()
	iss, err := f.store.Issuers().Get(f.ctx, companyID)
	require.NoError(f.t, err)
	return iss
}

func (f *fixture) entries() []*entity.LedgerEntry {
	f.t.Helper()
	list, err := f.store.Ledger().ListByCompany(f.ctx, companyID, repositoryAll)
	require.NoError(f.t, err)
	return list
}

func (f *fixture) audits(action, outcome string) []*entity.AuditEvent {
	f.t.Helper()
	list, err := f.store.Audits().List(f.ctx, companyID, auditFilter(action, outcome))
	require.NoError(f.t, err)
	return list
}

var errBoom = errors.New("boom")
