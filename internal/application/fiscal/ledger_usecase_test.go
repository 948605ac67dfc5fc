package fiscal_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// fixedLedger devuelve una cadena fija; el resto del repositorio no se usa.
type fixedLedger struct {
	repository.LedgerRepository
	entries []*entity.LedgerEntry
}

func (l *fixedLedger) ListByCompany(_ context.Context, _ string, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	if f.Offset >= len(l.entries) {
		return nil, nil
	}
	end := f.Offset + f.Limit
	if end > len(l.entries) {
		end = len(l.entries)
	}
	return l.entries[f.Offset:end], nil
}

func chainOf(t *testing.T, n int) []*entity.LedgerEntry {
	t.Helper()
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	var out []*entity.LedgerEntry
	prev := ""
	for i := 0; i < n; i++ {
		e := &entity.LedgerEntry{
			ID:            string(rune('a' + i)),
			InvoiceNumber: "2025-000" + string(rune('1'+i)),
			InvoiceDate:   time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC),
			InvoiceTotal:  decimal.RequireFromString("121.41"),
			IssuerTaxID:   issuerNIF,
			PreviousHash:  prev,
			RegisteredAt:  at.Add(time.Duration(i) * time.Second),
		}
		h, err := verifactu.Hash(fiscal.RecordOf(e))
		require.NoError(t, err)
		e.Hash = h
		prev = h
		out = append(out, e)
	}
	return out
}

func TestVerify_DetectaManipulacion(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(entries []*entity.LedgerEntry)
		pos    int
		reason string
	}{
		{"importe alterado", func(e []*entity.LedgerEntry) { e[1].InvoiceTotal = decimal.RequireFromString("1.00") }, 1, "huella"},
		{"enlace roto", func(e []*entity.LedgerEntry) { e[2].PreviousHash = "00" }, 2, "hash_anterior"},
		{"orden de registro", func(e []*entity.LedgerEntry) { e[2].RegisteredAt = e[1].RegisteredAt }, 2, "fecha de registro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := chainOf(t, 4)
			tt.tamper(entries)
			uc := fiscal.NewLedgerUseCase(&fixedLedger{entries: entries}, nil, nil, qrBases)

			res, err := uc.Verify(context.Background(), entity.Actor{CompanyID: companyID})
			require.NoError(t, err)
			assert.False(t, res.Valid)
			require.NotNil(t, res.Break)
			assert.Equal(t, tt.pos, res.Break.Position)
			assert.Contains(t, res.Break.Reason, tt.reason)
		})
	}
}

func TestVerify_CadenaVacia(t *testing.T) {
	uc := fiscal.NewLedgerUseCase(&fixedLedger{}, nil, nil, qrBases)
	res, err := uc.Verify(context.Background(), entity.Actor{CompanyID: companyID})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Zero(t, res.Entries)
}

func TestLedgerList_QRSegunModo(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.acceptSubmissions()
	f.validate(f.draft(""), "")

	list, err := f.ledger.List(f.ctx, f.actor, "sent", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-0001", list[0].InvoiceNumber)
	assert.Contains(t, list[0].QRURL, qrBases.Test+"?nif="+issuerNIF)
	assert.Contains(t, list[0].QRURL, "importe=121.41")

	pending, err := f.ledger.List(f.ctx, f.actor, "pending", dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAuditQuery(t *testing.T) {
	f := newFixture(t, fullAudit)
	f.validate(f.draft(""), "")

	events, err := f.ledger.Audit(f.ctx, f.actor, dto.AuditQuery{Action: "validar", From: "2025-03-14", To: "2025-03-14"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entity.AuditOutcomeOK, events[0].Outcome)
	assert.Equal(t, "user-1", events[0].UserID)
	assert.Equal(t, "2025-0001", events[0].Payload["number"])

	none, err := f.ledger.Audit(f.ctx, f.actor, dto.AuditQuery{From: "2025-03-15"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.ledger.Audit(f.ctx, f.actor, dto.AuditQuery{To: "mañana"})
	assert.Error(t, err)
}

func TestRecorder_NivelesDeAuditoria(t *testing.T) {
	basic := newFixture(t, nil)
	basic.validate(basic.draft(""), "")
	assert.Empty(t, basic.audits("", entity.AuditOutcomeOK), "BASIC no guarda éxitos")

	full := newFixture(t, fullAudit)
	full.validate(full.draft(""), "")
	assert.NotEmpty(t, full.audits(entity.AuditActionValidate, entity.AuditOutcomeOK))
	assert.NotEmpty(t, full.audits(entity.AuditActionDocument, entity.AuditOutcomeOK))

	off := newFixture(t, func(p *entity.FiscalPolicy) { p.AuditEnabled = false })
	id := off.draft("")
	off.validate(id, "")
	_, err := off.invoices.Validate(off.ctx, off.actor, id, dto.ValidateInvoiceRequest{})
	require.Error(t, err)
	assert.Empty(t, off.audits("", ""), "auditoría desactivada")
}
