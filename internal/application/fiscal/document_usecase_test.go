package fiscal_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
)

func TestDownload_UsaElDocumentoGuardado(t *testing.T) {
	f := newFixture(t, testMode("https://verifactu.test/api"))
	f.acceptSubmissions()
	res := f.validate(f.draft(""), "")
	require.Equal(t, 1, f.renderer.calls, "render tras validar")
	assert.Contains(t, f.renderer.last.QRURL, "numserie=2025-0001")
	require.NotNil(t, f.renderer.last.Entry)

	pdf, name, err := f.documents.Download(f.ctx, f.actor, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "factura_2025-0001.pdf", name)
	assert.Equal(t, "%PDF-1.4 2025-0001", string(pdf))
	assert.Equal(t, 1, f.renderer.calls, "no se vuelve a generar")
}

func TestDownload_GeneraSiNoExiste(t *testing.T) {
	f := newFixture(t, nil)
	f.renderer.err = errBoom
	res := f.validate(f.draft(""), "")

	_, _, err := f.documents.Download(f.ctx, f.actor, res.InvoiceID)
	require.Error(t, err)

	f.renderer.err = nil
	pdf, _, err := f.documents.Download(f.ctx, f.actor, res.InvoiceID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Empty(t, f.renderer.last.QRURL, "sin registro fiscal no hay QR")
}

func TestDownload_Rectificativa(t *testing.T) {
	f := newFixture(t, nil)
	orig := f.validate(f.draft(""), "")
	void, err := f.invoices.Void(f.ctx, f.actor, orig.InvoiceID)
	require.NoError(t, err)

	_, name, err := f.documents.Download(f.ctx, f.actor, void.RectificationID)
	require.NoError(t, err)
	assert.Equal(t, "factura_2025-0001R.pdf", name)
	require.NotNil(t, f.renderer.last.Original)
	assert.Equal(t, "2025-0001", f.renderer.last.Original.Number)
}

func TestDownload_BorradorNoTienePDF(t *testing.T) {
	f := newFixture(t, nil)
	_, _, err := f.documents.Download(f.ctx, f.actor, f.draft(""))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, _, err = f.documents.Download(f.ctx, f.actor, "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
