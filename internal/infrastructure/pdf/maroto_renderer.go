// Package pdf genera la representación impresa de las facturas validadas y
// rectificativas (Veri*Factu).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + NIF        │  N° Factura + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINATARIO: Nombre + NIF + email                          │
//	│  RECTIFICA A: N° original + fecha (solo rectificativas)      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Importe                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Base imponible / IVA % / TOTAL                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  NOTA LEGAL (IVA / rectificación)                            │
//	│  FOOTER VERI*FACTU: QR de cotejo + huella                    │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorAlert   = &props.Color{Red: 160, Green: 20, Blue: 20}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

var _ fiscal.DocumentRenderer = (*MarotoRenderer)(nil)

// MarotoRenderer implementa fiscal.DocumentRenderer usando Maroto v2.
type MarotoRenderer struct{}

// NewMarotoRenderer construye el generador.
func NewMarotoRenderer() *MarotoRenderer { return &MarotoRenderer{} }

// RenderInvoice genera el PDF y devuelve sus bytes.
func (g *MarotoRenderer) RenderInvoice(_ context.Context, doc fiscal.InvoiceDocument) ([]byte, error) {
	if doc.Invoice == nil || doc.Issuer == nil || doc.Customer == nil {
		return nil, fmt.Errorf("pdf: documento incompleto")
	}
	title := "Factura"
	if doc.Invoice.IsRectification() {
		title = "Factura rectificativa"
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title+" "+doc.Invoice.Number, true).
		WithAuthor(doc.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc.Invoice, doc.Issuer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(doc.Customer))
	if doc.Invoice.IsRectification() {
		m.AddRows(rectifiesRow(doc.Invoice, doc.Original))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(doc.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc.Invoice))

	if note := strings.TrimSpace(doc.Invoice.TaxNote); note != "" {
		m.AddRows(noteRow(note))
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(verifactuFooterRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor + NIF (izq) y N° Factura + Fecha (der).
func headerRow(inv *entity.Invoice, issuer *entity.Issuer) core.Row {
	kind := "FACTURA"
	if inv.IsRectification() {
		kind = "FACTURA RECTIFICATIVA"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIF: "+issuer.TaxID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(kind, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Nº "+inv.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha de expedición: "+inv.Date.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// customerRow: datos del destinatario.
func customerRow(customer *entity.Customer) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("DESTINATARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(customer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("NIF: %s   |   Email: %s",
				customer.TaxID,
				nonEmpty(customer.Email, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// rectifiesRow: referencia a la factura rectificada.
func rectifiesRow(inv *entity.Invoice, original *entity.Invoice) core.Row {
	ref := inv.OriginalInvoiceID
	if original != nil {
		ref = fmt.Sprintf("%s de fecha %s", original.Number, original.Date.Format("02/01/2006"))
	}
	return row.New(8).Add(col.New(12).Add(
		text.New("Rectifica a la factura Nº "+ref, props.Text{
			Style: fontstyle.Bold, Size: 9, Color: colorAlert, Top: 2,
		}),
	))
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("Precio unit.", 2, align.Right),
		h("Importe", 3, align.Right),
	)
}

// tableLineRows: una fila por línea.
func tableLineRows(lines []*entity.InvoiceLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				formatEuro(l.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				formatEuro(l.Total),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top,
		})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := func(s string, right float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: right, Top: 14,
		})
	}

	return row.New(22).Add(
		col.New(6),
		col.New(3).Add(
			label("Base imponible:", 2),
			label(fmt.Sprintf("IVA %s%%:", inv.TaxRate.String()), 8),
			grand("TOTAL:", 2),
		),
		col.New(3).Add(
			value(formatEuro(inv.Subtotal), 2),
			value(formatEuro(inv.TaxAmount), 8),
			grand(formatEuro(inv.Total), 1),
		),
	)
}

// noteRow: mensaje legal de IVA o de rectificación.
func noteRow(note string) core.Row {
	return row.New(14).Add(col.New(12).Add(
		text.New(note, props.Text{Size: 7.5, Top: 3, Color: colorGray}),
	))
}

// verifactuFooterRows: QR de cotejo + huella del registro, o la leyenda sin registro.
func verifactuFooterRows(doc fiscal.InvoiceDocument) []core.Row {
	if doc.Entry == nil {
		return []core.Row{row.New(8).Add(col.New(12).Add(
			text.New("Factura emitida sin registro Veri*Factu.", props.Text{
				Size: 7, Align: align.Center, Color: colorGray, Top: 2,
			}),
		))}
	}

	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("VERI*FACTU", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	if doc.QRURL != "" {
		rows = append(rows, row.New(40).Add(
			col.New(3).Add(code.NewQr(doc.QRURL, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(9).Add(
				text.New("Factura verificable en la sede electrónica de la AEAT.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("Escanee el código QR para cotejar los datos del registro.", props.Text{
					Size: 7, Top: 10, Left: 3, Color: colorGray,
				}),
			),
		))
	}
	rows = append(rows, row.New(5).Add(col.New(12).Add(
		text.New("Huella del registro (SHA-256):", props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
	)))
	for _, chunk := range splitEvery(doc.Entry.Hash, 64) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatEuro formato español con dos decimales.
// Ej: 1210.5 → "1.210,50 €", -45.4 → "-45,40 €"
func formatEuro(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	out := groupThousands(intPart) + "," + frac + " €"
	if d.Round(2).IsNegative() {
		return "-" + out
	}
	return out
}

// groupThousands inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
