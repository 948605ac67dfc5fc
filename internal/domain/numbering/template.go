// Package numbering: plantillas de numeración de facturas.
//
// Marcadores admitidos:
//
//	{SERIE} {SERIES}   serie de facturación del emisor
//	{YEAR}  {AÑO}      año de la fecha de la factura (4 dígitos)
//	{MES}   {MONTH}    mes de la fecha (2 dígitos)
//	{NUM:0Nd}          correlativo con relleno de ceros a N dígitos (1..12)
//	{NUMERO}           correlativo sin relleno
//
// Una plantilla válida contiene exactamente un marcador de correlativo. La
// validación se hace al guardar la configuración; Format no falla nunca.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
)

const maxWidth = 12

var numPattern = regexp.MustCompile(`^NUM:0(\d{1,2})d$`)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segSeries
	segYear
	segMonth
	segNumber
)

type segment struct {
	kind    segmentKind
	literal string
	width   int // 0 = sin relleno
}

// Template plantilla ya validada.
type Template struct {
	raw      string
	segments []segment
}

// Parse valida la plantilla. Los errores envuelven domain.ErrConfiguration.
func Parse(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: la plantilla de numeración está vacía", domain.ErrConfiguration)
	}

	t := &Template{raw: raw}
	counters := 0
	rest := raw
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			t.segments = append(t.segments, segment{kind: segLiteral, literal: rest})
			break
		}
		if open > 0 {
			t.segments = append(t.segments, segment{kind: segLiteral, literal: rest[:open]})
		}
		closeIdx := strings.IndexByte(rest[open:], '}')
		if closeIdx < 0 {
			return nil, fmt.Errorf("%w: marcador sin cerrar en %q", domain.ErrConfiguration, raw)
		}
		name := rest[open+1 : open+closeIdx]
		seg, err := placeholder(name)
		if err != nil {
			return nil, err
		}
		if seg.kind == segNumber {
			counters++
		}
		t.segments = append(t.segments, seg)
		rest = rest[open+closeIdx+1:]
	}

	switch {
	case counters == 0:
		return nil, fmt.Errorf("%w: la plantilla %q no contiene el correlativo ({NUM:0Nd} o {NUMERO})", domain.ErrConfiguration, raw)
	case counters > 1:
		return nil, fmt.Errorf("%w: la plantilla %q contiene más de un correlativo", domain.ErrConfiguration, raw)
	}
	return t, nil
}

func placeholder(name string) (segment, error) {
	switch name {
	case "SERIE", "SERIES":
		return segment{kind: segSeries}, nil
	case "YEAR", "AÑO":
		return segment{kind: segYear}, nil
	case "MES", "MONTH":
		return segment{kind: segMonth}, nil
	case "NUMERO":
		return segment{kind: segNumber}, nil
	}
	if m := numPattern.FindStringSubmatch(name); m != nil {
		width, _ := strconv.Atoi(m[1])
		if width < 1 || width > maxWidth {
			return segment{}, fmt.Errorf("%w: ancho de correlativo fuera de rango en {%s}", domain.ErrConfiguration, name)
		}
		return segment{kind: segNumber, width: width}, nil
	}
	return segment{}, fmt.Errorf("%w: marcador desconocido {%s}", domain.ErrConfiguration, name)
}

// Validate comprueba una plantilla sin conservarla.
func Validate(raw string) error {
	_, err := Parse(raw)
	return err
}

// String devuelve la plantilla original.
func (t *Template) String() string { return t.raw }

// Format compone el número de factura.
func (t *Template) Format(series string, date time.Time, correlative int64) string {
	var b strings.Builder
	for _, s := range t.segments {
		switch s.kind {
		case segLiteral:
			b.WriteString(s.literal)
		case segSeries:
			b.WriteString(series)
		case segYear:
			fmt.Fprintf(&b, "%04d", date.Year())
		case segMonth:
			fmt.Fprintf(&b, "%02d", int(date.Month()))
		case segNumber:
			if s.width > 0 {
				fmt.Fprintf(&b, "%0*d", s.width, correlative)
			} else {
				b.WriteString(strconv.FormatInt(correlative, 10))
			}
		}
	}
	return b.String()
}
