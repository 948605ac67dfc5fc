package numbering_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/numbering"
)

var march2025 = time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	cases := []struct {
		name     string
		template string
		series   string
		n        int64
		want     string
	}{
		{"basico", "{YEAR}-{NUM:04d}", "A", 1, "2025-0001"},
		{"serie", "{SERIE}-{YEAR}-{NUM:04d}", "B", 27, "B-2025-0027"},
		{"año y mes", "F{AÑO}{MES}/{NUM:06d}", "", 3, "F202503/000003"},
		{"sin relleno", "{SERIES}{NUMERO}", "X", 12345, "X12345"},
		{"desborda ancho", "{NUM:02d}", "", 123, "123"},
		{"month alias", "{YEAR}.{MONTH}.{NUM:03d}", "", 9, "2025.03.009"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := numbering.Parse(tc.template)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tpl.Format(tc.series, march2025, tc.n))
			assert.Equal(t, tc.template, tpl.String())
		})
	}
}

func TestParse_Rechaza(t *testing.T) {
	cases := map[string]string{
		"vacía":               "  ",
		"sin correlativo":     "{SERIE}-{YEAR}",
		"dos correlativos":    "{NUM:04d}-{NUMERO}",
		"marcador sin cerrar": "{YEAR}-{NUM:04d",
		"desconocido":         "{YEAR}-{FOO}-{NUM:04d}",
		"ancho cero":          "{NUM:00d}",
		"sin cero inicial":    "{NUM:4d}",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := numbering.Validate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "debe ser error de configuración")
		})
	}
}
