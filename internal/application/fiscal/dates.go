package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
)

// DateLayout formato de fechas de factura en la API.
const DateLayout = "2006-01-02"

// CivilDate fecha de calendario de t en loc, representada como medianoche UTC.
// Es la forma en que se guardan y comparan las fechas de factura.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate interpreta YYYY-MM-DD; vacío devuelve today.
func ParseDate(s string, today time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return today, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha %q (formato YYYY-MM-DD)", domain.ErrInvalidInput, s)
	}
	return d, nil
}

// FormatDate fecha civil en formato de la API.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
