package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Valores por defecto de la numeración de un emisor nuevo.
const (
	DefaultNumberingTemplate = "{SERIE}-{YEAR}-{NUM:04d}"
	DefaultSeries            = "A"
	DefaultRectificationText = "Factura rectificativa emitida conforme al Art. 89 de la Ley 37/1992 del IVA."
	DefaultExemptText        = "Operación exenta de IVA según Ley 37/1992."
	DefaultReducedRateText   = "IVA reducido según normativa vigente."
)

// ReducedRateCeiling tipo máximo (en %) que se considera IVA reducido.
var ReducedRateCeiling = decimal.NewFromInt(10)

// Issuer datos fiscales del emisor de una empresa y el estado de su secuencia.
//
// NextNumber es el siguiente correlativo a emitir en LastNumberedYear. Cuando se
// valida la primera factura de un año, la plantilla y la serie quedan bloqueadas
// (NumberingLocked + LockedYear) hasta que cambie el año.
type Issuer struct {
	CompanyID         string
	Name              string
	TaxID             string // NIF del emisor
	Series            string
	NumberingTemplate string
	NextNumber        int64
	LastNumberedYear  int // 0 = nunca se ha numerado
	NumberingLocked   bool
	LockedYear        int
	RectificationText string
	ExemptText        string // nota sugerida con IVA 0; vacío = texto por defecto
	ReducedRateText   string // nota sugerida con IVA reducido
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NumberingLockedFor informa si plantilla y serie están bloqueadas en year. Una
// validación con fecha de un año posterior mantiene el bloqueo hasta ese año.
func (i *Issuer) NumberingLockedFor(year int) bool {
	return i.NumberingLocked && i.LockedYear >= year
}

// SuggestedTaxNote nota de IVA que debería llevar una factura con el tipo rate:
// texto de exención con IVA 0, texto de IVA reducido hasta ReducedRateCeiling.
// Con el tipo general no hace falta nota (ok = false).
func (i *Issuer) SuggestedTaxNote(rate decimal.Decimal) (note string, ok bool) {
	switch {
	case rate.IsZero():
		return firstNonEmpty(i.ExemptText, DefaultExemptText), true
	case rate.LessThanOrEqual(ReducedRateCeiling):
		return firstNonEmpty(i.ReducedRateText, DefaultReducedRateText), true
	default:
		return "", false
	}
}

func firstNonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
