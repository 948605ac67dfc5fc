package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/numbering"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// Allocator asigna números de factura por empresa y año.
//
// Debe usarse dentro de la transacción que leyó el emisor con GetForUpdate:
// el cambio de año, el formateo y el incremento se guardan junto con la
// validación o no se guardan.
type Allocator struct{}

// NewAllocator construye el allocator.
func NewAllocator() *Allocator { return &Allocator{} }

// Peek devuelve el número que recibiría una factura fechada en date, sin consumirlo.
func (a *Allocator) Peek(issuer *entity.Issuer, date time.Time) (string, error) {
	tpl, correlative, err := a.next(issuer, date)
	if err != nil {
		return "", err
	}
	return tpl.Format(issuer.Series, date, correlative), nil
}

// Allocate formatea el siguiente número, avanza el correlativo y bloquea
// plantilla y serie para el año de date. Persiste el emisor con issuers.
func (a *Allocator) Allocate(ctx context.Context, issuers repository.IssuerRepository, issuer *entity.Issuer, date time.Time) (string, error) {
	tpl, correlative, err := a.next(issuer, date)
	if err != nil {
		return "", err
	}
	number := tpl.Format(issuer.Series, date, correlative)

	issuer.LastNumberedYear = date.Year()
	issuer.NextNumber = correlative + 1
	issuer.NumberingLocked = true
	issuer.LockedYear = date.Year()
	if err := issuers.Save(ctx, issuer); err != nil {
		return "", fmt.Errorf("guardar secuencia: %w", err)
	}
	return number, nil
}

// next resuelve plantilla y correlativo aplicando el reinicio anual.
func (a *Allocator) next(issuer *entity.Issuer, date time.Time) (*numbering.Template, int64, error) {
	if issuer == nil {
		return nil, 0, fmt.Errorf("%w: la empresa no tiene emisor configurado", domain.ErrConfiguration)
	}
	raw := strings.TrimSpace(issuer.NumberingTemplate)
	if raw == "" {
		raw = entity.DefaultNumberingTemplate
	}
	tpl, err := numbering.Parse(raw)
	if err != nil {
		return nil, 0, err
	}

	year := date.Year()
	correlative := issuer.NextNumber
	switch {
	case issuer.LastNumberedYear == 0 || year > issuer.LastNumberedYear:
		correlative = 1
	case year < issuer.LastNumberedYear:
		return nil, 0, fmt.Errorf("%w: no se puede numerar en %d, la numeración ya avanzó a %d", domain.ErrValidation, year, issuer.LastNumberedYear)
	}
	if correlative < 1 {
		correlative = 1
	}
	return tpl, correlative, nil
}
