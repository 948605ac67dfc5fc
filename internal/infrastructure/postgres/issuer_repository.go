package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var _ repository.IssuerRepository = (*IssuerRepo)(nil)

// IssuerRepo emisor y secuencia de numeración por empresa.
type IssuerRepo struct {
	q Querier
}

// NewIssuerRepository construye el adaptador. GetForUpdate solo tiene sentido con una tx.
func NewIssuerRepository(q Querier) *IssuerRepo {
	return &IssuerRepo{q: q}
}

const issuerSelect = `
	SELECT company_id, name, tax_id, series, numbering_template, next_number,
	       last_numbered_year, numbering_locked, locked_year, rectification_text,
	       exempt_text, reduced_rate_text, created_at, updated_at
	FROM issuers WHERE company_id = $1`

func (r *IssuerRepo) Get(ctx context.Context, companyID string) (*entity.Issuer, error) {
	return r.get(ctx, issuerSelect, companyID)
}

// GetForUpdate bloquea la fila del emisor (SELECT ... FOR UPDATE) hasta el fin de la tx.
func (r *IssuerRepo) GetForUpdate(ctx context.Context, companyID string) (*entity.Issuer, error) {
	return r.get(ctx, issuerSelect+` FOR UPDATE`, companyID)
}

func (r *IssuerRepo) get(ctx context.Context, query, companyID string) (*entity.Issuer, error) {
	var i entity.Issuer
	err := r.q.QueryRow(ctx, query, companyID).Scan(
		&i.CompanyID, &i.Name, &i.TaxID, &i.Series, &i.NumberingTemplate, &i.NextNumber,
		&i.LastNumberedYear, &i.NumberingLocked, &i.LockedYear, &i.RectificationText,
		&i.ExemptText, &i.ReducedRateText, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuer: %w", err)
	}
	return &i, nil
}

// Save upsert por company_id.
func (r *IssuerRepo) Save(ctx context.Context, i *entity.Issuer) error {
	query := `
		INSERT INTO issuers (company_id, name, tax_id, series, numbering_template, next_number,
		                     last_numbered_year, numbering_locked, locked_year, rectification_text,
		                     exempt_text, reduced_rate_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id) DO UPDATE
		SET name               = EXCLUDED.name,
		    tax_id             = EXCLUDED.tax_id,
		    series             = EXCLUDED.series,
		    numbering_template = EXCLUDED.numbering_template,
		    next_number        = EXCLUDED.next_number,
		    last_numbered_year = EXCLUDED.last_numbered_year,
		    numbering_locked   = EXCLUDED.numbering_locked,
		    locked_year        = EXCLUDED.locked_year,
		    rectification_text = EXCLUDED.rectification_text,
		    exempt_text        = EXCLUDED.exempt_text,
		    reduced_rate_text  = EXCLUDED.reduced_rate_text,
		    updated_at         = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		i.CompanyID, i.Name, i.TaxID, i.Series, i.NumberingTemplate, i.NextNumber,
		i.LastNumberedYear, i.NumberingLocked, i.LockedYear, i.RectificationText,
		i.ExemptText, i.ReducedRateText, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		return writeErr("save issuer", err)
	}
	return nil
}
