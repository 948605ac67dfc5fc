package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var _ repository.PolicyRepository = (*PolicyRepo)(nil)

// PolicyRepo política fiscal (una fila por empresa).
type PolicyRepo struct {
	q Querier
}

func NewPolicyRepository(q Querier) *PolicyRepo {
	return &PolicyRepo{q: q}
}

func (r *PolicyRepo) Get(ctx context.Context, companyID string) (*entity.FiscalPolicy, error) {
	query := `
		SELECT company_id, immutable_validated, forbid_validated_deletion, block_past_dates,
		       compliance_mode, COALESCE(compliance_url, ''), audit_enabled, audit_level, updated_at
		FROM fiscal_policies WHERE company_id = $1`
	var p entity.FiscalPolicy
	err := r.q.QueryRow(ctx, query, companyID).Scan(
		&p.CompanyID, &p.ImmutableValidated, &p.ForbidValidatedDeletion, &p.BlockPastDates,
		&p.ComplianceMode, &p.ComplianceURL, &p.AuditEnabled, &p.AuditLevel, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal policy: %w", err)
	}
	return &p, nil
}

// Save upsert por company_id.
func (r *PolicyRepo) Save(ctx context.Context, p *entity.FiscalPolicy) error {
	query := `
		INSERT INTO fiscal_policies (company_id, immutable_validated, forbid_validated_deletion, block_past_dates,
		                             compliance_mode, compliance_url, audit_enabled, audit_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company_id) DO UPDATE
		SET immutable_validated       = EXCLUDED.immutable_validated,
		    forbid_validated_deletion = EXCLUDED.forbid_validated_deletion,
		    block_past_dates          = EXCLUDED.block_past_dates,
		    compliance_mode           = EXCLUDED.compliance_mode,
		    compliance_url            = EXCLUDED.compliance_url,
		    audit_enabled             = EXCLUDED.audit_enabled,
		    audit_level               = EXCLUDED.audit_level,
		    updated_at                = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		p.CompanyID, p.ImmutableValidated, p.ForbidValidatedDeletion, p.BlockPastDates,
		p.ComplianceMode, nullIfEmpty(p.ComplianceURL), p.AuditEnabled, p.AuditLevel, p.UpdatedAt,
	)
	if err != nil {
		return writeErr("save fiscal policy", err)
	}
	return nil
}
