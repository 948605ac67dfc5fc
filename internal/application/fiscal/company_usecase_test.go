package fiscal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

func TestCompany_CreateConPoliticaPorDefecto(t *testing.T) {
	f := newFixture(t, nil)
	uc := fiscal.NewCompanyUseCase(f.store.Companies(), f.settings, f.clock.Now)

	out, err := uc.Create(f.ctx, dto.CreateCompanyRequest{ID: "company-2", Name: "  Beta SL "})
	require.NoError(t, err)
	assert.Equal(t, "company-2", out.ID)
	assert.Equal(t, "Beta SL", out.Name)
	assert.Equal(t, "active", out.Status)

	p, err := f.store.Policies().Get(f.ctx, "company-2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, entity.ComplianceModeOff, p.ComplianceMode)
	assert.True(t, p.ImmutableValidated)

	_, err = uc.Create(f.ctx, dto.CreateCompanyRequest{ID: "company-2", Name: "Otra"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.Create(f.ctx, dto.CreateCompanyRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompany_Current(t *testing.T) {
	f := newFixture(t, nil)
	uc := fiscal.NewCompanyUseCase(f.store.Companies(), f.settings, f.clock.Now)

	out, err := uc.Current(f.ctx, f.actor)
	require.NoError(t, err)
	assert.Equal(t, companyID, out.ID)

	_, err = uc.Current(f.ctx, entity.Actor{CompanyID: "nadie"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
