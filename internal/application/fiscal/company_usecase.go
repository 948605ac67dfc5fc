package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// CompanyUseCase alta y consulta de empresas (tenants).
type CompanyUseCase struct {
	repo     repository.CompanyRepository
	settings *SettingsUseCase
	now      Clock
}

// NewCompanyUseCase construye el caso de uso.
func NewCompanyUseCase(repo repository.CompanyRepository, settings *SettingsUseCase, now Clock) *CompanyUseCase {
	if now == nil {
		now = time.Now
	}
	return &CompanyUseCase{repo: repo, settings: settings, now: now}
}

// Create da de alta una empresa con la política fiscal por defecto.
// Devuelve domain.ErrDuplicate si el ID ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre de la empresa es obligatorio", domain.ErrInvalidInput)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}
	existing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("buscar empresa: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: empresa %s", domain.ErrDuplicate, id)
	}
	now := uc.now().UTC()
	company := &entity.Company{
		ID:        id,
		Name:      name,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	if err := uc.settings.EnsureDefaults(ctx, company.ID); err != nil {
		return nil, err
	}
	return toCompanyResponse(company), nil
}

// Current empresa del actor.
func (uc *CompanyUseCase) Current(ctx context.Context, actor entity.Actor) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("obtener empresa: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: empresa %s", domain.ErrNotFound, actor.CompanyID)
	}
	return toCompanyResponse(company), nil
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
