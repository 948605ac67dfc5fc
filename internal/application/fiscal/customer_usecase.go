package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

// CustomerUseCase casos de uso para clientes (destinatarios de factura).
type CustomerUseCase struct {
	repo repository.CustomerRepository
	now  Clock
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(repo repository.CustomerRepository, now Clock) *CustomerUseCase {
	if now == nil {
		now = time.Now
	}
	return &CustomerUseCase{repo: repo, now: now}
}

// Create crea un nuevo cliente. El NIF es único por empresa.
func (uc *CustomerUseCase) Create(ctx context.Context, actor entity.Actor, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	customer, err := entity.NewCustomer(actor.CompanyID, in.Name, in.TaxID, in.Email, uc.now().UTC())
	if err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetByCompanyAndTaxID(ctx, actor.CompanyID, customer.TaxID)
	if err != nil {
		return nil, fmt.Errorf("buscar cliente: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: ya existe un cliente con NIF %s", domain.ErrDuplicate, customer.TaxID)
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

// List lista clientes de la empresa.
func (uc *CustomerUseCase) List(ctx context.Context, actor entity.Actor, page dto.PageRequest) ([]*dto.CustomerResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByCompany(ctx, actor.CompanyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:        c.ID,
		CompanyID: c.CompanyID,
		Name:      c.Name,
		TaxID:     c.TaxID,
		Email:     c.Email,
	}
}
