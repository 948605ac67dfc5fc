package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// Customer destinatario de facturas. El NIF se guarda normalizado y es único por empresa.
type Customer struct {
	ID        string
	CompanyID string
	Name      string
	TaxID     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCustomer normaliza nombre, NIF y email; nombre y NIF son obligatorios.
func NewCustomer(companyID, name, taxID, email string, now time.Time) (*Customer, error) {
	c := &Customer{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      strings.Join(strings.Fields(name), " "),
		TaxID:     verifactu.NormalizeTaxID(taxID),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.Name == "" || c.TaxID == "" {
		return nil, fmt.Errorf("%w: nombre y NIF son obligatorios", domain.ErrInvalidInput)
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return nil, fmt.Errorf("%w: email %q no válido", domain.ErrInvalidInput, email)
	}
	return c, nil
}
