package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

func TestNewCustomer_Normaliza(t *testing.T) {
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	c, err := entity.NewCustomer("co-1", "  Cliente   Uno ", " 12345678z ", " Facturas@Cliente.ES ", now)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "co-1", c.CompanyID)
	assert.Equal(t, "Cliente Uno", c.Name)
	assert.Equal(t, "12345678Z", c.TaxID)
	assert.Equal(t, "facturas@cliente.es", c.Email)
	assert.Equal(t, now, c.CreatedAt)
}

func TestNewCustomer_DatosObligatorios(t *testing.T) {
	tests := []struct {
		name, customer, taxID, email string
	}{
		{"sin nombre", "  ", "12345678Z", ""},
		{"sin NIF", "Cliente", " ", ""},
		{"email sin arroba", "Cliente", "12345678Z", "cliente.es"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entity.NewCustomer("co-1", tt.customer, tt.taxID, tt.email, time.Now())
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
