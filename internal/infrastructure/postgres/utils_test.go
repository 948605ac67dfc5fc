package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
)

func TestWriteErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"número duplicado", &pgconn.PgError{Code: "23505", ConstraintName: "invoices_company_number_key"}, domain.ErrDuplicate},
		{"factura con registro fiscal", &pgconn.PgError{Code: "23503"}, domain.ErrBlocked},
		{"trigger de inmutabilidad", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "P0001", Message: "ledger_entries es append-only"}), domain.ErrBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(writeErr("op", tt.err), tt.want))
		})
	}

	other := writeErr("insert invoice", errors.New("conexión cerrada"))
	assert.False(t, errors.Is(other, domain.ErrDuplicate))
	assert.Contains(t, other.Error(), "insert invoice")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(errors.New("ERROR: duplicate key (SQLSTATE 23505)")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestHelpers(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", *nullIfEmpty("x"))
	assert.Equal(t, "", derefStr(nil))
	assert.True(t, isNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))

	madrid := time.FixedZone("CET", 3600)
	local := time.Date(2025, 3, 14, 11, 0, 0, 0, madrid)
	got := utcPtr(&local)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
	assert.Nil(t, utcPtr(nil))
}
