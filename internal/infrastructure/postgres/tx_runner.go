package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
)

// Ensure TxRunner implements fiscal.FiscalTxRunner.
var _ fiscal.FiscalTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunFiscal inicia una transacción READ COMMITTED, ejecuta fn con repos atados
// a la tx y hace Commit o Rollback. La serialización por empresa la aporta
// IssuerRepo.GetForUpdate.
func (r *TxRunner) RunFiscal(ctx context.Context, fn func(repos fiscal.TxRepos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := fiscal.TxRepos{
		Invoices: NewInvoiceRepository(tx),
		Issuers:  NewIssuerRepository(tx),
		Ledger:   NewLedgerRepository(tx),
		Policies: NewPolicyRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
