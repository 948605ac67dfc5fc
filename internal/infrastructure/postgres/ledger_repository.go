package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo registro fiscal encadenado. La tabla solo admite INSERT y el
// cambio de estado de envío (lo impone un trigger).
type LedgerRepo struct {
	q Querier
}

func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `
	id, company_id, invoice_id, invoice_number, invoice_date, invoice_total,
	issuer_tax_id, hash, previous_hash, registered_at,
	submission_status, COALESCE(submission_error, ''), submitted_at`

// Append inserta el registro. UNIQUE(invoice_id) y UNIQUE(company_id, previous_hash)
// impiden duplicar o bifurcar la cadena.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, company_id, invoice_id, invoice_number, invoice_date, invoice_total,
		                            issuer_tax_id, hash, previous_hash, registered_at, submission_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.InvoiceID, e.InvoiceNumber, e.InvoiceDate, e.InvoiceTotal,
		e.IssuerTaxID, e.Hash, e.PreviousHash, e.RegisteredAt, e.SubmissionStatus,
	)
	if err != nil {
		return writeErr("insert ledger entry", err)
	}
	return nil
}

func (r *LedgerRepo) Last(ctx context.Context, companyID string) (*entity.LedgerEntry, error) {
	return r.getOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE company_id = $1 ORDER BY registered_at DESC LIMIT 1`, companyID)
}

func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	return r.getOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`, id)
}

func (r *LedgerRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.LedgerEntry, error) {
	return r.getOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE invoice_id = $1`, invoiceID)
}

func (r *LedgerRepo) getOne(ctx context.Context, query string, args ...any) (*entity.LedgerEntry, error) {
	e, err := scanLedgerEntry(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// UpdateSubmission PENDING → status, una sola vez.
func (r *LedgerRepo) UpdateSubmission(ctx context.Context, id, status, detail string, at time.Time) error {
	query := `
		UPDATE ledger_entries
		SET submission_status = $2, submission_error = $3, submitted_at = $4
		WHERE id = $1 AND submission_status = $5`
	cmd, err := r.q.Exec(ctx, query, id, status, nullIfEmpty(detail), at, entity.SubmissionPending)
	if err != nil {
		return writeErr("update submission", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("%w: registro fiscal %s", domain.ErrNotFound, id)
	}
	return fmt.Errorf("%w: el registro %s ya está en %s", domain.ErrInvalidInput, id, cur.SubmissionStatus)
}

// ListByCompany registros en orden de registro ascendente.
func (r *LedgerRepo) ListByCompany(ctx context.Context, companyID string, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE company_id = $1`
	args := []any{companyID}
	pos := 2
	if f.SubmissionStatus != "" {
		query += fmt.Sprintf(" AND submission_status = $%d", pos)
		args = append(args, f.SubmissionStatus)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY registered_at ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var (
		e           entity.LedgerEntry
		submittedAt *time.Time
	)
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.InvoiceID, &e.InvoiceNumber, &e.InvoiceDate, &e.InvoiceTotal,
		&e.IssuerTaxID, &e.Hash, &e.PreviousHash, &e.RegisteredAt,
		&e.SubmissionStatus, &e.SubmissionError, &submittedAt,
	)
	if err != nil {
		return nil, err
	}
	e.InvoiceDate = e.InvoiceDate.UTC()
	e.RegisteredAt = e.RegisteredAt.UTC()
	e.SubmittedAt = utcPtr(submittedAt)
	return &e, nil
}
