package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, company_id, customer_id, number, date,
	subtotal, tax_rate, tax_amount, total, status,
	COALESCE(tax_note, ''), COALESCE(ledger_hash, ''), original_invoice_id,
	validated_at, created_at, updated_at`

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, company_id, customer_id, number, date, subtotal, tax_rate, tax_amount, total,
		                      status, tax_note, ledger_hash, original_invoice_id, validated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.CustomerID, nullIfEmpty(inv.Number), inv.Date,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.Status, nullIfEmpty(inv.TaxNote), nullIfEmpty(inv.LedgerHash), nullIfEmpty(inv.OriginalInvoiceID),
		inv.ValidatedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert invoice", err)
	}
	return nil
}

// Update persiste la cabecera completa. El trigger de la tabla rechaza cambios
// sobre facturas con registro fiscal salvo el paso a VOIDED.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET customer_id  = $2,
		    number       = $3,
		    date         = $4,
		    subtotal     = $5,
		    tax_rate     = $6,
		    tax_amount   = $7,
		    total        = $8,
		    status       = $9,
		    tax_note     = $10,
		    ledger_hash  = $11,
		    validated_at = $12,
		    updated_at   = $13
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		inv.ID, inv.CustomerID, nullIfEmpty(inv.Number), inv.Date,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.Status, nullIfEmpty(inv.TaxNote), nullIfEmpty(inv.LedgerHash),
		inv.ValidatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return writeErr("update invoice", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, inv.ID)
	}
	return nil
}

// Delete borra la factura y sus líneas. La FK del registro fiscal lo impide si existe.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return writeErr("delete invoice", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	return nil
}

// GetByID obtiene una factura por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *InvoiceRepo) GetByNumber(ctx context.Context, companyID, number string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE company_id = $1 AND number = $2`, companyID, number)
}

func (r *InvoiceRepo) GetRectificationOf(ctx context.Context, originalID string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE original_invoice_id = $1`, originalID)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// ListByCompany facturas de la empresa, más recientes primero.
func (r *InvoiceRepo) ListByCompany(ctx context.Context, companyID string, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1`
	args := []any{companyID}
	pos := 2
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, f.Status)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// ReplaceLines borra las líneas actuales e inserta las nuevas en un batch.
func (r *InvoiceRepo) ReplaceLines(ctx context.Context, invoiceID string, lines []*entity.InvoiceLine) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID); err != nil {
		return writeErr("delete invoice lines", err)
	}
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		batch.Queue(`
			INSERT INTO invoice_lines (id, invoice_id, position, description, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.ID, invoiceID, l.Position, l.Description, l.Quantity, l.UnitPrice, l.Total,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range lines {
		if _, err := br.Exec(); err != nil {
			return writeErr("insert invoice line", err)
		}
	}
	return nil
}

// GetLines líneas de la factura por posición.
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, position, description, quantity, unit_price, total
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Position, &l.Description, &l.Quantity, &l.UnitPrice, &l.Total); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// LastValidatedDate fecha máxima de las facturas ya numeradas de la empresa.
func (r *InvoiceRepo) LastValidatedDate(ctx context.Context, companyID string) (*time.Time, error) {
	query := `SELECT MAX(date) FROM invoices WHERE company_id = $1 AND status <> $2`
	var last *time.Time
	if err := r.q.QueryRow(ctx, query, companyID, entity.InvoiceStatusDraft).Scan(&last); err != nil {
		return nil, fmt.Errorf("last validated date: %w", err)
	}
	return utcPtr(last), nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var (
		inv            entity.Invoice
		number, origID *string
		validatedAt    *time.Time
	)
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &number, &inv.Date,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &inv.Status,
		&inv.TaxNote, &inv.LedgerHash, &origID,
		&validatedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Number = derefStr(number)
	inv.OriginalInvoiceID = derefStr(origID)
	inv.Date = inv.Date.UTC()
	inv.ValidatedAt = utcPtr(validatedAt)
	return &inv, nil
}
