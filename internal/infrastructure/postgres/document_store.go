package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
)

var _ fiscal.DocumentStore = (*DocumentStore)(nil)

// DocumentStore PDFs generados (tabla invoice_documents, uno por factura).
type DocumentStore struct {
	q Querier
}

func NewDocumentStore(q Querier) *DocumentStore {
	return &DocumentStore{q: q}
}

// SaveDocument guarda o reemplaza el PDF de la factura.
func (s *DocumentStore) SaveDocument(ctx context.Context, companyID, invoiceID string, pdf []byte, at time.Time) error {
	query := `
		INSERT INTO invoice_documents (invoice_id, company_id, pdf, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (invoice_id) DO UPDATE SET pdf = EXCLUDED.pdf, created_at = EXCLUDED.created_at`
	if _, err := s.q.Exec(ctx, query, invoiceID, companyID, pdf, at); err != nil {
		return writeErr("save invoice document", err)
	}
	return nil
}

func (s *DocumentStore) GetDocument(ctx context.Context, invoiceID string) ([]byte, error) {
	var pdf []byte
	err := s.q.QueryRow(ctx, `SELECT pdf FROM invoice_documents WHERE invoice_id = $1`, invoiceID).Scan(&pdf)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: documento de %s", domain.ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("get invoice document: %w", err)
	}
	return pdf, nil
}
