package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
)

var (
	_ repository.CompanyRepository  = (*CompanyRepo)(nil)
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
	_ repository.InvoiceRepository  = (*InvoiceRepo)(nil)
	_ repository.IssuerRepository   = (*IssuerRepo)(nil)
	_ repository.PolicyRepository   = (*PolicyRepo)(nil)
	_ repository.LedgerRepository   = (*LedgerRepo)(nil)
)

// ── Companies ────────────────────────────────────────────────────────────────

// CompanyRepo empresas.
type CompanyRepo struct{ a access }

func (r *CompanyRepo) Create(_ context.Context, c *entity.Company) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.companies[c.ID]; ok {
			return fmt.Errorf("%w: empresa %s", domain.ErrDuplicate, c.ID)
		}
		s.companies[c.ID] = *c
		return nil
	})
}

func (r *CompanyRepo) GetByID(_ context.Context, id string) (out *entity.Company, err error) {
	err = r.a.read(func(s *state) error {
		if c, ok := s.companies[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

// ── Customers ────────────────────────────────────────────────────────────────

// CustomerRepo clientes.
type CustomerRepo struct{ a access }

func (r *CustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	return r.a.write(func(s *state) error {
		for _, e := range s.customers {
			if e.CompanyID == c.CompanyID && e.TaxID == c.TaxID {
				return fmt.Errorf("%w: cliente con NIF %s", domain.ErrDuplicate, c.TaxID)
			}
		}
		s.customers[c.ID] = *c
		return nil
	})
}

func (r *CustomerRepo) GetByID(_ context.Context, id string) (out *entity.Customer, err error) {
	err = r.a.read(func(s *state) error {
		if c, ok := s.customers[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *CustomerRepo) GetByCompanyAndTaxID(_ context.Context, companyID, taxID string) (out *entity.Customer, err error) {
	err = r.a.read(func(s *state) error {
		for _, c := range s.customers {
			if c.CompanyID == companyID && c.TaxID == taxID {
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *CustomerRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) (out []*entity.Customer, err error) {
	err = r.a.read(func(s *state) error {
		for _, c := range s.customers {
			if c.CompanyID == companyID {
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), err
}

// ── Invoices ─────────────────────────────────────────────────────────────────

// InvoiceRepo facturas y líneas.
type InvoiceRepo struct{ a access }

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.invoices[inv.ID]; ok {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, inv.ID)
		}
		if err := checkNumber(s, inv); err != nil {
			return err
		}
		s.invoices[inv.ID] = *inv
		return nil
	})
}

func (r *InvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.invoices[inv.ID]; !ok {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, inv.ID)
		}
		if err := checkNumber(s, inv); err != nil {
			return err
		}
		s.invoices[inv.ID] = *inv
		return nil
	})
}

// checkNumber unicidad (empresa, número) para facturas numeradas.
func checkNumber(s *state, inv *entity.Invoice) error {
	if inv.Number == "" {
		return nil
	}
	for id, e := range s.invoices {
		if id != inv.ID && e.CompanyID == inv.CompanyID && e.Number == inv.Number {
			return fmt.Errorf("%w: número de factura %s", domain.ErrDuplicate, inv.Number)
		}
	}
	return nil
}

func (r *InvoiceRepo) Delete(_ context.Context, id string) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.invoices[id]; !ok {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
		}
		for _, e := range s.ledger {
			if e.InvoiceID == id {
				return fmt.Errorf("%w: la factura tiene registro fiscal", domain.ErrBlocked)
			}
		}
		delete(s.invoices, id)
		delete(s.lines, id)
		return nil
	})
}

func (r *InvoiceRepo) GetByID(_ context.Context, id string) (out *entity.Invoice, err error) {
	err = r.a.read(func(s *state) error {
		if inv, ok := s.invoices[id]; ok {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) GetByNumber(_ context.Context, companyID, number string) (out *entity.Invoice, err error) {
	err = r.a.read(func(s *state) error {
		out = findInvoice(s, func(inv entity.Invoice) bool {
			return inv.CompanyID == companyID && inv.Number == number
		})
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) GetRectificationOf(_ context.Context, originalID string) (out *entity.Invoice, err error) {
	err = r.a.read(func(s *state) error {
		out = findInvoice(s, func(inv entity.Invoice) bool { return inv.OriginalInvoiceID == originalID })
		return nil
	})
	return out, err
}

func findInvoice(s *state, match func(entity.Invoice) bool) *entity.Invoice {
	for _, inv := range s.invoices {
		if match(inv) {
			return &inv
		}
	}
	return nil
}

func (r *InvoiceRepo) ListByCompany(_ context.Context, companyID string, f repository.InvoiceFilter) (out []*entity.Invoice, err error) {
	err = r.a.read(func(s *state) error {
		for _, inv := range s.invoices {
			if inv.CompanyID != companyID || (f.Status != "" && inv.Status != f.Status) {
				continue
			}
			out = append(out, &inv)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), err
}

func (r *InvoiceRepo) ReplaceLines(_ context.Context, invoiceID string, lines []*entity.InvoiceLine) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.invoices[invoiceID]; !ok {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
		}
		cp := make([]entity.InvoiceLine, 0, len(lines))
		for _, l := range lines {
			l.InvoiceID = invoiceID
			cp = append(cp, *l)
		}
		s.lines[invoiceID] = cp
		return nil
	})
}

func (r *InvoiceRepo) GetLines(_ context.Context, invoiceID string) (out []*entity.InvoiceLine, err error) {
	err = r.a.read(func(s *state) error {
		for _, l := range s.lines[invoiceID] {
			out = append(out, &l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, err
}

func (r *InvoiceRepo) LastValidatedDate(_ context.Context, companyID string) (out *time.Time, err error) {
	err = r.a.read(func(s *state) error {
		for _, inv := range s.invoices {
			if inv.CompanyID != companyID || inv.Status == entity.InvoiceStatusDraft {
				continue
			}
			if out == nil || inv.Date.After(*out) {
				d := inv.Date
				out = &d
			}
		}
		return nil
	})
	return out, err
}

// ── Issuers ──────────────────────────────────────────────────────────────────

// IssuerRepo emisor y secuencia.
type IssuerRepo struct{ a access }

func (r *IssuerRepo) Get(_ context.Context, companyID string) (out *entity.Issuer, err error) {
	err = r.a.read(func(s *state) error {
		if i, ok := s.issuers[companyID]; ok {
			out = &i
		}
		return nil
	})
	return out, err
}

// GetForUpdate dentro de RunFiscal el bloqueo lo da la serialización de transacciones.
func (r *IssuerRepo) GetForUpdate(ctx context.Context, companyID string) (*entity.Issuer, error) {
	return r.Get(ctx, companyID)
}

func (r *IssuerRepo) Save(_ context.Context, i *entity.Issuer) error {
	return r.a.write(func(s *state) error {
		s.issuers[i.CompanyID] = *i
		return nil
	})
}

// ── Policies ─────────────────────────────────────────────────────────────────

// PolicyRepo políticas fiscales.
type PolicyRepo struct{ a access }

func (r *PolicyRepo) Get(_ context.Context, companyID string) (out *entity.FiscalPolicy, err error) {
	err = r.a.read(func(s *state) error {
		if p, ok := s.policies[companyID]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *PolicyRepo) Save(_ context.Context, p *entity.FiscalPolicy) error {
	return r.a.write(func(s *state) error {
		s.policies[p.CompanyID] = *p
		return nil
	})
}

// ── Ledger ───────────────────────────────────────────────────────────────────

// LedgerRepo registro fiscal encadenado.
type LedgerRepo struct{ a access }

func (r *LedgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	return r.a.write(func(s *state) error {
		for _, x := range s.ledger {
			if x.ID == e.ID || x.InvoiceID == e.InvoiceID {
				return fmt.Errorf("%w: la factura %s ya tiene registro fiscal", domain.ErrDuplicate, e.InvoiceID)
			}
			if x.CompanyID == e.CompanyID && x.PreviousHash == e.PreviousHash {
				return fmt.Errorf("%w: hash_anterior ya encadenado", domain.ErrDuplicate)
			}
		}
		s.ledger = append(s.ledger, *e)
		return nil
	})
}

func (r *LedgerRepo) Last(_ context.Context, companyID string) (out *entity.LedgerEntry, err error) {
	err = r.a.read(func(s *state) error {
		for _, e := range s.ledger {
			if e.CompanyID != companyID {
				continue
			}
			if out == nil || !e.RegisteredAt.Before(out.RegisteredAt) {
				out = &e
			}
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepo) GetByID(_ context.Context, id string) (*entity.LedgerEntry, error) {
	return r.find(func(e entity.LedgerEntry) bool { return e.ID == id })
}

func (r *LedgerRepo) GetByInvoiceID(_ context.Context, invoiceID string) (*entity.LedgerEntry, error) {
	return r.find(func(e entity.LedgerEntry) bool { return e.InvoiceID == invoiceID })
}

func (r *LedgerRepo) find(match func(entity.LedgerEntry) bool) (out *entity.LedgerEntry, err error) {
	err = r.a.read(func(s *state) error {
		for _, e := range s.ledger {
			if match(e) {
				out = &e
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepo) UpdateSubmission(_ context.Context, id, status, detail string, at time.Time) error {
	return r.a.write(func(s *state) error {
		for i := range s.ledger {
			if s.ledger[i].ID != id {
				continue
			}
			if s.ledger[i].SubmissionStatus != entity.SubmissionPending {
				return fmt.Errorf("%w: el registro %s ya está en %s", domain.ErrInvalidInput, id, s.ledger[i].SubmissionStatus)
			}
			s.ledger[i].SubmissionStatus = status
			s.ledger[i].SubmissionError = detail
			s.ledger[i].SubmittedAt = &at
			return nil
		}
		return fmt.Errorf("%w: registro fiscal %s", domain.ErrNotFound, id)
	})
}

func (r *LedgerRepo) ListByCompany(_ context.Context, companyID string, f repository.LedgerFilter) (out []*entity.LedgerEntry, err error) {
	err = r.a.read(func(s *state) error {
		for _, e := range s.ledger {
			if e.CompanyID != companyID || (f.SubmissionStatus != "" && e.SubmissionStatus != f.SubmissionStatus) {
				continue
			}
			out = append(out, &e)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return page(out, f.Limit, f.Offset), err
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
