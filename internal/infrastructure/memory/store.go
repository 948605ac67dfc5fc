// Package memory implementa todos los puertos de persistencia en proceso.
//
// Las transacciones trabajan sobre una copia del estado que se publica al
// confirmar; los escritores se serializan con un único mutex, lo que equivale
// al bloqueo de fila del emisor en PostgreSQL. Auditoría y documentos quedan
// fuera del estado transaccional: igual que en PostgreSQL se escriben por el
// pool y sobreviven a un rollback.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
)

type state struct {
	companies map[string]entity.Company
	customers map[string]entity.Customer
	invoices  map[string]entity.Invoice
	lines     map[string][]entity.InvoiceLine
	issuers   map[string]entity.Issuer
	policies  map[string]entity.FiscalPolicy
	ledger    []entity.LedgerEntry // orden de inserción
}

func newState() *state {
	return &state{
		companies: map[string]entity.Company{},
		customers: map[string]entity.Customer{},
		invoices:  map[string]entity.Invoice{},
		lines:     map[string][]entity.InvoiceLine{},
		issuers:   map[string]entity.Issuer{},
		policies:  map[string]entity.FiscalPolicy{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]entity.InvoiceLine(nil), v...)
	}
	for k, v := range s.issuers {
		c.issuers[k] = v
	}
	for k, v := range s.policies {
		c.policies[k] = v
	}
	c.ledger = append([]entity.LedgerEntry(nil), s.ledger...)
	return c
}

// Store almacén en memoria (tests y APP_STORAGE=memory).
type Store struct {
	txMu sync.Mutex   // serializa escritores
	mu   sync.RWMutex // protege st
	st   *state

	sideMu   sync.Mutex
	audits   []entity.AuditEvent
	docs     map[string][]byte
	auditErr error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState(), docs: map[string][]byte{}}
}

// access lectura/escritura sobre el estado, compartido o de una transacción.
type access interface {
	read(fn func(s *state) error) error
	write(fn func(s *state) error) error
}

type shared struct{ store *Store }

func (a shared) read(fn func(s *state) error) error {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.st)
}

func (a shared) write(fn func(s *state) error) error {
	a.store.txMu.Lock()
	defer a.store.txMu.Unlock()
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.st)
}

type txAccess struct{ st *state }

func (a txAccess) read(fn func(s *state) error) error  { return fn(a.st) }
func (a txAccess) write(fn func(s *state) error) error { return fn(a.st) }

var _ fiscal.FiscalTxRunner = (*Store)(nil)

// RunFiscal ejecuta fn sobre una copia del estado y la publica si fn devuelve nil.
func (s *Store) RunFiscal(ctx context.Context, fn func(repos fiscal.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := s.st.clone()
	s.mu.RUnlock()

	a := txAccess{st: snap}
	if err := fn(fiscal.TxRepos{
		Invoices: &InvoiceRepo{a: a},
		Issuers:  &IssuerRepo{a: a},
		Ledger:   &LedgerRepo{a: a},
		Policies: &PolicyRepo{a: a},
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = snap
	s.mu.Unlock()
	return nil
}

// Repositorios ligados al estado compartido (equivalen a los del pool).

func (s *Store) Companies() *CompanyRepo   { return &CompanyRepo{a: shared{s}} }
func (s *Store) Customers() *CustomerRepo  { return &CustomerRepo{a: shared{s}} }
func (s *Store) Invoices() *InvoiceRepo    { return &InvoiceRepo{a: shared{s}} }
func (s *Store) Issuers() *IssuerRepo      { return &IssuerRepo{a: shared{s}} }
func (s *Store) Policies() *PolicyRepo     { return &PolicyRepo{a: shared{s}} }
func (s *Store) Ledger() *LedgerRepo       { return &LedgerRepo{a: shared{s}} }
func (s *Store) Audits() *AuditRepo        { return &AuditRepo{s: s} }
func (s *Store) Documents() *DocumentStore { return &DocumentStore{s: s} }

// FailAudits hace que las escrituras de auditoría devuelvan err (nil lo desactiva).
func (s *Store) FailAudits(err error) {
	s.sideMu.Lock()
	s.auditErr = err
	s.sideMu.Unlock()
}
