package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories adaptadores ligados al pool. Las escrituras fiscales pasan por
// TxRunner; estos sirven lecturas, auditoría, documentos y el estado de envío.
type Repositories struct {
	Companies *CompanyRepo
	Customers *CustomerRepo
	Invoices  *InvoiceRepo
	Issuers   *IssuerRepo
	Policies  *PolicyRepo
	Ledger    *LedgerRepo
	Audits    *AuditRepo
	Documents *DocumentStore
	Tx        *TxRunner
}

// NewRepositories construye todos los adaptadores sobre pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Companies: NewCompanyRepository(pool),
		Customers: NewCustomerRepository(pool),
		Invoices:  NewInvoiceRepository(pool),
		Issuers:   NewIssuerRepository(pool),
		Policies:  NewPolicyRepository(pool),
		Ledger:    NewLedgerRepository(pool),
		Audits:    NewAuditRepository(pool),
		Documents: NewDocumentStore(pool),
		Tx:        NewTxRunner(pool),
	}
}
