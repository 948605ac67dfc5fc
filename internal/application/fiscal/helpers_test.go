package fiscal_test

import "github.com/jhoicas/facturacion-fiscal/internal/domain/repository"

var repositoryAll = repository.LedgerFilter{Limit: 1000}

func auditFilter(action, outcome string) repository.AuditFilter {
	return repository.AuditFilter{Action: action, Outcome: outcome, Limit: 1000}
}
