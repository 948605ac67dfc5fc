package entity

import "time"

// Resultados de un evento de auditoría.
const (
	AuditOutcomeOK      = "OK"
	AuditOutcomeError   = "ERROR"
	AuditOutcomeBlocked = "BLOCKED"
)

// Entidades auditadas.
const (
	AuditEntityInvoice = "FACTURA"
	AuditEntityLedger  = "VERIFACTU"
	AuditEntityConfig  = "CONFIG"
)

// Acciones auditadas.
const (
	AuditActionValidate        = "VALIDAR"
	AuditActionVoid            = "ANULAR"
	AuditActionEdit            = "EDITAR"
	AuditActionDelete          = "BORRAR"
	AuditActionSubmit          = "ENVIO_AEAT"
	AuditActionDocument        = "PDF"
	AuditActionConfigNumbering = "CONFIG_NUMERACION"
	AuditActionConfigPolicy    = "CONFIG_POLITICA"
	AuditActionConfigIssuer    = "CONFIG_EMISOR"
)

// AuditEvent evento de auditoría. Se escribe una vez y nunca se modifica.
type AuditEvent struct {
	ID        string
	CompanyID string
	Entity    string
	EntityID  string
	Action    string
	Outcome   string
	Reason    string
	UserID    string
	IP        string
	UserAgent string
	Payload   map[string]any
	CreatedAt time.Time
}
