package entity

import "time"

// Modos de envío Veri*Factu.
const (
	ComplianceModeOff        = "OFF"
	ComplianceModeTest       = "TEST"
	ComplianceModeProduction = "PRODUCTION"
)

// Niveles de auditoría.
const (
	AuditLevelBasic = "BASIC" // solo ERROR y BLOCKED
	AuditLevelFull  = "FULL"
)

// FiscalPolicy configuración fiscal de una empresa (una fila por empresa).
type FiscalPolicy struct {
	CompanyID               string
	ImmutableValidated      bool
	ForbidValidatedDeletion bool
	BlockPastDates          bool
	ComplianceMode          string
	ComplianceURL           string
	AuditEnabled            bool
	AuditLevel              string
	UpdatedAt               time.Time
}

// DefaultFiscalPolicy política inicial de una empresa nueva.
func DefaultFiscalPolicy(companyID string) *FiscalPolicy {
	return &FiscalPolicy{
		CompanyID:               companyID,
		ImmutableValidated:      true,
		ForbidValidatedDeletion: true,
		ComplianceMode:          ComplianceModeOff,
		AuditEnabled:            true,
		AuditLevel:              AuditLevelBasic,
	}
}

// ComplianceActive informa si las validaciones generan registro encadenado y envío.
func (p *FiscalPolicy) ComplianceActive() bool {
	return p.ComplianceMode != "" && p.ComplianceMode != ComplianceModeOff
}

// ValidComplianceMode informa si mode es uno de los modos admitidos.
func ValidComplianceMode(mode string) bool {
	switch mode {
	case ComplianceModeOff, ComplianceModeTest, ComplianceModeProduction:
		return true
	}
	return false
}

// ValidAuditLevel informa si level es uno de los niveles admitidos.
func ValidAuditLevel(level string) bool {
	return level == AuditLevelBasic || level == AuditLevelFull
}
