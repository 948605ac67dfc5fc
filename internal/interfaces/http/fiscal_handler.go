package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
)

// FiscalHandler configuración fiscal de la empresa, registro encadenado y auditoría.
type FiscalHandler struct {
	settings *fiscal.SettingsUseCase
	ledger   *fiscal.LedgerUseCase
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(settings *fiscal.SettingsUseCase, ledger *fiscal.LedgerUseCase) *FiscalHandler {
	return &FiscalHandler{settings: settings, ledger: ledger}
}

// GetIssuer GET /api/fiscal/issuer
func (h *FiscalHandler) GetIssuer(c *fiber.Ctx) error {
	out, err := h.settings.GetIssuer(c.UserContext(), ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SaveIssuer PUT /api/fiscal/issuer
func (h *FiscalHandler) SaveIssuer(c *fiber.Ctx) error {
	var in dto.IssuerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.settings.SaveIssuer(c.UserContext(), ActorFrom(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SaveNumbering PUT /api/fiscal/numbering
func (h *FiscalHandler) SaveNumbering(c *fiber.Ctx) error {
	var in dto.NumberingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.settings.SaveNumbering(c.UserContext(), ActorFrom(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// PreviewNumber GET /api/fiscal/numbering/preview?date=YYYY-MM-DD
func (h *FiscalHandler) PreviewNumber(c *fiber.Ctx) error {
	out, err := h.settings.PreviewNumber(c.UserContext(), ActorFrom(c), c.Query("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetPolicy GET /api/fiscal/policy
func (h *FiscalHandler) GetPolicy(c *fiber.Ctx) error {
	out, err := h.settings.GetPolicy(c.UserContext(), ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SavePolicy PUT /api/fiscal/policy
func (h *FiscalHandler) SavePolicy(c *fiber.Ctx) error {
	var in dto.PolicyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.settings.SavePolicy(c.UserContext(), ActorFrom(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Ledger GET /api/fiscal/ledger?submission_status=ERROR
func (h *FiscalHandler) Ledger(c *fiber.Ctx) error {
	list, err := h.ledger.List(c.UserContext(), ActorFrom(c), c.Query("submission_status"), pageFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// VerifyLedger recalcula la cadena completa de la empresa.
// GET /api/fiscal/ledger/verify
func (h *FiscalHandler) VerifyLedger(c *fiber.Ctx) error {
	out, err := h.ledger.Verify(c.UserContext(), ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Audit GET /api/fiscal/audit?entity=FACTURA&outcome=BLOCKED
func (h *FiscalHandler) Audit(c *fiber.Ctx) error {
	var q dto.AuditQuery
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	q.PageRequest = pageFrom(c)
	list, err := h.ledger.Audit(c.UserContext(), ActorFrom(c), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}
