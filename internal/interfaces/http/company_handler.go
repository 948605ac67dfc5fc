package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
)

// CompanyHandler datos de la empresa del token.
type CompanyHandler struct {
	uc *fiscal.CompanyUseCase
}

// NewCompanyHandler construye el handler.
func NewCompanyHandler(uc *fiscal.CompanyUseCase) *CompanyHandler {
	return &CompanyHandler{uc: uc}
}

// Current GET /api/company
func (h *CompanyHandler) Current(c *fiber.Ctx) error {
	out, err := h.uc.Current(c.UserContext(), ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
