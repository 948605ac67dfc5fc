package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC  *fiscal.CompanyUseCase
	CustomerUC *fiscal.CustomerUseCase
	InvoiceUC  *fiscal.InvoiceUseCase
	DocumentUC *fiscal.DocumentUseCase
	SettingsUC *fiscal.SettingsUseCase
	LedgerUC   *fiscal.LedgerUseCase
	Tokens     *jwt.Manager
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.Tokens))
	anyRole := RequireRole(RoleAdmin, RoleFacturacion, RoleConsulta)
	billing := RequireRole(RoleAdmin, RoleFacturacion)
	admin := RequireRole(RoleAdmin)

	companyHandler := NewCompanyHandler(deps.CompanyUC)
	protected.Get("/company", anyRole, companyHandler.Current)

	// Customers
	customers := protected.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", billing, customerHandler.Create)
	customers.Get("/", anyRole, customerHandler.List)

	// Invoices
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.DocumentUC)
	invoices.Get("/min-date", anyRole, invoiceHandler.MinDate)
	invoices.Post("/", billing, invoiceHandler.Create)
	invoices.Get("/", anyRole, invoiceHandler.List)
	invoices.Get("/:id", anyRole, invoiceHandler.GetByID)
	invoices.Put("/:id", billing, invoiceHandler.Update)
	invoices.Delete("/:id", billing, invoiceHandler.Delete)
	invoices.Post("/:id/prevalidate", billing, invoiceHandler.PreValidate)
	invoices.Post("/:id/validate", billing, invoiceHandler.Validate)
	invoices.Post("/:id/void", billing, invoiceHandler.Void)
	invoices.Get("/:id/pdf", anyRole, invoiceHandler.PDF)

	// Configuración fiscal, registro encadenado y auditoría
	fiscalGroup := protected.Group("/fiscal")
	fiscalHandler := NewFiscalHandler(deps.SettingsUC, deps.LedgerUC)
	fiscalGroup.Get("/issuer", anyRole, fiscalHandler.GetIssuer)
	fiscalGroup.Put("/issuer", admin, fiscalHandler.SaveIssuer)
	fiscalGroup.Put("/numbering", admin, fiscalHandler.SaveNumbering)
	fiscalGroup.Get("/numbering/preview", anyRole, fiscalHandler.PreviewNumber)
	fiscalGroup.Get("/policy", anyRole, fiscalHandler.GetPolicy)
	fiscalGroup.Put("/policy", admin, fiscalHandler.SavePolicy)
	fiscalGroup.Get("/ledger", anyRole, fiscalHandler.Ledger)
	fiscalGroup.Get("/ledger/verify", anyRole, fiscalHandler.VerifyLedger)
	fiscalGroup.Get("/audit", admin, fiscalHandler.Audit)
}
