package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/internal/infrastructure/compliance"
	"github.com/jhoicas/facturacion-fiscal/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/facturacion-fiscal/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-fiscal/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/facturacion-fiscal/internal/interfaces/http"
	"github.com/jhoicas/facturacion-fiscal/pkg/config"
	"github.com/jhoicas/facturacion-fiscal/pkg/jwt"
	"github.com/jhoicas/facturacion-fiscal/pkg/logger"
)

const (
	demoCompanyID = "00000000-0000-0000-0000-0000000000d1"
	devJWTSecret  = "dev-secret-solo-memoria"
)

// stores puertos de persistencia que necesita el núcleo fiscal.
type stores struct {
	tx        fiscal.FiscalTxRunner
	companies repository.CompanyRepository
	customers repository.CustomerRepository
	invoices  repository.InvoiceRepository
	issuers   repository.IssuerRepository
	policies  repository.PolicyRepository
	ledger    repository.LedgerRepository
	audits    repository.AuditRepository
	documents fiscal.DocumentStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	loc, err := cfg.Fiscal.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Fiscal.Timezone).Msg("zona horaria fiscal")
	}

	ctx := context.Background()
	var st stores
	switch cfg.App.Storage {
	case "memory":
		mem := memory.NewStore()
		st = stores{
			tx: mem, companies: mem.Companies(), customers: mem.Customers(), invoices: mem.Invoices(),
			issuers: mem.Issuers(), policies: mem.Policies(), ledger: mem.Ledger(), audits: mem.Audits(),
			documents: mem.Documents(),
		}
		if cfg.JWT.Secret == "" {
			cfg.JWT.Secret = devJWTSecret
			log.Warn().Msg("JWT_SECRET vacío: se usa el secreto de desarrollo (solo almacenamiento en memoria)")
		}
	default:
		if cfg.JWT.Secret == "" {
			log.Fatal().Msg("JWT_SECRET es obligatorio")
		}
		pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		repos := postgres.NewRepositories(pool)
		st = stores{
			tx: repos.Tx, companies: repos.Companies, customers: repos.Customers, invoices: repos.Invoices,
			issuers: repos.Issuers, policies: repos.Policies, ledger: repos.Ledger, audits: repos.Audits,
			documents: repos.Documents,
		}
	}

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	if err != nil {
		log.Fatal().Err(err).Msg("configurar JWT")
	}

	zl := log.Zerolog()
	now := time.Now
	opts := fiscal.Options{Location: loc, RectificationSuffix: cfg.Fiscal.RectificationSuffix, Now: now}
	qr := fiscal.QRBases{Test: cfg.Compliance.QRBaseTest, Production: cfg.Compliance.QRBaseProduction}

	// Los fallos de auditoría nunca llegan al llamador: quedan en el log (channel=audit_failure).
	recorder := fiscal.NewRecorder(st.policies, st.audits, zl, now)
	allocator := fiscal.NewAllocator()
	submitter := compliance.NewClient(cfg.Compliance, log.Component("compliance"))
	ledger := fiscal.NewLedger(submitter, recorder, now, zl)
	guard := fiscal.NewGuard(recorder)
	documentUC := fiscal.NewDocumentUseCase(
		st.invoices, st.companies, st.customers, st.issuers,
		st.ledger, st.policies, infrapdf.NewMarotoRenderer(), st.documents, recorder, qr, now, zl,
	)
	invoiceUC := fiscal.NewInvoiceUseCase(
		st.tx, st.invoices, st.customers, st.policies, st.issuers, st.ledger,
		allocator, ledger, guard, recorder, documentUC, opts, zl,
	)
	settingsUC := fiscal.NewSettingsUseCase(st.tx, st.issuers, st.policies, allocator, recorder, opts, zl)
	companyUC := fiscal.NewCompanyUseCase(st.companies, settingsUC, now)
	customerUC := fiscal.NewCustomerUseCase(st.customers, now)
	ledgerUC := fiscal.NewLedgerUseCase(st.ledger, st.audits, st.policies, qr)

	if cfg.App.Storage == "memory" {
		seedDemo(ctx, log, tokens, companyUC, settingsUC)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Compliance.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación fiscal API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompanyUC:  companyUC,
		CustomerUC: customerUC,
		InvoiceUC:  invoiceUC,
		DocumentUC: documentUC,
		SettingsUC: settingsUC,
		LedgerUC:   ledgerUC,
		Tokens:     tokens,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// seedDemo empresa de demostración para el modo en memoria y un token de administrador.
func seedDemo(ctx context.Context, log *logger.Logger, tokens *jwt.Manager, companies *fiscal.CompanyUseCase, settings *fiscal.SettingsUseCase) {
	if _, err := companies.Create(ctx, dto.CreateCompanyRequest{ID: demoCompanyID, Name: "Empresa Demo SL"}); err != nil {
		log.Fatal().Err(err).Msg("crear empresa demo")
	}
	actor := entity.Actor{CompanyID: demoCompanyID, UserID: "demo-admin", IP: "127.0.0.1", UserAgent: "seed"}
	if _, err := settings.SaveIssuer(ctx, actor, dto.IssuerRequest{Name: "Empresa Demo SL", TaxID: "B00000000"}); err != nil {
		log.Fatal().Err(err).Msg("crear emisor demo")
	}
	token, err := tokens.Generate(jwt.Identity{UserID: "demo-admin", CompanyID: demoCompanyID, Role: httpRouter.RoleAdmin})
	if err != nil {
		log.Fatal().Err(err).Msg("token demo")
	}
	log.Info().
		Str("company_id", demoCompanyID).
		Str("token", token).
		Msg("empresa demo lista (almacenamiento en memoria)")
}
