package router

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/config"
	"github.com/ae-utbm/sith-pos/internal/handlers"
	"github.com/ae-utbm/sith-pos/internal/middleware"
	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/internal/services"
	"github.com/ae-utbm/sith-pos/pkg/etransaction"
)

// Backend bundles the services the HTTP layer shares with the background
// jobs.
type Backend struct {
	Permanency  services.PermanencyService
	Eboutic     services.EbouticService
	AccountDump services.AccountDumpService
}

// Setup wires repositories, services and handlers and registers every
// route on the engine. It returns the services the cron jobs reuse.
func Setup(
	engine *gin.Engine,
	db *sql.DB,
	cfg *config.Config,
	signer *etransaction.Signer,
	verifier *etransaction.Verifier,
	mailer services.Mailer,
) *Backend {
	// Initialize Repositories
	userRepo := repositories.NewUserRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	productRepo := repositories.NewProductRepository(db)
	counterRepo := repositories.NewCounterRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	permanencyRepo := repositories.NewPermanencyRepository(db)
	basketRepo := repositories.NewBasketRepository(db)
	accountingRepo := repositories.NewAccountingRepository(db)
	dumpRepo := repositories.NewAccountDumpRepository(db)
	store := repositories.NewStore(db)

	// Initialize Services
	jwtSecret := []byte(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, jwtSecret)
	catalogService := services.NewCatalogService(productRepo, counterRepo, userRepo, permanencyRepo, cfg.SubscribersGroupID, store)
	customerService := services.NewCustomerService(customerRepo, ledgerRepo, userRepo, store)
	counterService := services.NewCounterService(counterRepo, store)
	permanencyService := services.NewPermanencyService(permanencyRepo, counterRepo, userRepo, cfg.PermanencyInactivity, store)
	accountingService := services.NewAccountingService(accountingRepo, ledgerRepo, store)
	checkoutService := services.NewCheckoutService(
		customerRepo, productRepo, counterRepo, ledgerRepo, permanencyRepo, userRepo,
		catalogService, accountingService, cfg.TrayThreshold, cfg.TrayDiscount, store,
	)
	ebouticService := services.NewEbouticService(
		basketRepo, customerRepo, productRepo, counterRepo, ledgerRepo, userRepo,
		catalogService, customerService, accountingService, signer, verifier,
		cfg.GatewayURL, cfg.BasketTTL, cfg.EshopSellerID, cfg.RefillingProductTypeID, store,
	)
	accountDumpService := services.NewAccountDumpService(
		dumpRepo, customerRepo, ledgerRepo, userRepo, counterRepo, mailer,
		cfg.AccountDumpIdle, cfg.AccountDumpGrace, cfg.DumpCounterID, store,
	)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	counterHandler := handlers.NewCounterHandler(counterService, permanencyService, checkoutService, catalogService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	ebouticHandler := handlers.NewEbouticHandler(ebouticService)
	accountingHandler := handlers.NewAccountingHandler(accountingService)

	apiV1 := engine.Group("/api/v1")

	// Public routes: login, the counter-token login and the bank callback.
	SetupPublicRoutes(apiV1, authHandler, counterHandler, ebouticHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(jwtSecret))
	{
		SetupCatalogRoutes(authenticated, catalogHandler)
		SetupCounterRoutes(authenticated, counterHandler)
		SetupCustomerRoutes(authenticated, customerHandler)
		SetupEbouticRoutes(authenticated, ebouticHandler)
		SetupAccountingRoutes(authenticated, accountingHandler)
	}

	return &Backend{
		Permanency:  permanencyService,
		Eboutic:     ebouticService,
		AccountDump: accountDumpService,
	}
}
