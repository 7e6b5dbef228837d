// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"kardex/internal/domain/catalogs/product"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/movement"
	"kardex/internal/domain/production"
	"kardex/internal/infrastructure/http/v1/handlers"
	"kardex/internal/infrastructure/http/v1/middleware"
	"kardex/internal/infrastructure/storage/postgres"
	"kardex/internal/infrastructure/storage/postgres/catalog_repo"
	"kardex/internal/infrastructure/storage/postgres/ledger_repo"
	"kardex/internal/infrastructure/storage/postgres/production_repo"
	"kardex/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager runs repository calls inside transactions
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for bearer token validation
	TokenValidator middleware.TokenValidator

	// Version reported by the info endpoint
	Version string
}

// Services bundles the wired domain services so startup code and the
// router share one construction path.
type Services struct {
	Products      *product.Service
	Warehouses    *warehouse.Service
	MovementTypes *movement.Registry
	Ledger        *ledger.Service
	Production    *production.Service
}

// BuildServices wires repositories and domain services on top of a
// transaction manager.
func BuildServices(txm *postgres.TxManager) *Services {
	productService := product.NewService(catalog_repo.NewProductRepo(txm))
	warehouseService := warehouse.NewService(catalog_repo.NewWarehouseRepo(txm))
	registry := movement.NewRegistry(catalog_repo.NewMovementTypeRepo(txm))

	ledgerService := ledger.NewService(
		txm,
		ledger_repo.NewEntryRepo(txm),
		ledger_repo.NewStockRepo(txm),
		ledger_repo.NewReservationRepo(txm),
		registry,
		warehouseService,
		productService,
	)

	productionService := production.NewService(
		txm,
		ledgerService,
		production_repo.NewBOMRepo(txm),
		production_repo.NewOrderRepo(txm),
	)

	return &Services{
		Products:      productService,
		Warehouses:    warehouseService,
		MovementTypes: registry,
		Ledger:        ledgerService,
		Production:    productionService,
	}
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig, services *Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	middleware.SetupValidator()

	router := gin.New()

	// Global middleware, order matters
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints, no auth required
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	api := router.Group("/api/v1")
	if cfg.TokenValidator != nil {
		api.Use(middleware.Auth(cfg.TokenValidator))
	}

	catalogs := api.Group("/catalog")
	{
		handlers.NewProductHandler(base, services.Products).
			RegisterRoutes(catalogs.Group("/products"))
		handlers.NewWarehouseHandler(base, services.Warehouses).
			RegisterRoutes(catalogs.Group("/warehouses"))
		handlers.NewMovementTypeHandler(base, services.MovementTypes).
			RegisterRoutes(catalogs.Group("/movement-types"))
	}

	handlers.NewLedgerHandler(base, services.Ledger).
		RegisterRoutes(api.Group("/ledger"))
	handlers.NewProductionHandler(base, services.Production).
		RegisterRoutes(api.Group("/production"))

	return router
}
