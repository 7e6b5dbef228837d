// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"kardex/internal/core/appcontext"
	"kardex/internal/core/apperror"
	"kardex/internal/core/types"
	"kardex/internal/domain/catalogs/product"
	"kardex/internal/domain/catalogs/warehouse"
	v1 "kardex/internal/infrastructure/http/v1"
	"kardex/internal/infrastructure/storage/postgres"
	"kardex/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := appcontext.WithActor(context.Background(), appcontext.SystemActor)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	services := v1.BuildServices(postgres.NewTxManager(pool))

	if err := services.MovementTypes.EnsureSystemTypes(ctx); err != nil {
		log.Fatalw("failed to seed system movement types", "error", err)
	}
	log.Info("system movement types in place")

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, services, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, services *v1.Services, log *logger.Logger) error {
	warehouses := []warehouse.Warehouse{
		demoWarehouse("MAIN", "Main warehouse", "1 Dock Road", false),
		demoWarehouse("RETAIL", "Retail floor", "12 High Street", true),
	}
	for i := range warehouses {
		if err := services.Warehouses.Create(ctx, &warehouses[i]); err != nil {
			if apperror.IsCode(err, apperror.CodeDuplicate) {
				continue
			}
			return fmt.Errorf("seed warehouse %s: %w", warehouses[i].Code, err)
		}
		log.Infow("seeded warehouse", "code", warehouses[i].Code)
	}

	products := []product.Product{
		demoProduct("WIDGET", "Widget", "SKU-WIDGET-01", "pcs", "10", "12.50", "200"),
		demoProduct("BOLT", "Bolt M6", "SKU-BOLT-M6", "pcs", "500", "0.08", "10000"),
		demoProduct("PLATE", "Steel plate", "SKU-PLATE-ST", "pcs", "50", "4.20", "1000"),
	}
	for i := range products {
		if err := services.Products.Create(ctx, &products[i]); err != nil {
			if apperror.IsCode(err, apperror.CodeDuplicate) {
				continue
			}
			return fmt.Errorf("seed product %s: %w", products[i].Code, err)
		}
		log.Infow("seeded product", "code", products[i].Code)
	}

	return nil
}

func demoWarehouse(code, name, address string, allowNegative bool) warehouse.Warehouse {
	w := warehouse.New(code, name)
	w.Address = address
	w.AllowNegative = allowNegative
	return w
}

func demoProduct(code, name, sku, unit, reorderPoint, costPrice, maxLevel string) product.Product {
	p := product.New(code, name, sku, unit)
	p.ReorderPoint = types.MustQuantity(reorderPoint)
	p.CostPrice = types.MustMoney(costPrice)
	p.MaxStockLevel = types.MustQuantity(maxLevel)
	return p
}
