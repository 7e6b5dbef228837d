package warehouse

import (
	"context"
	"fmt"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
	"kardex/pkg/logger"
)

// Service provides business operations for the warehouse catalog.
// It implements ledger.WarehouseSource.
type Service struct {
	repo Repository
}

// NewService creates a warehouse catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a warehouse by id.
func (s *Service) Get(ctx context.Context, warehouseID id.ID) (Warehouse, error) {
	return s.repo.GetByID(ctx, warehouseID)
}

// List returns all warehouses.
func (s *Service) List(ctx context.Context) ([]Warehouse, error) {
	return s.repo.List(ctx)
}

// Policy implements ledger.WarehouseSource.
func (s *Service) Policy(ctx context.Context, warehouseID id.ID) (ledger.WarehousePolicy, error) {
	w, err := s.repo.GetByID(ctx, warehouseID)
	if err != nil {
		return ledger.WarehousePolicy{}, err
	}
	if w.DeletionMark {
		return ledger.WarehousePolicy{}, apperror.NewNotFound("warehouse", warehouseID)
	}
	return ledger.WarehousePolicy{
		ID:            w.ID,
		AllowNegative: w.AllowNegative,
		CanReceive:    w.CanReceive,
		CanShip:       w.CanShip,
	}, nil
}

// Create validates and inserts a warehouse.
func (s *Service) Create(ctx context.Context, w *Warehouse) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}

	if _, err := s.repo.GetByCode(ctx, w.Code); err == nil {
		return apperror.NewDuplicate("warehouse", "code", w.Code)
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check code uniqueness: %w", err)
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return fmt.Errorf("create warehouse: %w", err)
	}

	logger.Info(ctx, "warehouse created", "warehouse_id", w.ID, "code", w.Code)
	return nil
}

// Update validates and saves warehouse changes.
func (s *Service) Update(ctx context.Context, w *Warehouse) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return fmt.Errorf("update warehouse: %w", err)
	}
	logger.Info(ctx, "warehouse updated", "warehouse_id", w.ID)
	return nil
}

// Delete soft-deletes a warehouse.
func (s *Service) Delete(ctx context.Context, warehouseID id.ID) error {
	if err := s.repo.Delete(ctx, warehouseID); err != nil {
		return fmt.Errorf("delete warehouse: %w", err)
	}
	logger.Info(ctx, "warehouse deleted", "warehouse_id", warehouseID)
	return nil
}
