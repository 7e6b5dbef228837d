package product

import (
	"context"
	"fmt"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/pkg/logger"
)

// Service provides business operations for the product catalog.
// It also serves as the ledger's product existence check.
type Service struct {
	repo Repository
}

// NewService creates a product catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, productID id.ID) (Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

// Exists reports whether a product exists and is not soft-deleted.
func (s *Service) Exists(ctx context.Context, productID id.ID) (bool, error) {
	return s.repo.Exists(ctx, productID)
}

// CostPrice returns the catalog cost price used as the default unit
// cost for incoming postings.
func (s *Service) CostPrice(ctx context.Context, productID id.ID) (types.Money, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return types.Zero(), err
	}
	return p.CostPrice, nil
}

// Create validates and inserts a product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if _, err := s.repo.GetBySKU(ctx, p.SKU); err == nil {
		return apperror.NewDuplicate("product", "sku", p.SKU)
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check sku uniqueness: %w", err)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "sku", p.SKU)
	return nil
}

// Update validates and saves product changes.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if current.SKU != p.SKU {
		if _, err := s.repo.GetBySKU(ctx, p.SKU); err == nil {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		} else if !apperror.IsNotFound(err) {
			return fmt.Errorf("check sku uniqueness: %w", err)
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	logger.Info(ctx, "product updated", "product_id", p.ID)
	return nil
}

// Delete soft-deletes a product.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	logger.Info(ctx, "product deleted", "product_id", productID)
	return nil
}
