package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/mizan-erp/mizan-erp/internal/costing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// CreateInput is the payload for registering a product.
type CreateInput struct {
	SKU             string  `json:"sku" validate:"required,max=64"`
	NameAr          string  `json:"name_ar" validate:"required,max=255"`
	Name            string  `json:"name" validate:"max=255"`
	UnitOfMeasure   string  `json:"unit_of_measure" validate:"required,max=32"`
	Price           float64 `json:"price" validate:"gte=0"`
	StandardCost    float64 `json:"standard_cost" validate:"gte=0"`
	TaxRate         float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	ValuationMethod string  `json:"valuation_method"`
}

// UpdateInput is the payload for editing a product. SKU is immutable.
type UpdateInput struct {
	NameAr          string  `json:"name_ar" validate:"required,max=255"`
	Name            string  `json:"name" validate:"max=255"`
	UnitOfMeasure   string  `json:"unit_of_measure" validate:"required,max=32"`
	Price           float64 `json:"price" validate:"gte=0"`
	StandardCost    float64 `json:"standard_cost" validate:"gte=0"`
	TaxRate         float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	ValuationMethod string  `json:"valuation_method"`
}

type Service struct {
	repo  Repository
	cache *Cache
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get serves reads through the cache.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrValidation)
	}
	return s.cache.Fetch(ctx, id, func(ctx context.Context) (Product, error) {
		return s.repo.Get(ctx, id)
	})
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Product{}, fmt.Errorf("%w: sku required", shared.ErrValidation)
	}
	return s.repo.GetBySKU(ctx, sku)
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	method, err := parseMethodInput(input.ValuationMethod)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, Product{
		SKU:             strings.TrimSpace(input.SKU),
		NameAr:          strings.TrimSpace(input.NameAr),
		Name:            strings.TrimSpace(input.Name),
		UnitOfMeasure:   strings.TrimSpace(input.UnitOfMeasure),
		Price:           input.Price,
		StandardCost:    input.StandardCost,
		TaxRate:         input.TaxRate,
		ValuationMethod: method,
	})
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Product, error) {
	method, err := parseMethodInput(input.ValuationMethod)
	if err != nil {
		return Product{}, err
	}
	err = s.repo.Update(ctx, id, Product{
		NameAr:          strings.TrimSpace(input.NameAr),
		Name:            strings.TrimSpace(input.Name),
		UnitOfMeasure:   strings.TrimSpace(input.UnitOfMeasure),
		Price:           input.Price,
		StandardCost:    input.StandardCost,
		TaxRate:         input.TaxRate,
		ValuationMethod: method,
	})
	if err != nil {
		return Product{}, err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, id)
}

func parseMethodInput(raw string) (costing.ValuationMethod, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	method := costing.ValuationMethod(raw)
	if !method.IsValid() {
		return "", fmt.Errorf("%w: unknown valuation method %q", shared.ErrValidation, raw)
	}
	return method, nil
}
