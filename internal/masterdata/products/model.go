package products

import (
	"time"

	"github.com/mizan-erp/mizan-erp/internal/costing"
)

// Product is a sellable or purchasable item. NameAr is the primary display
// name; Name carries the optional Latin transliteration.
type Product struct {
	ID              int64                   `json:"id"`
	SKU             string                  `json:"sku"`
	NameAr          string                  `json:"name_ar"`
	Name            string                  `json:"name"`
	UnitOfMeasure   string                  `json:"unit_of_measure"`
	Price           float64                 `json:"price"`
	StandardCost    float64                 `json:"standard_cost"`
	TaxRate         float64                 `json:"tax_rate"`
	ValuationMethod costing.ValuationMethod `json:"valuation_method,omitempty"`
	IsActive        bool                    `json:"is_active"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func parseMethod(raw string) costing.ValuationMethod {
	m := costing.ValuationMethod(raw)
	if m.IsValid() {
		return m
	}
	return ""
}

// Valuation returns the product override or the given fallback when the
// product does not pin a method.
func (p Product) Valuation(fallback costing.ValuationMethod) costing.ValuationMethod {
	if p.ValuationMethod.IsValid() {
		return p.ValuationMethod
	}
	return fallback
}
