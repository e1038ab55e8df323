package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/mizan-erp/mizan-erp/internal/pricing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// LineInput is one requested invoice line. UnitPrice and TaxRate default to
// the product's catalogue values when nil.
type LineInput struct {
	ProductID     int64    `json:"product_id" validate:"required,gt=0"`
	Description   string   `json:"description"`
	Qty           float64  `json:"qty" validate:"required,gt=0"`
	UnitPrice     *float64 `json:"unit_price" validate:"omitempty,gte=0"`
	DiscountKind  string   `json:"discount_kind"`
	DiscountValue float64  `json:"discount_value" validate:"gte=0"`
	TaxRate       *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
}

// CreateInvoiceInput is the payload for creating a draft invoice.
type CreateInvoiceInput struct {
	CustomerID       int64       `json:"customer_id" validate:"required,gt=0"`
	WarehouseID      int64       `json:"warehouse_id" validate:"required,gt=0"`
	RepID            int64       `json:"rep_id" validate:"gte=0"`
	Date             time.Time   `json:"date"`
	DocDiscountKind  string      `json:"doc_discount_kind"`
	DocDiscountValue float64     `json:"doc_discount_value" validate:"gte=0"`
	Note             string      `json:"note"`
	Lines            []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// CustomerInput is the payload for creating or updating a customer.
type CustomerInput struct {
	NameAr    string `json:"name_ar" validate:"required,max=255"`
	Phone     string `json:"phone" validate:"max=32"`
	TaxNumber string `json:"tax_number" validate:"max=64"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	CustomerID int64
	Status     InvoiceStatus
	From       time.Time
	To         time.Time
	Limit      int
}

func discountKind(raw string) pricing.DiscountKind {
	switch raw {
	case string(pricing.DiscountPercent):
		return pricing.DiscountPercent
	case string(pricing.DiscountFixed):
		return pricing.DiscountFixed
	default:
		return ""
	}
}

func parseDiscountKind(raw string) (pricing.DiscountKind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case string(pricing.DiscountPercent):
		return pricing.DiscountPercent, nil
	case string(pricing.DiscountFixed):
		return pricing.DiscountFixed, nil
	default:
		return "", fmt.Errorf("%w: unknown discount kind %q", shared.ErrValidation, raw)
	}
}
