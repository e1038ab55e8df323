package procurement

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mizan-erp/mizan-erp/internal/pricing"
)

var (
	// ErrOrderNotFound is returned when an order id resolves to nothing.
	ErrOrderNotFound = errors.New("procurement: order not found")
	// ErrInvalidStatus signals a lifecycle transition the order does not allow.
	ErrInvalidStatus = errors.New("procurement: invalid order status for operation")
)

// OrderStatus enumerates the purchase order lifecycle. Receiving an approved
// order creates the stock and ledger effects.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Supplier is a purchasing counterparty.
type Supplier struct {
	ID        int64     `json:"id"`
	NameAr    string    `json:"name_ar"`
	Phone     string    `json:"phone,omitempty"`
	TaxNumber string    `json:"tax_number,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderLine is one purchased item at an agreed unit cost.
type OrderLine struct {
	ID            int64                `json:"id"`
	OrderID       uuid.UUID            `json:"order_id"`
	ProductID     int64                `json:"product_id"`
	Description   string               `json:"description,omitempty"`
	Qty           float64              `json:"qty"`
	UnitCost      float64              `json:"unit_cost"`
	DiscountKind  pricing.DiscountKind `json:"discount_kind,omitempty"`
	DiscountValue float64              `json:"discount_value"`
	TaxRate       float64              `json:"tax_rate"`
	Subtotal      float64              `json:"subtotal"`
	DiscountAmt   float64              `json:"discount_amount"`
	TaxAmt        float64              `json:"tax_amount"`
	Total         float64              `json:"total"`
}

// Order is a purchase order document.
type Order struct {
	ID               uuid.UUID            `json:"id"`
	Number           string               `json:"number"`
	SupplierID       int64                `json:"supplier_id"`
	WarehouseID      int64                `json:"warehouse_id"`
	Date             time.Time            `json:"date"`
	Status           OrderStatus          `json:"status"`
	DocDiscountKind  pricing.DiscountKind `json:"doc_discount_kind,omitempty"`
	DocDiscountValue float64              `json:"doc_discount_value"`
	Subtotal         float64              `json:"subtotal"`
	DiscountTotal    float64              `json:"discount_total"`
	TaxTotal         float64              `json:"tax_total"`
	Total            float64              `json:"total"`
	Note             string               `json:"note,omitempty"`
	CreatedBy        int64                `json:"created_by"`
	ReceivedAt       time.Time            `json:"received_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Lines            []OrderLine          `json:"lines,omitempty"`
}
