package sales

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mizan-erp/mizan-erp/internal/pricing"
)

var (
	// ErrInvoiceNotFound is returned when an invoice id resolves to nothing.
	ErrInvoiceNotFound = errors.New("sales: invoice not found")
	// ErrInvalidStatus signals a lifecycle transition the invoice does not allow.
	ErrInvalidStatus = errors.New("sales: invalid invoice status for operation")
	// ErrInactiveProduct rejects lines referencing deactivated products.
	ErrInactiveProduct = errors.New("sales: product is inactive")
)

// InvoiceStatus enumerates the sales invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPosted    InvoiceStatus = "POSTED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Customer is a sales counterparty.
type Customer struct {
	ID        int64     `json:"id"`
	NameAr    string    `json:"name_ar"`
	Phone     string    `json:"phone,omitempty"`
	TaxNumber string    `json:"tax_number,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceLine is a priced invoice line. The monetary fields come from the
// pricing calculator at creation time; UnitCost and TotalCost are filled by
// the costing calculator when the invoice posts.
type InvoiceLine struct {
	ID            int64                `json:"id"`
	InvoiceID     uuid.UUID            `json:"invoice_id"`
	ProductID     int64                `json:"product_id"`
	Description   string               `json:"description,omitempty"`
	Qty           float64              `json:"qty"`
	UnitPrice     float64              `json:"unit_price"`
	DiscountKind  pricing.DiscountKind `json:"discount_kind,omitempty"`
	DiscountValue float64              `json:"discount_value"`
	TaxRate       float64              `json:"tax_rate"`
	Subtotal      float64              `json:"subtotal"`
	DiscountAmt   float64              `json:"discount_amount"`
	TaxAmt        float64              `json:"tax_amount"`
	Total         float64              `json:"total"`
	UnitCost      float64              `json:"unit_cost"`
	TotalCost     float64              `json:"total_cost"`
}

// Invoice is a sales invoice document.
type Invoice struct {
	ID               uuid.UUID            `json:"id"`
	Number           string               `json:"number"`
	CustomerID       int64                `json:"customer_id"`
	WarehouseID      int64                `json:"warehouse_id"`
	RepID            int64                `json:"rep_id,omitempty"`
	Date             time.Time            `json:"date"`
	Status           InvoiceStatus        `json:"status"`
	DocDiscountKind  pricing.DiscountKind `json:"doc_discount_kind,omitempty"`
	DocDiscountValue float64              `json:"doc_discount_value"`
	Subtotal         float64              `json:"subtotal"`
	DiscountTotal    float64              `json:"discount_total"`
	TaxTotal         float64              `json:"tax_total"`
	Total            float64              `json:"total"`
	TotalCost        float64              `json:"total_cost"`
	Commission       float64              `json:"commission"`
	Note             string               `json:"note,omitempty"`
	CreatedBy        int64                `json:"created_by"`
	PostedAt         time.Time            `json:"posted_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Lines            []InvoiceLine        `json:"lines,omitempty"`
}
