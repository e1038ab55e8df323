package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoicePostedEvent captures the amounts needed to post a sales invoice to
// the ledger: the revenue side from the pricing composer and the cost side
// from the costing calculator.
type InvoicePostedEvent struct {
	ID            uuid.UUID
	Number        string
	CustomerID    int64
	WarehouseID   int64
	Subtotal      float64
	DiscountTotal float64
	TaxTotal      float64
	Total         float64
	TotalCost     float64
	PostedAt      time.Time
	PostedBy      int64
}

// IntegrationHandler receives sales domain events for ledger integration.
type IntegrationHandler interface {
	HandleSalesInvoicePosted(ctx context.Context, evt InvoicePostedEvent) error
}
