package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoicePostedEvent captures the amounts needed to post a purchase invoice
// to the ledger.
type InvoicePostedEvent struct {
	ID          uuid.UUID
	Number      string
	SupplierID  int64
	WarehouseID int64
	TaxTotal    float64
	Total       float64
	TotalCost   float64
	PostedAt    time.Time
	PostedBy    int64
}

// IntegrationHandler receives procurement domain events for ledger integration.
type IntegrationHandler interface {
	HandlePurchaseInvoicePosted(ctx context.Context, evt InvoicePostedEvent) error
}
