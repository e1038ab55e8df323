package inventory

import (
	"errors"
	"time"

	"github.com/mizan-erp/mizan-erp/internal/costing"
)

// DocumentType identifies the document a movement originated from.
type DocumentType string

const (
	// DocumentTypeSale marks an outbound movement from a sales invoice.
	DocumentTypeSale DocumentType = "SALE"
	// DocumentTypePurchase marks an inbound movement from a purchase order.
	DocumentTypePurchase DocumentType = "PURCHASE"
	// DocumentTypeAdjustment marks a manual stock adjustment.
	DocumentTypeAdjustment DocumentType = "ADJUSTMENT"
)

// MovementRecord is one append-only ledger row. Exactly one of the in/out
// pairs is populated. Balance fields carry the running totals after the
// movement was applied.
type MovementRecord struct {
	ID           int64
	WarehouseID  int64
	ProductID    int64
	Date         time.Time
	InQty        float64
	InCost       float64
	OutQty       float64
	OutCost      float64
	BalanceQty   float64
	BalanceCost  float64
	Method       costing.ValuationMethod
	DocumentID   string
	DocumentType DocumentType
	Note         string
}

// Balance summarises on-hand stock per warehouse and product.
type Balance struct {
	WarehouseID int64
	ProductID   int64
	Qty         float64
	AvgCost     float64
	UpdatedAt   time.Time
}

// InboundInput describes a receipt. It creates a cost layer at UnitCost.
type InboundInput struct {
	WarehouseID  int64
	ProductID    int64
	Qty          float64
	UnitCost     float64
	Date         time.Time
	DocumentID   string
	DocumentType DocumentType
	Note         string
}

// OutboundInput describes an issue. Cost is derived by the costing calculator
// under Method; LayerIDs feed specific identification.
type OutboundInput struct {
	WarehouseID  int64
	ProductID    int64
	Qty          float64
	Method       costing.ValuationMethod
	LayerIDs     []int64
	Date         time.Time
	DocumentID   string
	DocumentType DocumentType
	Note         string
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	WarehouseID int64
	ProductID   int64
	From        time.Time
	To          time.Time
	Limit       int
}

var (
	// ErrInsufficientStock triggered when an issue exceeds on-hand quantity.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrBalanceNotFound indicates no balance row exists yet.
	ErrBalanceNotFound = errors.New("inventory: balance not found")
)
