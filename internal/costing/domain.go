package costing

import (
	"errors"
	"time"
)

// ValuationMethod selects the convention used to price inventory outflows.
type ValuationMethod string

const (
	// MethodFIFO consumes the oldest cost layers first.
	MethodFIFO ValuationMethod = "FIFO"
	// MethodLIFO consumes the newest cost layers first.
	MethodLIFO ValuationMethod = "LIFO"
	// MethodWeightedAverage prices outflows at the moving average cost.
	MethodWeightedAverage ValuationMethod = "WEIGHTED_AVERAGE"
	// MethodSpecific prices outflows against explicitly referenced layers.
	MethodSpecific ValuationMethod = "SPECIFIC"
)

// IsValid reports whether the method is one of the supported conventions.
func (m ValuationMethod) IsValid() bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodWeightedAverage, MethodSpecific:
		return true
	}
	return false
}

// UsesLayers reports whether the method walks individual cost layers rather
// than the moving average balance.
func (m ValuationMethod) UsesLayers() bool {
	return m == MethodFIFO || m == MethodLIFO || m == MethodSpecific
}

// String implements fmt.Stringer.
func (m ValuationMethod) String() string { return string(m) }

// Layer is one remaining slice of received inventory cost. Layers are created
// by inbound movements and consumed, in method order, by outbound ones.
type Layer struct {
	ID          int64
	WarehouseID int64
	ProductID   int64
	Qty         float64
	UnitCost    float64
	ReceivedAt  time.Time
	SourceRef   string
}

// Allocation records how much of a layer an outflow consumed.
type Allocation struct {
	LayerID  int64
	Qty      float64
	UnitCost float64
}

// Result is the outcome of a cost calculation. It is ephemeral: callers feed
// it into movement records and journal lines, it is never stored as-is.
type Result struct {
	ProductID   int64
	Qty         float64
	UnitCost    float64
	TotalCost   float64
	Method      ValuationMethod
	Allocations []Allocation
}

var (
	// ErrUnknownMethod indicates an unsupported valuation method.
	ErrUnknownMethod = errors.New("costing: unknown valuation method")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("costing: quantity must be positive")
	// ErrInsufficientLayers indicates the open layers cannot cover the quantity.
	ErrInsufficientLayers = errors.New("costing: insufficient cost layers")
	// ErrCostLookup indicates the cost source could not be queried. Callers
	// must abort rather than default the cost to zero.
	ErrCostLookup = errors.New("costing: cost lookup failed")
	// ErrLayerNotFound indicates a referenced layer does not exist.
	ErrLayerNotFound = errors.New("costing: layer not found")
)
