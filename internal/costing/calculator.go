package costing

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// LayerSource supplies open cost layers and average balances. Implemented by
// the inventory repository; tests use in-memory fakes.
type LayerSource interface {
	// OpenLayers returns layers with remaining quantity for the product,
	// ordered by receipt time ascending.
	OpenLayers(ctx context.Context, warehouseID, productID int64) ([]Layer, error)
	// AverageCost returns the current moving-average unit cost and on-hand
	// quantity for the product.
	AverageCost(ctx context.Context, warehouseID, productID int64) (avgCost, qtyOnHand float64, err error)
}

// Calculator derives unit and total cost for an outflow under a valuation
// method by walking recorded cost layers. The default method is injected so
// ambient configuration never leaks in as a package-level singleton.
type Calculator struct {
	source        LayerSource
	defaultMethod ValuationMethod
}

// NewCalculator builds a Calculator. defaultMethod is used when a request
// leaves the method empty.
func NewCalculator(source LayerSource, defaultMethod ValuationMethod) *Calculator {
	if !defaultMethod.IsValid() {
		defaultMethod = MethodWeightedAverage
	}
	return &Calculator{source: source, defaultMethod: defaultMethod}
}

// DefaultMethod returns the configured fallback valuation method.
func (c *Calculator) DefaultMethod() ValuationMethod { return c.defaultMethod }

// Request describes one cost calculation.
type Request struct {
	WarehouseID int64
	ProductID   int64
	Qty         float64
	Method      ValuationMethod
	// LayerIDs names the layers to consume under MethodSpecific.
	LayerIDs []int64
}

// Calculate prices an outflow of req.Qty units. For layer methods it returns
// the allocations that the caller must apply to the layer ledger within the
// same transaction as the movement record.
func (c *Calculator) Calculate(ctx context.Context, req Request) (Result, error) {
	if req.Qty <= 0 {
		return Result{}, ErrInvalidQuantity
	}
	method := req.Method
	if method == "" {
		method = c.defaultMethod
	}
	if !method.IsValid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}

	if method == MethodWeightedAverage {
		avg, onHand, err := c.source.AverageCost(ctx, req.WarehouseID, req.ProductID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: product %d: %v", ErrCostLookup, req.ProductID, err)
		}
		if onHand < req.Qty {
			return Result{}, fmt.Errorf("%w: product %d has %.4f on hand, need %.4f", ErrInsufficientLayers, req.ProductID, onHand, req.Qty)
		}
		return Result{
			ProductID: req.ProductID,
			Qty:       req.Qty,
			UnitCost:  avg,
			TotalCost: round2(avg * req.Qty),
			Method:    method,
		}, nil
	}

	layers, err := c.source.OpenLayers(ctx, req.WarehouseID, req.ProductID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: product %d: %v", ErrCostLookup, req.ProductID, err)
	}
	ordered, err := orderLayers(layers, method, req.LayerIDs)
	if err != nil {
		return Result{}, err
	}

	remaining := req.Qty
	var totalCost float64
	allocations := make([]Allocation, 0, len(ordered))
	for _, layer := range ordered {
		if remaining <= 0 {
			break
		}
		take := layer.Qty
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, Allocation{LayerID: layer.ID, Qty: take, UnitCost: layer.UnitCost})
		totalCost += take * layer.UnitCost
		remaining -= take
	}
	if remaining > 1e-9 {
		return Result{}, fmt.Errorf("%w: product %d short by %.4f", ErrInsufficientLayers, req.ProductID, remaining)
	}

	totalCost = round2(totalCost)
	return Result{
		ProductID:   req.ProductID,
		Qty:         req.Qty,
		UnitCost:    totalCost / req.Qty,
		TotalCost:   totalCost,
		Method:      method,
		Allocations: allocations,
	}, nil
}

// orderLayers arranges open layers in consumption order for the method.
// Specific identification walks the referenced layers in the given order and
// falls back to FIFO ordering when no references are supplied.
func orderLayers(layers []Layer, method ValuationMethod, layerIDs []int64) ([]Layer, error) {
	out := make([]Layer, len(layers))
	copy(out, layers)
	switch method {
	case MethodFIFO:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	case MethodLIFO:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	case MethodSpecific:
		if len(layerIDs) == 0 {
			sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
			return out, nil
		}
		byID := make(map[int64]Layer, len(out))
		for _, layer := range out {
			byID[layer.ID] = layer
		}
		picked := make([]Layer, 0, len(layerIDs))
		for _, id := range layerIDs {
			layer, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: id %d", ErrLayerNotFound, id)
			}
			picked = append(picked, layer)
		}
		return picked, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return out, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
