package costing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memorySource struct {
	layers  []Layer
	avg     float64
	onHand  float64
	failAll bool
}

func (s *memorySource) OpenLayers(ctx context.Context, warehouseID, productID int64) ([]Layer, error) {
	if s.failAll {
		return nil, errors.New("connection refused")
	}
	out := make([]Layer, 0, len(s.layers))
	for _, layer := range s.layers {
		if layer.WarehouseID == warehouseID && layer.ProductID == productID && layer.Qty > 0 {
			out = append(out, layer)
		}
	}
	return out, nil
}

func (s *memorySource) AverageCost(ctx context.Context, warehouseID, productID int64) (float64, float64, error) {
	if s.failAll {
		return 0, 0, errors.New("connection refused")
	}
	return s.avg, s.onHand, nil
}

func at(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
}

func threeLayers() *memorySource {
	return &memorySource{layers: []Layer{
		{ID: 1, WarehouseID: 1, ProductID: 7, Qty: 10, UnitCost: 80, ReceivedAt: at(1)},
		{ID: 2, WarehouseID: 1, ProductID: 7, Qty: 10, UnitCost: 90, ReceivedAt: at(2)},
		{ID: 3, WarehouseID: 1, ProductID: 7, Qty: 5, UnitCost: 100, ReceivedAt: at(3)},
	}}
}

func TestCalculateFIFOConsumesOldestLayers(t *testing.T) {
	calc := NewCalculator(threeLayers(), MethodWeightedAverage)

	res, err := calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 15, Method: MethodFIFO})
	require.NoError(t, err)
	// 10@80 + 5@90 = 1250
	require.InDelta(t, 1250.0, res.TotalCost, 0.001)
	require.InDelta(t, 1250.0/15.0, res.UnitCost, 0.001)
	require.Len(t, res.Allocations, 2)
	require.Equal(t, int64(1), res.Allocations[0].LayerID)
	require.InDelta(t, 10.0, res.Allocations[0].Qty, 0.001)
	require.Equal(t, int64(2), res.Allocations[1].LayerID)
	require.InDelta(t, 5.0, res.Allocations[1].Qty, 0.001)
}

func TestCalculateLIFOConsumesNewestLayers(t *testing.T) {
	calc := NewCalculator(threeLayers(), MethodWeightedAverage)

	res, err := calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 12, Method: MethodLIFO})
	require.NoError(t, err)
	// 5@100 + 7@90 = 1130
	require.InDelta(t, 1130.0, res.TotalCost, 0.001)
	require.Equal(t, int64(3), res.Allocations[0].LayerID)
	require.Equal(t, int64(2), res.Allocations[1].LayerID)
}

func TestCalculateWeightedAverage(t *testing.T) {
	source := &memorySource{avg: 86.5, onHand: 25}
	calc := NewCalculator(source, MethodWeightedAverage)

	res, err := calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 4})
	require.NoError(t, err)
	require.Equal(t, MethodWeightedAverage, res.Method)
	require.InDelta(t, 86.5, res.UnitCost, 0.001)
	require.InDelta(t, 346.0, res.TotalCost, 0.001)
	require.Empty(t, res.Allocations)
}

func TestCalculateSpecificIdentification(t *testing.T) {
	calc := NewCalculator(threeLayers(), MethodFIFO)

	res, err := calc.Calculate(context.Background(), Request{
		WarehouseID: 1, ProductID: 7, Qty: 7,
		Method:   MethodSpecific,
		LayerIDs: []int64{3, 2},
	})
	require.NoError(t, err)
	// 5@100 + 2@90 = 680
	require.InDelta(t, 680.0, res.TotalCost, 0.001)

	_, err = calc.Calculate(context.Background(), Request{
		WarehouseID: 1, ProductID: 7, Qty: 1,
		Method:   MethodSpecific,
		LayerIDs: []int64{99},
	})
	require.ErrorIs(t, err, ErrLayerNotFound)
}

func TestCalculateInsufficientLayers(t *testing.T) {
	calc := NewCalculator(threeLayers(), MethodWeightedAverage)

	_, err := calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 26, Method: MethodFIFO})
	require.ErrorIs(t, err, ErrInsufficientLayers)

	avgSource := &memorySource{avg: 50, onHand: 3}
	avgCalc := NewCalculator(avgSource, MethodWeightedAverage)
	_, err = avgCalc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 4})
	require.ErrorIs(t, err, ErrInsufficientLayers)
}

func TestCalculateLookupFailureIsNotSilentZero(t *testing.T) {
	calc := NewCalculator(&memorySource{failAll: true}, MethodWeightedAverage)

	_, err := calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 1, Method: MethodFIFO})
	require.ErrorIs(t, err, ErrCostLookup)

	_, err = calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 1})
	require.ErrorIs(t, err, ErrCostLookup)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	calc := NewCalculator(threeLayers(), MethodWeightedAverage)

	_, err := calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = calc.Calculate(context.Background(), Request{WarehouseID: 1, ProductID: 7, Qty: 1, Method: "STANDARD"})
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestValuationMethod(t *testing.T) {
	require.True(t, MethodFIFO.UsesLayers())
	require.True(t, MethodLIFO.UsesLayers())
	require.True(t, MethodSpecific.UsesLayers())
	require.False(t, MethodWeightedAverage.UsesLayers())
	require.False(t, ValuationMethod("STANDARD").IsValid())
}
