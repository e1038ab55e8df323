package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mizan-erp/mizan-erp/internal/costing"
)

type memoryRepo struct {
	balances  map[string]Balance
	layers    []costing.Layer
	movements []MovementRecord
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{balances: make(map[string]Balance)}
}

func balanceKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	if bal, ok := r.balances[balanceKey(warehouseID, productID)]; ok {
		return bal, nil
	}
	return Balance{}, ErrBalanceNotFound
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]MovementRecord, error) {
	out := make([]MovementRecord, len(r.movements))
	copy(out, r.movements)
	return out, nil
}

func (tx *memoryTx) GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	return tx.repo.GetBalance(ctx, warehouseID, productID)
}

func (tx *memoryTx) UpsertBalance(ctx context.Context, balance Balance) error {
	tx.repo.balances[balanceKey(balance.WarehouseID, balance.ProductID)] = balance
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, record MovementRecord) (int64, error) {
	tx.repo.nextID++
	record.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, record)
	return record.ID, nil
}

func (tx *memoryTx) InsertLayer(ctx context.Context, layer costing.Layer) (int64, error) {
	tx.repo.nextID++
	layer.ID = tx.repo.nextID
	tx.repo.layers = append(tx.repo.layers, layer)
	return layer.ID, nil
}

func (tx *memoryTx) OpenLayersForUpdate(ctx context.Context, warehouseID, productID int64) ([]costing.Layer, error) {
	var out []costing.Layer
	for _, layer := range tx.repo.layers {
		if layer.WarehouseID == warehouseID && layer.ProductID == productID && layer.Qty > 0 {
			out = append(out, layer)
		}
	}
	return out, nil
}

func (tx *memoryTx) ReduceLayer(ctx context.Context, layerID int64, qty float64) error {
	for i := range tx.repo.layers {
		if tx.repo.layers[i].ID == layerID {
			if tx.repo.layers[i].Qty < qty {
				return costing.ErrInsufficientLayers
			}
			tx.repo.layers[i].Qty -= qty
			return nil
		}
	}
	return costing.ErrLayerNotFound
}

func TestPostInboundBuildsMovingAverage(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, costing.MethodWeightedAverage)
	ctx := context.Background()

	rec, err := svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 10, UnitCost: 100, DocumentID: "PO-1", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)
	require.InDelta(t, 10.0, rec.BalanceQty, 0.0001)
	require.InDelta(t, 100.0, rec.BalanceCost, 0.0001)
	require.InDelta(t, 10.0, rec.InQty, 0.0001)
	require.Zero(t, rec.OutQty)

	rec, err = svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 5, UnitCost: 130, DocumentID: "PO-2", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)
	require.InDelta(t, 15.0, rec.BalanceQty, 0.0001)
	require.InDelta(t, 110.0, rec.BalanceCost, 0.0001)

	// Each receipt leaves behind one cost layer at its own unit cost.
	require.Len(t, repo.layers, 2)
	require.InDelta(t, 100.0, repo.layers[0].UnitCost, 0.0001)
	require.InDelta(t, 130.0, repo.layers[1].UnitCost, 0.0001)
}

func TestPostOutboundFIFO(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, costing.MethodWeightedAverage)
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	_, err := svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 10, UnitCost: 80, Date: base, DocumentID: "PO-1", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)
	_, err = svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 10, UnitCost: 100, Date: base.Add(24 * time.Hour), DocumentID: "PO-2", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)

	rec, res, err := svc.PostOutbound(ctx, OutboundInput{WarehouseID: 1, ProductID: 1, Qty: 12, Method: costing.MethodFIFO, DocumentID: "INV-1", DocumentType: DocumentTypeSale})
	require.NoError(t, err)
	// 10@80 + 2@100 = 1000
	require.InDelta(t, 1000.0, res.TotalCost, 0.001)
	require.InDelta(t, 8.0, rec.BalanceQty, 0.0001)
	require.InDelta(t, 12.0, rec.OutQty, 0.0001)
	require.InDelta(t, res.UnitCost, rec.OutCost, 0.0001)

	// Oldest layer fully consumed, newest reduced.
	require.InDelta(t, 0.0, repo.layers[0].Qty, 0.0001)
	require.InDelta(t, 8.0, repo.layers[1].Qty, 0.0001)
}

func TestPostOutboundInsufficientStockLeavesNoTrace(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, costing.MethodWeightedAverage)
	ctx := context.Background()

	_, err := svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 3, UnitCost: 50, DocumentID: "PO-1", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)

	_, _, err = svc.PostOutbound(ctx, OutboundInput{WarehouseID: 1, ProductID: 1, Qty: 5, DocumentID: "INV-1", DocumentType: DocumentTypeSale})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// One inbound movement only; the failed issue wrote nothing.
	require.Len(t, repo.movements, 1)
	require.InDelta(t, 3.0, repo.balances[balanceKey(1, 1)].Qty, 0.0001)
}

func TestPostOutboundDrainsBalanceToZero(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, costing.MethodWeightedAverage)
	ctx := context.Background()

	_, err := svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 4, UnitCost: 25, DocumentID: "PO-1", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)

	rec, _, err := svc.PostOutbound(ctx, OutboundInput{WarehouseID: 1, ProductID: 1, Qty: 4, Method: costing.MethodFIFO, DocumentID: "INV-1", DocumentType: DocumentTypeSale})
	require.NoError(t, err)
	require.Zero(t, rec.BalanceQty)
	require.Zero(t, rec.BalanceCost)
}

func TestPostInboundValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, costing.MethodWeightedAverage)
	ctx := context.Background()

	_, err := svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 0, UnitCost: 10})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 1, Qty: 1, UnitCost: -1})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = svc.PostInbound(ctx, InboundInput{ProductID: 1, Qty: 1, UnitCost: 1})
	require.Error(t, err)
}

func TestAvailable(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, costing.MethodWeightedAverage)
	ctx := context.Background()

	qty, err := svc.Available(ctx, 1, 9)
	require.NoError(t, err)
	require.Zero(t, qty)

	_, err = svc.PostInbound(ctx, InboundInput{WarehouseID: 1, ProductID: 9, Qty: 6, UnitCost: 10, DocumentID: "PO-1", DocumentType: DocumentTypePurchase})
	require.NoError(t, err)

	qty, err = svc.Available(ctx, 1, 9)
	require.NoError(t, err)
	require.InDelta(t, 6.0, qty, 0.0001)
}
