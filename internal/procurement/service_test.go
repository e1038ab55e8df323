package procurement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mizan-erp/mizan-erp/internal/inventory"
	"github.com/mizan-erp/mizan-erp/internal/pricing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

type memoryRepo struct {
	orders  map[uuid.UUID]*Order
	nextNum int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[uuid.UUID]*Order)}
}

func (m *memoryRepo) ListOrders(_ context.Context, _ ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memoryRepo) GetOrderWithLines(_ context.Context, id uuid.UUID) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

func (m *memoryRepo) InsertOrder(_ context.Context, order Order) error {
	m.nextNum++
	order.Number = fmt.Sprintf("PUR-%06d", m.nextNum)
	m.orders[order.ID] = &order
	return nil
}

func (m *memoryRepo) MarkReceived(_ context.Context, id uuid.UUID, receivedAt time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != OrderStatusApproved {
		return ErrInvalidStatus
	}
	o.Status = OrderStatusReceived
	o.ReceivedAt = receivedAt
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *memoryRepo) ListSuppliers(_ context.Context, _ string) ([]Supplier, error) { return nil, nil }
func (m *memoryRepo) GetSupplier(_ context.Context, _ int64) (Supplier, error) {
	return Supplier{}, shared.ErrNotFound
}
func (m *memoryRepo) InsertSupplier(_ context.Context, s Supplier) (Supplier, error) { return s, nil }
func (m *memoryRepo) UpdateSupplier(_ context.Context, _ int64, _ Supplier) error    { return nil }

type fakeStock struct {
	inbound []inventory.InboundInput
	fail    bool
}

func (f *fakeStock) PostInboundBatch(_ context.Context, inputs []inventory.InboundInput) ([]inventory.MovementRecord, error) {
	if f.fail {
		return nil, errors.New("stock backend unavailable")
	}
	f.inbound = append(f.inbound, inputs...)
	records := make([]inventory.MovementRecord, len(inputs))
	for i, in := range inputs {
		records[i] = inventory.MovementRecord{ProductID: in.ProductID, InQty: in.Qty, InCost: in.UnitCost}
	}
	return records, nil
}

type fakeIdem struct {
	claimed map[string]bool
}

func (f *fakeIdem) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.claimed == nil {
		f.claimed = make(map[string]bool)
	}
	if f.claimed[key] {
		return shared.ErrIdempotencyConflict
	}
	f.claimed[key] = true
	return nil
}

func (f *fakeIdem) Delete(_ context.Context, key string) error {
	delete(f.claimed, key)
	return nil
}

type fakeHooks struct {
	events []InvoicePostedEvent
}

func (f *fakeHooks) HandlePurchaseInvoicePosted(_ context.Context, evt InvoicePostedEvent) error {
	f.events = append(f.events, evt)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *memoryRepo
	stock *fakeStock
	idem  *fakeIdem
	hooks *fakeHooks
}

func newFixture() fixture {
	repo := newMemoryRepo()
	stock := &fakeStock{}
	idem := &fakeIdem{}
	hooks := &fakeHooks{}
	svc := NewService(repo, stock, idem, hooks, nil)
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC) })
	return fixture{svc: svc, repo: repo, stock: stock, idem: idem, hooks: hooks}
}

func approveOrder(t *testing.T, fx fixture, id uuid.UUID) {
	t.Helper()
	_, err := fx.svc.Submit(context.Background(), id, 7)
	require.NoError(t, err)
	_, err = fx.svc.Approve(context.Background(), id, 7)
	require.NoError(t, err)
}

func TestCreateOrderPricesLines(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines: []LineInput{
			{ProductID: 1, Qty: 10, UnitCost: 80, TaxRate: 15},
		},
	}, 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusDraft, order.Status)
	require.InDelta(t, 800.0, order.Subtotal, 0.001)
	require.InDelta(t, 120.0, order.TaxTotal, 0.001)
	require.InDelta(t, 920.0, order.Total, 0.001)
	require.Empty(t, fx.stock.inbound)
}

func TestCreateOrderDocumentDiscount(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:       1,
		WarehouseID:      1,
		DocDiscountKind:  "FIXED",
		DocDiscountValue: 100,
		Lines: []LineInput{
			{ProductID: 1, Qty: 10, UnitCost: 80, TaxRate: 15},
		},
	}, 7)
	require.NoError(t, err)
	require.Equal(t, pricing.DiscountFixed, order.DocDiscountKind)
	require.InDelta(t, 800.0, order.Subtotal, 0.001)
	require.InDelta(t, 100.0, order.DiscountTotal, 0.001)
	require.InDelta(t, 120.0, order.TaxTotal, 0.001)
	// 800 - 100 + 120
	require.InDelta(t, 820.0, order.Total, 0.001)

	stored, err := fx.repo.GetOrderWithLines(context.Background(), order.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, stored.DocDiscountValue, 0.001)
}

func TestCreateOrderRejectsUnknownDocumentDiscountKind(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:       1,
		WarehouseID:      1,
		DocDiscountKind:  "HALF-OFF",
		DocDiscountValue: 50,
		Lines:            []LineInput{{ProductID: 1, Qty: 1, UnitCost: 10}},
	}, 7)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOrderApprovalWalksThroughPending(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5, UnitCost: 40}},
	}, 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusDraft, order.Status)

	// a draft cannot be approved before it is submitted
	_, err = fx.svc.Approve(context.Background(), order.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)

	pending, err := fx.svc.Submit(context.Background(), order.ID, 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusPending, pending.Status)

	// submitting twice is rejected
	_, err = fx.svc.Submit(context.Background(), order.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)

	approved, err := fx.svc.Approve(context.Background(), order.ID, 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusApproved, approved.Status)
}

func TestCancelPendingOrder(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5, UnitCost: 40}},
	}, 7)
	require.NoError(t, err)
	_, err = fx.svc.Submit(context.Background(), order.ID, 7)
	require.NoError(t, err)

	cancelled, err := fx.svc.Cancel(context.Background(), order.ID, 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusCancelled, cancelled.Status)
}

func TestReceiveOpensLayersAndEmitsEvent(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 10, UnitCost: 80}},
	}, 7)
	require.NoError(t, err)

	approveOrder(t, fx, order.ID)

	received, err := fx.svc.Receive(context.Background(), order.ID, "", 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusReceived, received.Status)

	require.Len(t, fx.stock.inbound, 1)
	in := fx.stock.inbound[0]
	require.Equal(t, inventory.DocumentTypePurchase, in.DocumentType)
	require.InDelta(t, 10.0, in.Qty, 0.001)
	require.InDelta(t, 80.0, in.UnitCost, 0.001)

	require.Len(t, fx.hooks.events, 1)
	require.InDelta(t, 800.0, fx.hooks.events[0].TotalCost, 0.001)
}

func TestReceiveRequiresApproval(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5, UnitCost: 40}},
	}, 7)
	require.NoError(t, err)

	_, err = fx.svc.Receive(context.Background(), order.ID, "", 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Empty(t, fx.stock.inbound)
}

func TestReceiveTwiceRejected(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5, UnitCost: 40}},
	}, 7)
	require.NoError(t, err)
	approveOrder(t, fx, order.ID)

	_, err = fx.svc.Receive(context.Background(), order.ID, "", 7)
	require.NoError(t, err)

	_, err = fx.svc.Receive(context.Background(), order.ID, "", 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Len(t, fx.stock.inbound, 1)
}

func TestReceiveStockFailureReleasesKey(t *testing.T) {
	fx := newFixture()
	fx.stock.fail = true

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5, UnitCost: 40}},
	}, 7)
	require.NoError(t, err)
	approveOrder(t, fx, order.ID)

	_, err = fx.svc.Receive(context.Background(), order.ID, "key-9", 7)
	require.Error(t, err)
	require.Empty(t, fx.idem.claimed)

	current, err := fx.repo.GetOrderWithLines(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusApproved, current.Status)

	fx.stock.fail = false
	received, err := fx.svc.Receive(context.Background(), order.ID, "key-9", 7)
	require.NoError(t, err)
	require.Equal(t, OrderStatusReceived, received.Status)
}

func TestCancelReceivedOrderRejected(t *testing.T) {
	fx := newFixture()

	order, err := fx.svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5, UnitCost: 40}},
	}, 7)
	require.NoError(t, err)
	approveOrder(t, fx, order.ID)
	_, err = fx.svc.Receive(context.Background(), order.ID, "", 7)
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), order.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
}
