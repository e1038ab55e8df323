package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mizan-erp/mizan-erp/internal/costing"
	"github.com/mizan-erp/mizan-erp/internal/inventory"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/products"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/reps"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

type memoryRepo struct {
	invoices  map[uuid.UUID]*Invoice
	customers map[int64]*Customer
	nextNum   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[uuid.UUID]*Invoice), customers: make(map[int64]*Customer)}
}

func (m *memoryRepo) ListInvoices(_ context.Context, _ ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *memoryRepo) GetInvoiceWithLines(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return *inv, nil
}

func (m *memoryRepo) InsertInvoice(_ context.Context, invoice Invoice) error {
	m.nextNum++
	invoice.Number = fmt.Sprintf("INV-%06d", m.nextNum)
	for i := range invoice.Lines {
		invoice.Lines[i].ID = int64(i + 1)
	}
	m.invoices[invoice.ID] = &invoice
	return nil
}

func (m *memoryRepo) MarkPosted(_ context.Context, invoice Invoice) error {
	current, ok := m.invoices[invoice.ID]
	if !ok {
		return ErrInvoiceNotFound
	}
	if current.Status != InvoiceStatusDraft {
		return ErrInvalidStatus
	}
	invoice.Number = current.Number
	m.invoices[invoice.ID] = &invoice
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	return nil
}

func (m *memoryRepo) ListCustomers(_ context.Context, _ string) ([]Customer, error) { return nil, nil }

func (m *memoryRepo) GetCustomer(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return *c, nil
}

func (m *memoryRepo) InsertCustomer(_ context.Context, customer Customer) (Customer, error) {
	customer.ID = int64(len(m.customers) + 1)
	m.customers[customer.ID] = &customer
	return customer, nil
}

func (m *memoryRepo) UpdateCustomer(_ context.Context, id int64, customer Customer) error {
	if _, ok := m.customers[id]; !ok {
		return shared.ErrNotFound
	}
	customer.ID = id
	m.customers[id] = &customer
	return nil
}

type stockLayer struct {
	qty, unitCost float64
}

// fakeStock consumes FIFO layers all-or-nothing, mirroring the inventory
// service contract.
type fakeStock struct {
	layers    map[int64][]stockLayer
	movements int
	failAll   bool
}

func newFakeStock() *fakeStock {
	return &fakeStock{layers: make(map[int64][]stockLayer)}
}

func (f *fakeStock) add(productID int64, qty, unitCost float64) {
	f.layers[productID] = append(f.layers[productID], stockLayer{qty, unitCost})
}

func (f *fakeStock) Available(_ context.Context, _, productID int64) (float64, error) {
	var total float64
	for _, l := range f.layers[productID] {
		total += l.qty
	}
	return total, nil
}

func (f *fakeStock) PostOutboundBatch(ctx context.Context, inputs []inventory.OutboundInput) ([]inventory.MovementRecord, []costing.Result, error) {
	if f.failAll {
		return nil, nil, errors.New("stock backend unavailable")
	}
	for _, in := range inputs {
		onHand, _ := f.Available(ctx, in.WarehouseID, in.ProductID)
		if onHand < in.Qty {
			return nil, nil, fmt.Errorf("%w: product %d", inventory.ErrInsufficientStock, in.ProductID)
		}
	}
	var records []inventory.MovementRecord
	var results []costing.Result
	for _, in := range inputs {
		remaining := in.Qty
		var cost float64
		layers := f.layers[in.ProductID]
		for i := range layers {
			if remaining <= 0 {
				break
			}
			take := layers[i].qty
			if take > remaining {
				take = remaining
			}
			cost += take * layers[i].unitCost
			layers[i].qty -= take
			remaining -= take
		}
		f.layers[in.ProductID] = layers
		f.movements++
		records = append(records, inventory.MovementRecord{ProductID: in.ProductID, OutQty: in.Qty})
		results = append(results, costing.Result{
			ProductID: in.ProductID,
			Qty:       in.Qty,
			UnitCost:  cost / in.Qty,
			TotalCost: cost,
			Method:    costing.MethodFIFO,
		})
	}
	return records, results, nil
}

type fakeCatalog map[int64]products.Product

func (f fakeCatalog) Get(_ context.Context, id int64) (products.Product, error) {
	p, ok := f[id]
	if !ok {
		return products.Product{}, shared.ErrNotFound
	}
	return p, nil
}

type fakeReps map[int64]reps.Rep

func (f fakeReps) Get(_ context.Context, id int64) (reps.Rep, error) {
	r, ok := f[id]
	if !ok {
		return reps.Rep{}, shared.ErrNotFound
	}
	return r, nil
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

func (f *fakeHooks) HandleSalesInvoicePosted(_ context.Context, evt InvoicePostedEvent) error {
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
	stock := newFakeStock()
	idem := &fakeIdem{}
	hooks := &fakeHooks{}
	catalog := fakeCatalog{
		1: {ID: 1, SKU: "P-1", NameAr: "منتج أول", Price: 100, TaxRate: 15, IsActive: true},
		2: {ID: 2, SKU: "P-2", NameAr: "منتج ثان", Price: 50, IsActive: true},
		3: {ID: 3, SKU: "P-3", NameAr: "منتج موقوف", Price: 10, IsActive: false},
	}
	repDir := fakeReps{9: {ID: 9, NameAr: "مندوب", CommissionPercent: 2, IsActive: true}}
	svc := NewService(repo, stock, catalog, repDir, idem, hooks, nil, Config{
		DefaultTaxRate: 0,
		DefaultMethod:  costing.MethodFIFO,
	})
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })
	return fixture{svc: svc, repo: repo, stock: stock, idem: idem, hooks: hooks}
}

func TestCreateInvoicePricesLines(t *testing.T) {
	fx := newFixture()

	// 2 x 100 with 10% discount and 15% tax: the line nets 207.00, while the
	// invoice total runs off the gross subtotal plus tax.
	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines: []LineInput{
			{ProductID: 1, Qty: 2, DiscountKind: "PERCENT", DiscountValue: 10},
		},
	}, 7)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusDraft, invoice.Status)
	require.InDelta(t, 200.0, invoice.Subtotal, 0.001)
	require.InDelta(t, 20.0, invoice.DiscountTotal, 0.001)
	require.InDelta(t, 27.0, invoice.TaxTotal, 0.001)
	require.InDelta(t, 207.0, invoice.Lines[0].Total, 0.001)
	require.InDelta(t, 227.0, invoice.Total, 0.001)
	require.Equal(t, "منتج أول", invoice.Lines[0].Description)
	require.Zero(t, fx.stock.movements)
}

func TestCreateInvoiceFixedDiscount(t *testing.T) {
	fx := newFixture()

	// 1 x 50 minus fixed 5, no tax: the line nets 45.00; with no document
	// discount the invoice total stays at the gross subtotal.
	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines: []LineInput{
			{ProductID: 2, Qty: 1, DiscountKind: "FIXED", DiscountValue: 5},
		},
	}, 7)
	require.NoError(t, err)
	require.InDelta(t, 45.0, invoice.Lines[0].Total, 0.001)
	require.InDelta(t, 5.0, invoice.DiscountTotal, 0.001)
	require.InDelta(t, 50.0, invoice.Total, 0.001)
}

func TestCreateInvoiceRejectsOversizedFixedDiscount(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines: []LineInput{
			{ProductID: 2, Qty: 1, DiscountKind: "FIXED", DiscountValue: 80},
		},
	}, 7)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateInvoiceRejectsInactiveProduct(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 3, Qty: 1}},
	}, 7)
	require.ErrorIs(t, err, ErrInactiveProduct)
}

func TestCreateInvoiceRepCommission(t *testing.T) {
	fx := newFixture()

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		RepID:       9,
		Lines:       []LineInput{{ProductID: 2, Qty: 2}},
	}, 7)
	require.NoError(t, err)
	require.InDelta(t, 100.0, invoice.Total, 0.001)
	require.InDelta(t, 2.0, invoice.Commission, 0.001)
}

func TestPostInvoiceConsumesStockAndEmitsEvent(t *testing.T) {
	fx := newFixture()
	fx.stock.add(1, 10, 80)
	fx.stock.add(1, 10, 90)

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 15}},
	}, 7)
	require.NoError(t, err)

	posted, err := fx.svc.PostInvoice(context.Background(), invoice.ID, "", 7)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPosted, posted.Status)
	// FIFO: 10 @ 80 + 5 @ 90 = 1250
	require.InDelta(t, 1250.0, posted.TotalCost, 0.001)
	require.InDelta(t, posted.TotalCost/15, posted.Lines[0].UnitCost, 0.001)
	require.Equal(t, 1, fx.stock.movements)

	require.Len(t, fx.hooks.events, 1)
	evt := fx.hooks.events[0]
	require.Equal(t, invoice.ID, evt.ID)
	require.InDelta(t, 1250.0, evt.TotalCost, 0.001)
	require.InDelta(t, posted.Total, evt.Total, 0.001)
}

func TestPostInvoiceInsufficientStockLeavesNoTrace(t *testing.T) {
	fx := newFixture()
	fx.stock.add(1, 3, 80)

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 1, Qty: 5}},
	}, 7)
	require.NoError(t, err)

	_, err = fx.svc.PostInvoice(context.Background(), invoice.ID, "", 7)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	current, err := fx.repo.GetInvoiceWithLines(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusDraft, current.Status)
	require.Zero(t, fx.stock.movements)
	require.Empty(t, fx.hooks.events)
	require.Empty(t, fx.idem.claimed)
}

func TestPostInvoiceIdempotencyKeyConflict(t *testing.T) {
	fx := newFixture()
	fx.stock.add(2, 10, 30)

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 2, Qty: 1}},
	}, 7)
	require.NoError(t, err)

	require.NoError(t, fx.idem.CheckAndInsert(context.Background(), "key-1", "sales"))
	_, err = fx.svc.PostInvoice(context.Background(), invoice.ID, "key-1", 7)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Zero(t, fx.stock.movements)
}

func TestPostInvoiceStockFailureReleasesKey(t *testing.T) {
	fx := newFixture()
	fx.stock.add(2, 10, 30)
	fx.stock.failAll = true

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 2, Qty: 1}},
	}, 7)
	require.NoError(t, err)

	_, err = fx.svc.PostInvoice(context.Background(), invoice.ID, "key-2", 7)
	require.Error(t, err)
	require.Empty(t, fx.idem.claimed)

	fx.stock.failAll = false
	posted, err := fx.svc.PostInvoice(context.Background(), invoice.ID, "key-2", 7)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPosted, posted.Status)
}

func TestPostInvoiceTwiceRejected(t *testing.T) {
	fx := newFixture()
	fx.stock.add(2, 10, 30)

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 2, Qty: 2}},
	}, 7)
	require.NoError(t, err)

	_, err = fx.svc.PostInvoice(context.Background(), invoice.ID, "", 7)
	require.NoError(t, err)

	_, err = fx.svc.PostInvoice(context.Background(), invoice.ID, "", 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Equal(t, 1, fx.stock.movements)
}

func TestInvoiceLifecycle(t *testing.T) {
	fx := newFixture()
	fx.stock.add(2, 5, 30)

	invoice, err := fx.svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []LineInput{{ProductID: 2, Qty: 1}},
	}, 7)
	require.NoError(t, err)

	_, err = fx.svc.MarkPaid(context.Background(), invoice.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = fx.svc.PostInvoice(context.Background(), invoice.ID, "", 7)
	require.NoError(t, err)

	paid, err := fx.svc.MarkPaid(context.Background(), invoice.ID, 7)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, paid.Status)

	_, err = fx.svc.CancelDraft(context.Background(), invoice.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
}
