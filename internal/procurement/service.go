package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mizan-erp/mizan-erp/internal/inventory"
	"github.com/mizan-erp/mizan-erp/internal/pricing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// StockPort is the slice of the inventory service the orchestrator needs.
type StockPort interface {
	PostInboundBatch(ctx context.Context, inputs []inventory.InboundInput) ([]inventory.MovementRecord, error)
}

// IdempotencyPort claims and releases posting keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase orders: pricing at creation, stock receipt
// and ledger integration when an approved order is received.
type Service struct {
	repo        RepositoryPort
	stock       StockPort
	idempotency IdempotencyPort
	hooks       IntegrationHandler
	audit       AuditPort
	now         func() time.Time
}

func NewService(repo RepositoryPort, stock StockPort, idempotency IdempotencyPort, hooks IntegrationHandler, audit AuditPort) *Service {
	return &Service{repo: repo, stock: stock, idempotency: idempotency, hooks: hooks, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	return s.repo.GetOrderWithLines(ctx, id)
}

// CreateOrder prices the requested lines and stores the order as a draft.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput, createdBy int64) (Order, error) {
	docKind, err := parseDiscountKind(input.DocDiscountKind)
	if err != nil {
		return Order{}, err
	}

	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	order := Order{
		ID:               uuid.New(),
		SupplierID:       input.SupplierID,
		WarehouseID:      input.WarehouseID,
		Date:             date,
		Status:           OrderStatusDraft,
		DocDiscountKind:  docKind,
		DocDiscountValue: input.DocDiscountValue,
		Note:             input.Note,
		CreatedBy:        createdBy,
	}

	pricingLines := make([]pricing.LineInput, 0, len(input.Lines))
	for i, lineIn := range input.Lines {
		kind, err := parseDiscountKind(lineIn.DiscountKind)
		if err != nil {
			return Order{}, err
		}
		pl := pricing.LineInput{
			Quantity:       lineIn.Qty,
			UnitPrice:      lineIn.UnitCost,
			DiscountValue:  lineIn.DiscountValue,
			DiscountKind:   kind,
			TaxRatePercent: lineIn.TaxRate,
		}
		if pricing.ExceedsSubtotal(pl) {
			return Order{}, fmt.Errorf("%w: line %d discount exceeds subtotal", shared.ErrValidation, i+1)
		}
		res := pricing.CalculateLine(pl)
		pricingLines = append(pricingLines, pl)

		order.Lines = append(order.Lines, OrderLine{
			OrderID:       order.ID,
			ProductID:     lineIn.ProductID,
			Description:   lineIn.Description,
			Qty:           lineIn.Qty,
			UnitCost:      lineIn.UnitCost,
			DiscountKind:  kind,
			DiscountValue: lineIn.DiscountValue,
			TaxRate:       lineIn.TaxRate,
			Subtotal:      res.Subtotal,
			DiscountAmt:   res.DiscountAmount,
			TaxAmt:        res.TaxAmount,
			Total:         res.Total,
		})
	}

	doc := pricing.ComposeDocument(pricingLines, input.DocDiscountValue, docKind)
	order.Subtotal = doc.Subtotal
	order.DiscountTotal = doc.TotalDiscount()
	order.TaxTotal = doc.TotalTax
	order.Total = doc.TotalAmount

	if err := s.repo.InsertOrder(ctx, order); err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, createdBy, "purchase.order.create", order)
	return order, nil
}

// Submit moves a draft order to PENDING, placing it in the approval queue.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, actorID int64) (Order, error) {
	order, err := s.transition(ctx, id, OrderStatusDraft, OrderStatusPending)
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "purchase.order.submit", order)
	return order, nil
}

// Approve moves a pending order to APPROVED.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actorID int64) (Order, error) {
	order, err := s.transition(ctx, id, OrderStatusPending, OrderStatusApproved)
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "purchase.order.approve", order)
	return order, nil
}

// Cancel cancels an order anywhere before receipt. Received orders cannot be
// cancelled because their stock is already on hand.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID int64) (Order, error) {
	order, err := s.repo.GetOrderWithLines(ctx, id)
	if err != nil {
		return Order{}, err
	}
	switch order.Status {
	case OrderStatusDraft, OrderStatusPending, OrderStatusApproved:
	default:
		return Order{}, fmt.Errorf("%w: order is %s", ErrInvalidStatus, order.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, OrderStatusCancelled); err != nil {
		return Order{}, err
	}
	order.Status = OrderStatusCancelled
	s.recordAudit(ctx, actorID, "purchase.order.cancel", order)
	return order, nil
}

// Receive executes the purchase: claims the idempotency key, receives every
// line into stock in a single inventory transaction (each line opens a cost
// layer at its unit cost), marks the order received, and hands the document
// to the ledger hooks.
func (s *Service) Receive(ctx context.Context, id uuid.UUID, idemKey string, actorID int64) (Order, error) {
	order, err := s.repo.GetOrderWithLines(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.Status != OrderStatusApproved {
		return Order{}, fmt.Errorf("%w: order is %s", ErrInvalidStatus, order.Status)
	}

	if idemKey == "" {
		idemKey = fmt.Sprintf("purchases:receive:%s", order.ID)
	}
	if err := s.idempotency.CheckAndInsert(ctx, idemKey, "purchases"); err != nil {
		return Order{}, err
	}

	receivedAt := s.now().UTC()
	inputs := make([]inventory.InboundInput, 0, len(order.Lines))
	var totalCost float64
	for _, line := range order.Lines {
		inputs = append(inputs, inventory.InboundInput{
			WarehouseID:  order.WarehouseID,
			ProductID:    line.ProductID,
			Qty:          line.Qty,
			UnitCost:     line.UnitCost,
			Date:         receivedAt,
			DocumentID:   order.ID.String(),
			DocumentType: inventory.DocumentTypePurchase,
			Note:         fmt.Sprintf("فاتورة مشتريات %s", order.Number),
		})
		totalCost += line.Qty * line.UnitCost
	}

	if _, err := s.stock.PostInboundBatch(ctx, inputs); err != nil {
		_ = s.idempotency.Delete(ctx, idemKey)
		return Order{}, err
	}

	order.Status = OrderStatusReceived
	order.ReceivedAt = receivedAt
	if err := s.repo.MarkReceived(ctx, order.ID, receivedAt); err != nil {
		return Order{}, err
	}

	if s.hooks != nil {
		if err := s.hooks.HandlePurchaseInvoicePosted(ctx, InvoicePostedEvent{
			ID:          order.ID,
			Number:      order.Number,
			SupplierID:  order.SupplierID,
			WarehouseID: order.WarehouseID,
			TaxTotal:    order.TaxTotal,
			Total:       order.Total,
			TotalCost:   pricing.Round2(totalCost),
			PostedAt:    receivedAt,
			PostedBy:    actorID,
		}); err != nil {
			return Order{}, err
		}
	}

	s.recordAudit(ctx, actorID, "purchase.order.receive", order)
	return order, nil
}

// Supplier operations.

func (s *Service) ListSuppliers(ctx context.Context, search string) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, search)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	return s.repo.InsertSupplier(ctx, Supplier{
		NameAr:    input.NameAr,
		Phone:     input.Phone,
		TaxNumber: input.TaxNumber,
	})
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	if err := s.repo.UpdateSupplier(ctx, id, Supplier{
		NameAr:    input.NameAr,
		Phone:     input.Phone,
		TaxNumber: input.TaxNumber,
	}); err != nil {
		return Supplier{}, err
	}
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to OrderStatus) (Order, error) {
	order, err := s.repo.GetOrderWithLines(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.Status != from {
		return Order{}, fmt.Errorf("%w: order is %s", ErrInvalidStatus, order.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return Order{}, err
	}
	order.Status = to
	return order, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, order Order) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: order.ID.String(),
		Meta: map[string]any{
			"number":      order.Number,
			"supplier_id": order.SupplierID,
			"total":       order.Total,
			"status":      string(order.Status),
		},
		At: s.now(),
	})
}
