package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mizan-erp/mizan-erp/internal/costing"
	"github.com/mizan-erp/mizan-erp/internal/inventory"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/products"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/reps"
	"github.com/mizan-erp/mizan-erp/internal/pricing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// ProductCatalog resolves products for invoice lines.
type ProductCatalog interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// RepDirectory resolves sales representatives.
type RepDirectory interface {
	Get(ctx context.Context, id int64) (reps.Rep, error)
}

// StockPort is the slice of the inventory service the orchestrator needs.
type StockPort interface {
	Available(ctx context.Context, warehouseID, productID int64) (float64, error)
	PostOutboundBatch(ctx context.Context, inputs []inventory.OutboundInput) ([]inventory.MovementRecord, []costing.Result, error)
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

// Service orchestrates sales invoices: pricing at creation, costing and
// stock issue at posting, and ledger integration afterwards.
type Service struct {
	repo           RepositoryPort
	stock          StockPort
	catalog        ProductCatalog
	reps           RepDirectory
	idempotency    IdempotencyPort
	hooks          IntegrationHandler
	audit          AuditPort
	defaultTaxRate float64
	defaultMethod  costing.ValuationMethod
	now            func() time.Time
}

// Config carries the injected defaults for the sales service.
type Config struct {
	DefaultTaxRate float64
	DefaultMethod  costing.ValuationMethod
}

func NewService(repo RepositoryPort, stock StockPort, catalog ProductCatalog, repDir RepDirectory,
	idempotency IdempotencyPort, hooks IntegrationHandler, audit AuditPort, cfg Config) *Service {
	return &Service{
		repo:           repo,
		stock:          stock,
		catalog:        catalog,
		reps:           repDir,
		idempotency:    idempotency,
		hooks:          hooks,
		audit:          audit,
		defaultTaxRate: cfg.DefaultTaxRate,
		defaultMethod:  cfg.DefaultMethod,
		now:            time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return s.repo.GetInvoiceWithLines(ctx, id)
}

// CreateInvoice prices the requested lines and stores the invoice as a
// draft. No stock moves and no journal entries happen here.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput, createdBy int64) (Invoice, error) {
	docKind, err := parseDiscountKind(input.DocDiscountKind)
	if err != nil {
		return Invoice{}, err
	}

	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	invoice := Invoice{
		ID:               uuid.New(),
		CustomerID:       input.CustomerID,
		WarehouseID:      input.WarehouseID,
		RepID:            input.RepID,
		Date:             date,
		Status:           InvoiceStatusDraft,
		DocDiscountKind:  docKind,
		DocDiscountValue: input.DocDiscountValue,
		Note:             input.Note,
		CreatedBy:        createdBy,
	}

	pricingLines := make([]pricing.LineInput, 0, len(input.Lines))
	for i, lineIn := range input.Lines {
		lineKind, err := parseDiscountKind(lineIn.DiscountKind)
		if err != nil {
			return Invoice{}, err
		}
		product, err := s.catalog.Get(ctx, lineIn.ProductID)
		if err != nil {
			return Invoice{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		if !product.IsActive {
			return Invoice{}, fmt.Errorf("%w: %s", ErrInactiveProduct, product.SKU)
		}

		unitPrice := product.Price
		if lineIn.UnitPrice != nil {
			unitPrice = *lineIn.UnitPrice
		}
		taxRate := product.TaxRate
		if taxRate == 0 {
			taxRate = s.defaultTaxRate
		}
		if lineIn.TaxRate != nil {
			taxRate = *lineIn.TaxRate
		}

		pl := pricing.LineInput{
			Quantity:       lineIn.Qty,
			UnitPrice:      unitPrice,
			DiscountValue:  lineIn.DiscountValue,
			DiscountKind:   lineKind,
			TaxRatePercent: taxRate,
		}
		if pricing.ExceedsSubtotal(pl) {
			return Invoice{}, fmt.Errorf("%w: line %d discount exceeds subtotal", shared.ErrValidation, i+1)
		}
		res := pricing.CalculateLine(pl)
		pricingLines = append(pricingLines, pl)

		description := lineIn.Description
		if description == "" {
			description = product.NameAr
		}
		invoice.Lines = append(invoice.Lines, InvoiceLine{
			InvoiceID:     invoice.ID,
			ProductID:     lineIn.ProductID,
			Description:   description,
			Qty:           lineIn.Qty,
			UnitPrice:     unitPrice,
			DiscountKind:  lineKind,
			DiscountValue: lineIn.DiscountValue,
			TaxRate:       taxRate,
			Subtotal:      res.Subtotal,
			DiscountAmt:   res.DiscountAmount,
			TaxAmt:        res.TaxAmount,
			Total:         res.Total,
		})
	}

	doc := pricing.ComposeDocument(pricingLines, input.DocDiscountValue, docKind)
	invoice.Subtotal = doc.Subtotal
	invoice.DiscountTotal = doc.TotalDiscount()
	invoice.TaxTotal = doc.TotalTax
	invoice.Total = doc.TotalAmount

	if input.RepID != 0 {
		rep, err := s.reps.Get(ctx, input.RepID)
		if err != nil {
			return Invoice{}, fmt.Errorf("rep: %w", err)
		}
		invoice.Commission = pricing.Round2(rep.Commission(invoice.Total))
	}

	if err := s.repo.InsertInvoice(ctx, invoice); err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, createdBy, "sales.invoice.create", invoice)
	return invoice, nil
}

// PostInvoice executes the sale: verifies availability, claims the
// idempotency key, issues stock for every line in a single inventory
// transaction, stores the cost totals, and hands the posted document to the
// ledger hooks. The idempotency key also serialises concurrent postings of
// the same invoice.
func (s *Service) PostInvoice(ctx context.Context, id uuid.UUID, idemKey string, actorID int64) (Invoice, error) {
	invoice, err := s.repo.GetInvoiceWithLines(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if invoice.Status != InvoiceStatusDraft {
		return Invoice{}, fmt.Errorf("%w: invoice is %s", ErrInvalidStatus, invoice.Status)
	}

	// Availability pre-check gives a clean failure before any key is
	// claimed. The batch posting re-checks under lock.
	for _, line := range invoice.Lines {
		onHand, err := s.stock.Available(ctx, invoice.WarehouseID, line.ProductID)
		if err != nil {
			return Invoice{}, err
		}
		if onHand+1e-9 < line.Qty {
			return Invoice{}, fmt.Errorf("%w: product %d has %.4f on hand, need %.4f",
				inventory.ErrInsufficientStock, line.ProductID, onHand, line.Qty)
		}
	}

	if idemKey == "" {
		idemKey = fmt.Sprintf("sales:post:%s", invoice.ID)
	}
	if err := s.idempotency.CheckAndInsert(ctx, idemKey, "sales"); err != nil {
		return Invoice{}, err
	}

	outputs := make([]inventory.OutboundInput, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		method := s.defaultMethod
		if product, err := s.catalog.Get(ctx, line.ProductID); err == nil {
			method = product.Valuation(s.defaultMethod)
		}
		outputs = append(outputs, inventory.OutboundInput{
			WarehouseID:  invoice.WarehouseID,
			ProductID:    line.ProductID,
			Qty:          line.Qty,
			Method:       method,
			Date:         invoice.Date,
			DocumentID:   invoice.ID.String(),
			DocumentType: inventory.DocumentTypeSale,
			Note:         fmt.Sprintf("فاتورة مبيعات %s", invoice.Number),
		})
	}

	_, results, err := s.stock.PostOutboundBatch(ctx, outputs)
	if err != nil {
		// release the key so a corrected retry can post
		_ = s.idempotency.Delete(ctx, idemKey)
		return Invoice{}, err
	}

	postedAt := s.now().UTC()
	var totalCost float64
	for i := range invoice.Lines {
		invoice.Lines[i].UnitCost = results[i].UnitCost
		invoice.Lines[i].TotalCost = results[i].TotalCost
		totalCost += results[i].TotalCost
	}
	invoice.TotalCost = pricing.Round2(totalCost)
	invoice.Status = InvoiceStatusPosted
	invoice.PostedAt = postedAt

	if err := s.repo.MarkPosted(ctx, invoice); err != nil {
		return Invoice{}, err
	}

	if s.hooks != nil {
		if err := s.hooks.HandleSalesInvoicePosted(ctx, InvoicePostedEvent{
			ID:            invoice.ID,
			Number:        invoice.Number,
			CustomerID:    invoice.CustomerID,
			WarehouseID:   invoice.WarehouseID,
			Subtotal:      invoice.Subtotal,
			DiscountTotal: invoice.DiscountTotal,
			TaxTotal:      invoice.TaxTotal,
			Total:         invoice.Total,
			TotalCost:     invoice.TotalCost,
			PostedAt:      postedAt,
			PostedBy:      actorID,
		}); err != nil {
			return Invoice{}, err
		}
	}

	s.recordAudit(ctx, actorID, "sales.invoice.post", invoice)
	return invoice, nil
}

// MarkPaid settles a posted invoice.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, actorID int64) (Invoice, error) {
	invoice, err := s.repo.GetInvoiceWithLines(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if invoice.Status != InvoiceStatusPosted {
		return Invoice{}, fmt.Errorf("%w: invoice is %s", ErrInvalidStatus, invoice.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, InvoiceStatusPaid); err != nil {
		return Invoice{}, err
	}
	invoice.Status = InvoiceStatusPaid
	s.recordAudit(ctx, actorID, "sales.invoice.paid", invoice)
	return invoice, nil
}

// CancelDraft cancels an unposted invoice. Posted invoices cannot be
// cancelled here because their stock and ledger effects already exist.
func (s *Service) CancelDraft(ctx context.Context, id uuid.UUID, actorID int64) (Invoice, error) {
	invoice, err := s.repo.GetInvoiceWithLines(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if invoice.Status != InvoiceStatusDraft {
		return Invoice{}, fmt.Errorf("%w: invoice is %s", ErrInvalidStatus, invoice.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, InvoiceStatusCancelled); err != nil {
		return Invoice{}, err
	}
	invoice.Status = InvoiceStatusCancelled
	s.recordAudit(ctx, actorID, "sales.invoice.cancel", invoice)
	return invoice, nil
}

// Customer operations.

func (s *Service) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, search)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error) {
	return s.repo.InsertCustomer(ctx, Customer{
		NameAr:    input.NameAr,
		Phone:     input.Phone,
		TaxNumber: input.TaxNumber,
	})
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (Customer, error) {
	if err := s.repo.UpdateCustomer(ctx, id, Customer{
		NameAr:    input.NameAr,
		Phone:     input.Phone,
		TaxNumber: input.TaxNumber,
	}); err != nil {
		return Customer{}, err
	}
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, invoice Invoice) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_invoice",
		EntityID: invoice.ID.String(),
		Meta: map[string]any{
			"number":      invoice.Number,
			"customer_id": invoice.CustomerID,
			"total":       invoice.Total,
			"total_cost":  invoice.TotalCost,
			"status":      string(invoice.Status),
		},
		At: s.now(),
	})
}

// IsInsufficientStock reports whether an error chain contains the
// insufficient stock sentinel. Handlers use it to map the failure to a
// client error.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, inventory.ErrInsufficientStock)
}
