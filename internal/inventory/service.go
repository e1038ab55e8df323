package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mizan-erp/mizan-erp/internal/costing"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// TxRepository exposes the ledger operations available inside a transaction.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, record MovementRecord) (int64, error)
	InsertLayer(ctx context.Context, layer costing.Layer) (int64, error)
	OpenLayersForUpdate(ctx context.Context, warehouseID, productID int64) ([]costing.Layer, error)
	ReduceLayer(ctx context.Context, layerID int64, qty float64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]MovementRecord, error)
	GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the movement ledger, balances and cost layers.
type Service struct {
	repo          RepositoryPort
	audit         AuditPort
	defaultMethod costing.ValuationMethod
	now           func() time.Time
}

// NewService builds Service. defaultMethod is the configured valuation
// fallback, injected rather than read from ambient settings.
func NewService(repo RepositoryPort, audit AuditPort, defaultMethod costing.ValuationMethod) *Service {
	return &Service{repo: repo, audit: audit, defaultMethod: defaultMethod, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Available returns the on-hand quantity for a product. A missing balance row
// means zero on hand, not an error.
func (s *Service) Available(ctx context.Context, warehouseID, productID int64) (float64, error) {
	balance, err := s.repo.GetBalance(ctx, warehouseID, productID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance.Qty, nil
}

// StockBalance returns the balance row for a product. A missing row comes
// back as an empty balance for the pair rather than an error.
func (s *Service) StockBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	if warehouseID == 0 || productID == 0 {
		return Balance{}, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
	}
	balance, err := s.repo.GetBalance(ctx, warehouseID, productID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return Balance{WarehouseID: warehouseID, ProductID: productID}, nil
		}
		return Balance{}, err
	}
	return balance, nil
}

// Movements lists ledger rows for reporting.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]MovementRecord, error) {
	if filter.WarehouseID == 0 || filter.ProductID == 0 {
		return nil, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
	}
	return s.repo.ListMovements(ctx, filter)
}

// PostInbound records a receipt: one movement row, one new cost layer, and an
// updated moving-average balance, all in one transaction.
func (s *Service) PostInbound(ctx context.Context, input InboundInput) (MovementRecord, error) {
	if input.WarehouseID == 0 || input.ProductID == 0 {
		return MovementRecord{}, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
	}
	if input.Qty <= 0 {
		return MovementRecord{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return MovementRecord{}, ErrInvalidUnitCost
	}
	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	var record MovementRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		record, err = s.postInboundTx(ctx, tx, input, date)
		return err
	})
	if err != nil {
		return MovementRecord{}, err
	}
	s.recordAudit(ctx, "inventory.inbound", record)
	return record, nil
}

// PostInboundBatch records a multi-line receipt in a single transaction.
func (s *Service) PostInboundBatch(ctx context.Context, inputs []InboundInput) ([]MovementRecord, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no lines", shared.ErrValidation)
	}
	for _, input := range inputs {
		if input.WarehouseID == 0 || input.ProductID == 0 {
			return nil, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
		}
		if input.Qty <= 0 {
			return nil, ErrInvalidQuantity
		}
		if input.UnitCost < 0 {
			return nil, ErrInvalidUnitCost
		}
	}

	records := make([]MovementRecord, 0, len(inputs))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, input := range inputs {
			date := input.Date
			if date.IsZero() {
				date = s.now().UTC()
			}
			record, err := s.postInboundTx(ctx, tx, input, date)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		s.recordAudit(ctx, "inventory.inbound", record)
	}
	return records, nil
}

func (s *Service) postInboundTx(ctx context.Context, tx TxRepository, input InboundInput, date time.Time) (MovementRecord, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, input.WarehouseID, input.ProductID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return MovementRecord{}, err
	}
	if errors.Is(err, ErrBalanceNotFound) {
		balance = Balance{WarehouseID: input.WarehouseID, ProductID: input.ProductID}
	}

	newQty := balance.Qty + input.Qty
	totalCost := balance.Qty*balance.AvgCost + input.Qty*input.UnitCost
	newAvg := balance.AvgCost
	if newQty > 0 {
		newAvg = totalCost / newQty
	}

	if _, err := tx.InsertLayer(ctx, costing.Layer{
		WarehouseID: input.WarehouseID,
		ProductID:   input.ProductID,
		Qty:         input.Qty,
		UnitCost:    input.UnitCost,
		ReceivedAt:  date,
		SourceRef:   input.DocumentID,
	}); err != nil {
		return MovementRecord{}, err
	}

	record := MovementRecord{
		WarehouseID:  input.WarehouseID,
		ProductID:    input.ProductID,
		Date:         date,
		InQty:        input.Qty,
		InCost:       input.UnitCost,
		BalanceQty:   newQty,
		BalanceCost:  newAvg,
		Method:       s.defaultMethod,
		DocumentID:   input.DocumentID,
		DocumentType: input.DocumentType,
		Note:         input.Note,
	}
	id, err := tx.InsertMovement(ctx, record)
	if err != nil {
		return MovementRecord{}, err
	}
	record.ID = id

	balance.Qty = newQty
	balance.AvgCost = newAvg
	balance.UpdatedAt = date
	if err := tx.UpsertBalance(ctx, balance); err != nil {
		return MovementRecord{}, err
	}
	return record, nil
}

// PostOutbound records an issue priced by the costing calculator. Layer
// consumption, the movement row and the balance update share one transaction
// so a failure leaves no partial side effects.
func (s *Service) PostOutbound(ctx context.Context, input OutboundInput) (MovementRecord, costing.Result, error) {
	if input.WarehouseID == 0 || input.ProductID == 0 {
		return MovementRecord{}, costing.Result{}, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
	}
	if input.Qty <= 0 {
		return MovementRecord{}, costing.Result{}, ErrInvalidQuantity
	}
	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	var record MovementRecord
	var result costing.Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		record, result, err = s.postOutboundTx(ctx, tx, input, date)
		return err
	})
	if err != nil {
		return MovementRecord{}, costing.Result{}, err
	}
	s.recordAudit(ctx, "inventory.outbound", record)
	return record, result, nil
}

// PostOutboundBatch issues all lines of a document in one transaction. Any
// failure, including insufficient stock on a later line, rolls back every
// movement.
func (s *Service) PostOutboundBatch(ctx context.Context, inputs []OutboundInput) ([]MovementRecord, []costing.Result, error) {
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("%w: no lines", shared.ErrValidation)
	}
	for _, input := range inputs {
		if input.WarehouseID == 0 || input.ProductID == 0 {
			return nil, nil, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
		}
		if input.Qty <= 0 {
			return nil, nil, ErrInvalidQuantity
		}
	}

	records := make([]MovementRecord, 0, len(inputs))
	results := make([]costing.Result, 0, len(inputs))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, input := range inputs {
			date := input.Date
			if date.IsZero() {
				date = s.now().UTC()
			}
			record, result, err := s.postOutboundTx(ctx, tx, input, date)
			if err != nil {
				return err
			}
			records = append(records, record)
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	for _, record := range records {
		s.recordAudit(ctx, "inventory.outbound", record)
	}
	return records, results, nil
}

func (s *Service) postOutboundTx(ctx context.Context, tx TxRepository, input OutboundInput, date time.Time) (MovementRecord, costing.Result, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, input.WarehouseID, input.ProductID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			return MovementRecord{}, costing.Result{}, fmt.Errorf("%w: product %d in warehouse %d", ErrInsufficientStock, input.ProductID, input.WarehouseID)
		}
		return MovementRecord{}, costing.Result{}, err
	}
	if balance.Qty+1e-9 < input.Qty {
		return MovementRecord{}, costing.Result{}, fmt.Errorf("%w: product %d has %.4f on hand, need %.4f", ErrInsufficientStock, input.ProductID, balance.Qty, input.Qty)
	}

	calculator := costing.NewCalculator(txLayerSource{tx: tx, balance: balance}, s.defaultMethod)
	result, err := calculator.Calculate(ctx, costing.Request{
		WarehouseID: input.WarehouseID,
		ProductID:   input.ProductID,
		Qty:         input.Qty,
		Method:      input.Method,
		LayerIDs:    input.LayerIDs,
	})
	if err != nil {
		return MovementRecord{}, costing.Result{}, err
	}
	for _, alloc := range result.Allocations {
		if err := tx.ReduceLayer(ctx, alloc.LayerID, alloc.Qty); err != nil {
			return MovementRecord{}, costing.Result{}, err
		}
	}

	newQty := balance.Qty - input.Qty
	if math.Abs(newQty) < 1e-9 {
		newQty = 0
	}
	newAvg := balance.AvgCost
	if newQty == 0 {
		newAvg = 0
	}

	record := MovementRecord{
		WarehouseID:  input.WarehouseID,
		ProductID:    input.ProductID,
		Date:         date,
		OutQty:       input.Qty,
		OutCost:      result.UnitCost,
		BalanceQty:   newQty,
		BalanceCost:  newAvg,
		Method:       result.Method,
		DocumentID:   input.DocumentID,
		DocumentType: input.DocumentType,
		Note:         input.Note,
	}
	id, err := tx.InsertMovement(ctx, record)
	if err != nil {
		return MovementRecord{}, costing.Result{}, err
	}
	record.ID = id

	balance.Qty = newQty
	balance.AvgCost = newAvg
	balance.UpdatedAt = date
	if err := tx.UpsertBalance(ctx, balance); err != nil {
		return MovementRecord{}, costing.Result{}, err
	}
	return record, result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, record MovementRecord) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "inventory_movement",
		EntityID: fmt.Sprintf("%d", record.ID),
		Meta: map[string]any{
			"warehouse_id":  record.WarehouseID,
			"product_id":    record.ProductID,
			"in_qty":        record.InQty,
			"out_qty":       record.OutQty,
			"document_id":   record.DocumentID,
			"document_type": string(record.DocumentType),
		},
		At: s.now(),
	})
}

// txLayerSource adapts the transactional repository to the calculator's
// LayerSource so costing reads the same snapshot the movement writes to.
type txLayerSource struct {
	tx      TxRepository
	balance Balance
}

func (s txLayerSource) OpenLayers(ctx context.Context, warehouseID, productID int64) ([]costing.Layer, error) {
	return s.tx.OpenLayersForUpdate(ctx, warehouseID, productID)
}

func (s txLayerSource) AverageCost(ctx context.Context, warehouseID, productID int64) (float64, float64, error) {
	return s.balance.AvgCost, s.balance.Qty, nil
}
