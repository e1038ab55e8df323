package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mizan-erp/mizan-erp/internal/costing"
)

// Repository provides PostgreSQL backed persistence for the movement ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetBalance reads the current balance without locking.
func (r *Repository) GetBalance(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	return scanBalance(r.pool.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM inventory_balances WHERE warehouse_id=$1 AND product_id=$2`, warehouseID, productID), warehouseID, productID)
}

// ListMovements returns ledger rows, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]MovementRecord, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, warehouse_id, product_id, posted_at, in_qty, in_cost, out_qty, out_cost, balance_qty, balance_cost, method, document_id, document_type, note
FROM inventory_movements
WHERE warehouse_id=$1 AND product_id=$2
  AND ($3::timestamptz IS NULL OR posted_at >= $3)
  AND ($4::timestamptz IS NULL OR posted_at <= $4)
ORDER BY posted_at DESC, id DESC
LIMIT $5`, filter.WarehouseID, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []MovementRecord
	for rows.Next() {
		var rec MovementRecord
		var method string
		var docType string
		if err := rows.Scan(&rec.ID, &rec.WarehouseID, &rec.ProductID, &rec.Date, &rec.InQty, &rec.InCost, &rec.OutQty, &rec.OutCost, &rec.BalanceQty, &rec.BalanceCost, &method, &rec.DocumentID, &docType, &rec.Note); err != nil {
			return nil, err
		}
		rec.Method = costing.ValuationMethod(method)
		rec.DocumentType = DocumentType(docType)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetBalanceForUpdate(ctx context.Context, warehouseID, productID int64) (Balance, error) {
	return scanBalance(t.tx.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, avg_cost, updated_at
FROM inventory_balances WHERE warehouse_id=$1 AND product_id=$2 FOR UPDATE`, warehouseID, productID), warehouseID, productID)
}

func (t *txRepo) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO inventory_balances (warehouse_id, product_id, qty, avg_cost, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (warehouse_id, product_id) DO UPDATE SET qty=EXCLUDED.qty, avg_cost=EXCLUDED.avg_cost, updated_at=EXCLUDED.updated_at`,
		balance.WarehouseID, balance.ProductID, balance.Qty, balance.AvgCost, balance.UpdatedAt)
	return err
}

func (t *txRepo) InsertMovement(ctx context.Context, record MovementRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO inventory_movements
(warehouse_id, product_id, posted_at, in_qty, in_cost, out_qty, out_cost, balance_qty, balance_cost, method, document_id, document_type, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		record.WarehouseID, record.ProductID, record.Date, record.InQty, record.InCost, record.OutQty, record.OutCost,
		record.BalanceQty, record.BalanceCost, string(record.Method), record.DocumentID, string(record.DocumentType), record.Note).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLayer(ctx context.Context, layer costing.Layer) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO cost_layers (warehouse_id, product_id, qty, unit_cost, received_at, source_ref)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		layer.WarehouseID, layer.ProductID, layer.Qty, layer.UnitCost, layer.ReceivedAt, layer.SourceRef).Scan(&id)
	return id, err
}

func (t *txRepo) OpenLayersForUpdate(ctx context.Context, warehouseID, productID int64) ([]costing.Layer, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, warehouse_id, product_id, qty, unit_cost, received_at, source_ref
FROM cost_layers WHERE warehouse_id=$1 AND product_id=$2 AND qty > 0
ORDER BY received_at, id FOR UPDATE`, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var layers []costing.Layer
	for rows.Next() {
		var layer costing.Layer
		if err := rows.Scan(&layer.ID, &layer.WarehouseID, &layer.ProductID, &layer.Qty, &layer.UnitCost, &layer.ReceivedAt, &layer.SourceRef); err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, rows.Err()
}

func (t *txRepo) ReduceLayer(ctx context.Context, layerID int64, qty float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE cost_layers SET qty = qty - $2 WHERE id=$1 AND qty >= $2`, layerID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return costing.ErrInsufficientLayers
	}
	return nil
}

func scanBalance(row pgx.Row, warehouseID, productID int64) (Balance, error) {
	var balance Balance
	err := row.Scan(&balance.WarehouseID, &balance.ProductID, &balance.Qty, &balance.AvgCost, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{WarehouseID: warehouseID, ProductID: productID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return balance, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
