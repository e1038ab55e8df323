package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// RepositoryPort abstracts order and supplier persistence.
type RepositoryPort interface {
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, error)
	GetOrderWithLines(ctx context.Context, id uuid.UUID) (Order, error)
	InsertOrder(ctx context.Context, order Order) error
	MarkReceived(ctx context.Context, id uuid.UUID, receivedAt time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error

	ListSuppliers(ctx context.Context, search string) ([]Supplier, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	InsertSupplier(ctx context.Context, supplier Supplier) (Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const orderColumns = `id, number, supplier_id, warehouse_id, date, status, doc_discount_kind, doc_discount_value,
subtotal, discount_total, tax_total, total, note, created_by, received_at, created_at, updated_at`

func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders
WHERE ($1 = 0 OR supplier_id = $1)
  AND ($2 = '' OR status = $2)
  AND ($3::timestamptz IS NULL OR date >= $3)
  AND ($4::timestamptz IS NULL OR date <= $4)
ORDER BY created_at DESC
LIMIT $5`, filter.SupplierID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (r *Repository) GetOrderWithLines(ctx context.Context, id uuid.UUID) (Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, order_id, product_id, description, qty, unit_cost, discount_kind, discount_value,
tax_rate, subtotal, discount_amount, tax_amount, total
FROM purchase_order_lines WHERE order_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line OrderLine
		var kind string
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Description, &line.Qty, &line.UnitCost,
			&kind, &line.DiscountValue, &line.TaxRate, &line.Subtotal, &line.DiscountAmt, &line.TaxAmt, &line.Total); err != nil {
			return Order{}, err
		}
		line.DiscountKind = discountKind(kind)
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

func (r *Repository) InsertOrder(ctx context.Context, order Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('purchase_order_number_seq')`).Scan(&seq); err != nil {
		return err
	}
	number := fmt.Sprintf("PUR-%06d", seq)

	if _, err := tx.Exec(ctx, `INSERT INTO purchase_orders
(id, number, supplier_id, warehouse_id, date, status, doc_discount_kind, doc_discount_value,
 subtotal, discount_total, tax_total, total, note, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		order.ID, number, order.SupplierID, order.WarehouseID, order.Date, string(order.Status),
		string(order.DocDiscountKind), order.DocDiscountValue,
		order.Subtotal, order.DiscountTotal, order.TaxTotal, order.Total, order.Note, order.CreatedBy); err != nil {
		return err
	}

	for _, line := range order.Lines {
		if _, err := tx.Exec(ctx, `INSERT INTO purchase_order_lines
(order_id, product_id, description, qty, unit_cost, discount_kind, discount_value, tax_rate,
 subtotal, discount_amount, tax_amount, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			order.ID, line.ProductID, line.Description, line.Qty, line.UnitCost,
			string(line.DiscountKind), line.DiscountValue, line.TaxRate,
			line.Subtotal, line.DiscountAmt, line.TaxAmt, line.Total); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) MarkReceived(ctx context.Context, id uuid.UUID, receivedAt time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE purchase_orders SET status=$2, received_at=$3, updated_at=NOW()
WHERE id=$1 AND status='APPROVED'`, id, string(OrderStatusReceived), receivedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

const supplierColumns = `id, name_ar, phone, tax_number, is_active, created_at, updated_at`

func (r *Repository) ListSuppliers(ctx context.Context, search string) ([]Supplier, error) {
	rows, err := r.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE ($1 = '' OR name_ar ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
ORDER BY name_ar ASC LIMIT 200`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, supplier)
	}
	return out, rows.Err()
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	supplier, err := scanSupplier(r.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, err
	}
	return supplier, nil
}

func (r *Repository) InsertSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO suppliers (name_ar, phone, tax_number, is_active)
VALUES ($1,$2,$3,true) RETURNING `+supplierColumns, supplier.NameAr, supplier.Phone, supplier.TaxNumber)
	return scanSupplier(row)
}

func (r *Repository) UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error {
	cmd, err := r.db.Exec(ctx, `UPDATE suppliers SET name_ar=$2, phone=$3, tax_number=$4, updated_at=NOW() WHERE id=$1`,
		id, supplier.NameAr, supplier.Phone, supplier.TaxNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status, docKind string
	var receivedAt *time.Time
	err := row.Scan(&o.ID, &o.Number, &o.SupplierID, &o.WarehouseID, &o.Date, &status, &docKind, &o.DocDiscountValue,
		&o.Subtotal, &o.DiscountTotal, &o.TaxTotal, &o.Total, &o.Note, &o.CreatedBy, &receivedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	o.DocDiscountKind = discountKind(docKind)
	if receivedAt != nil {
		o.ReceivedAt = *receivedAt
	}
	return o, nil
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.NameAr, &s.Phone, &s.TaxNumber, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
