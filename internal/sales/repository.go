package sales

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

// RepositoryPort abstracts invoice and customer persistence.
type RepositoryPort interface {
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
	GetInvoiceWithLines(ctx context.Context, id uuid.UUID) (Invoice, error)
	InsertInvoice(ctx context.Context, invoice Invoice) error
	MarkPosted(ctx context.Context, invoice Invoice) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error

	ListCustomers(ctx context.Context, search string) ([]Customer, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	InsertCustomer(ctx context.Context, customer Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, id int64, customer Customer) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const invoiceColumns = `id, number, customer_id, warehouse_id, rep_id, date, status, doc_discount_kind, doc_discount_value,
subtotal, discount_total, tax_total, total, total_cost, commission, note, created_by, posted_at, created_at, updated_at`

func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices
WHERE ($1 = 0 OR customer_id = $1)
  AND ($2 = '' OR status = $2)
  AND ($3::timestamptz IS NULL OR date >= $3)
  AND ($4::timestamptz IS NULL OR date <= $4)
ORDER BY created_at DESC
LIMIT $5`, filter.CustomerID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, invoice)
	}
	return out, rows.Err()
}

func (r *Repository) GetInvoiceWithLines(ctx context.Context, id uuid.UUID) (Invoice, error) {
	invoice, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, invoice_id, product_id, description, qty, unit_price, discount_kind, discount_value,
tax_rate, subtotal, discount_amount, tax_amount, total, unit_cost, total_cost
FROM sales_invoice_lines WHERE invoice_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLine
		var kind string
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ProductID, &line.Description, &line.Qty, &line.UnitPrice,
			&kind, &line.DiscountValue, &line.TaxRate, &line.Subtotal, &line.DiscountAmt, &line.TaxAmt,
			&line.Total, &line.UnitCost, &line.TotalCost); err != nil {
			return Invoice{}, err
		}
		line.DiscountKind = discountKind(kind)
		invoice.Lines = append(invoice.Lines, line)
	}
	return invoice, rows.Err()
}

func (r *Repository) InsertInvoice(ctx context.Context, invoice Invoice) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('sales_invoice_number_seq')`).Scan(&seq); err != nil {
		return err
	}
	number := fmt.Sprintf("INV-%06d", seq)

	if _, err := tx.Exec(ctx, `INSERT INTO sales_invoices
(id, number, customer_id, warehouse_id, rep_id, date, status, doc_discount_kind, doc_discount_value,
 subtotal, discount_total, tax_total, total, total_cost, commission, note, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		invoice.ID, number, invoice.CustomerID, invoice.WarehouseID, invoice.RepID, invoice.Date,
		string(invoice.Status), string(invoice.DocDiscountKind), invoice.DocDiscountValue,
		invoice.Subtotal, invoice.DiscountTotal, invoice.TaxTotal, invoice.Total, invoice.TotalCost,
		invoice.Commission, invoice.Note, invoice.CreatedBy); err != nil {
		return err
	}

	for _, line := range invoice.Lines {
		if _, err := tx.Exec(ctx, `INSERT INTO sales_invoice_lines
(invoice_id, product_id, description, qty, unit_price, discount_kind, discount_value, tax_rate,
 subtotal, discount_amount, tax_amount, total, unit_cost, total_cost)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			invoice.ID, line.ProductID, line.Description, line.Qty, line.UnitPrice,
			string(line.DiscountKind), line.DiscountValue, line.TaxRate,
			line.Subtotal, line.DiscountAmt, line.TaxAmt, line.Total, line.UnitCost, line.TotalCost); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) MarkPosted(ctx context.Context, invoice Invoice) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, `UPDATE sales_invoices
SET status=$2, total_cost=$3, posted_at=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, invoice.ID, string(InvoiceStatusPosted), invoice.TotalCost, invoice.PostedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	for _, line := range invoice.Lines {
		if _, err := tx.Exec(ctx, `UPDATE sales_invoice_lines SET unit_cost=$2, total_cost=$3 WHERE id=$1`,
			line.ID, line.UnitCost, line.TotalCost); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE sales_invoices SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

const customerColumns = `id, name_ar, phone, tax_number, is_active, created_at, updated_at`

func (r *Repository) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE ($1 = '' OR name_ar ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
ORDER BY name_ar ASC LIMIT 200`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, customer)
	}
	return out, rows.Err()
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	customer, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return customer, nil
}

func (r *Repository) InsertCustomer(ctx context.Context, customer Customer) (Customer, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO customers (name_ar, phone, tax_number, is_active)
VALUES ($1,$2,$3,true) RETURNING `+customerColumns, customer.NameAr, customer.Phone, customer.TaxNumber)
	return scanCustomer(row)
}

func (r *Repository) UpdateCustomer(ctx context.Context, id int64, customer Customer) error {
	cmd, err := r.db.Exec(ctx, `UPDATE customers SET name_ar=$2, phone=$3, tax_number=$4, updated_at=NOW() WHERE id=$1`,
		id, customer.NameAr, customer.Phone, customer.TaxNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var status, docKind string
	var postedAt *time.Time
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.WarehouseID, &inv.RepID, &inv.Date, &status,
		&docKind, &inv.DocDiscountValue, &inv.Subtotal, &inv.DiscountTotal, &inv.TaxTotal, &inv.Total,
		&inv.TotalCost, &inv.Commission, &inv.Note, &inv.CreatedBy, &postedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = InvoiceStatus(status)
	inv.DocDiscountKind = discountKind(docKind)
	if postedAt != nil {
		inv.PostedAt = *postedAt
	}
	return inv, nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.NameAr, &c.Phone, &c.TaxNumber, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
