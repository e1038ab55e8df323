package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// ListFilters narrows product listings.
type ListFilters struct {
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, name_ar, name, unit_of_measure, price, standard_cost, tax_rate, valuation_method, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (name_ar ILIKE $` + strconv.Itoa(argCount) + ` OR name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		cond := ` AND is_active = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY sku ASC`
	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
}

func (r *repository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE sku=$1`, sku)
}

func (r *repository) one(ctx context.Context, query string, arg any) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO products (sku, name_ar, name, unit_of_measure, price, standard_cost, tax_rate, valuation_method, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true) RETURNING `+productColumns,
		product.SKU, product.NameAr, product.Name, product.UnitOfMeasure, product.Price,
		product.StandardCost, product.TaxRate, string(product.ValuationMethod))
	return scanProduct(row)
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	cmd, err := r.db.Exec(ctx, `UPDATE products SET name_ar=$2, name=$3, unit_of_measure=$4, price=$5, standard_cost=$6, tax_rate=$7, valuation_method=$8, updated_at=NOW()
WHERE id=$1`, id, product.NameAr, product.Name, product.UnitOfMeasure, product.Price,
		product.StandardCost, product.TaxRate, string(product.ValuationMethod))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE products SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var method string
	err := row.Scan(&p.ID, &p.SKU, &p.NameAr, &p.Name, &p.UnitOfMeasure, &p.Price,
		&p.StandardCost, &p.TaxRate, &method, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.ValuationMethod = parseMethod(method)
	return p, nil
}
