package reps

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mizan-erp/mizan-erp/internal/shared"
)

type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Rep, error)
	Get(ctx context.Context, id int64) (Rep, error)
	Create(ctx context.Context, rep Rep) (Rep, error)
	Update(ctx context.Context, id int64, rep Rep) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const repColumns = `id, name_ar, phone, commission_percent, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Rep, error) {
	rows, err := r.db.Query(ctx, `SELECT `+repColumns+` FROM sales_reps WHERE ($1 = false OR is_active) ORDER BY name_ar ASC`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rep
	for rows.Next() {
		rep, err := scanRep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Rep, error) {
	rep, err := scanRep(r.db.QueryRow(ctx, `SELECT `+repColumns+` FROM sales_reps WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rep{}, shared.ErrNotFound
		}
		return Rep{}, err
	}
	return rep, nil
}

func (r *repository) Create(ctx context.Context, rep Rep) (Rep, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO sales_reps (name_ar, phone, commission_percent, is_active)
VALUES ($1,$2,$3,true) RETURNING `+repColumns, rep.NameAr, rep.Phone, rep.CommissionPercent)
	return scanRep(row)
}

func (r *repository) Update(ctx context.Context, id int64, rep Rep) error {
	cmd, err := r.db.Exec(ctx, `UPDATE sales_reps SET name_ar=$2, phone=$3, commission_percent=$4, updated_at=NOW() WHERE id=$1`,
		id, rep.NameAr, rep.Phone, rep.CommissionPercent)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE sales_reps SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanRep(row pgx.Row) (Rep, error) {
	var rep Rep
	err := row.Scan(&rep.ID, &rep.NameAr, &rep.Phone, &rep.CommissionPercent, &rep.IsActive, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}
