package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mizan-erp/mizan-erp/internal/accounting/shared"
)

type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
	List(ctx context.Context, module string) ([]AccountMapping, error)
	Upsert(ctx context.Context, mapping AccountMapping) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errors.New("accounting: module and key required")
	}
	normalized := strings.ToUpper(module)
	var mapping AccountMapping
	err := r.db.QueryRow(ctx, `SELECT module, key, account_id, created_at, updated_at FROM account_mappings WHERE module=$1 AND key=$2`, normalized, key).
		Scan(&mapping.Module, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

// List returns mappings, optionally filtered by module.
func (r *repository) List(ctx context.Context, module string) ([]AccountMapping, error) {
	query := `SELECT module, key, account_id, created_at, updated_at FROM account_mappings ORDER BY module, key`
	args := []any{}
	if module != "" {
		query = `SELECT module, key, account_id, created_at, updated_at FROM account_mappings WHERE module=$1 ORDER BY key`
		args = append(args, strings.ToUpper(module))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AccountMapping
	for rows.Next() {
		var mapping AccountMapping
		if err := rows.Scan(&mapping.Module, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, mapping)
	}
	return items, rows.Err()
}

// Upsert installs or replaces a mapping.
func (r *repository) Upsert(ctx context.Context, mapping AccountMapping) error {
	if mapping.Module == "" || mapping.Key == "" || mapping.AccountID == 0 {
		return errors.New("accounting: module, key and account required")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO account_mappings (module, key, account_id, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (module, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`,
		strings.ToUpper(mapping.Module), mapping.Key, mapping.AccountID)
	return err
}
