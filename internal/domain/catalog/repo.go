package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// ListActive возвращает активные позиции каталога под фильтр.
func (r *Repo) ListActive(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT code, description, unit, category, unit_price, active, created_at
		FROM master_catalog
		WHERE active
	`
	args := []any{}
	if f.Category != "" {
		args = append(args, f.Category)
		query += ` AND category = $1`
	}
	if len(f.Codes) > 0 {
		args = append(args, f.Codes)
		if f.Category != "" {
			query += ` AND code = ANY($2)`
		} else {
			query += ` AND code = ANY($1)`
		}
	}
	query += ` ORDER BY code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Code, &e.Description, &e.Unit, &e.Category,
			&e.UnitPrice, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByCode возвращает позицию каталога (nil, nil — если её нет).
func (r *Repo) GetByCode(ctx context.Context, code string) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT code, description, unit, category, unit_price, active, created_at
		FROM master_catalog WHERE code = $1
	`, code)
	var e Entry
	if err := row.Scan(&e.Code, &e.Description, &e.Unit, &e.Category,
		&e.UnitPrice, &e.Active, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
