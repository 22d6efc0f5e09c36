package budget

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegisx-platform/budget-service/internal/apperr"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, fiscalYear, justification string) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO budget_requests (id, fiscal_year, justification, status, total_amount)
		VALUES ($1,$2,$3,'DRAFT',0)
		RETURNING id, fiscal_year, justification, status, total_amount, created_at, updated_at
	`, uuid.NewString(), fiscalYear, justification)
	return scanRequest(row)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, fiscal_year, justification, status, total_amount, created_at, updated_at
		FROM budget_requests WHERE id = $1
	`, id)
	req, err := scanRequest(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Transition переводит заявку в статус to в одной транзакции.
// Строка блокируется на время проверки, чтобы два конкурентных перехода
// не прочитали один и тот же исходный статус.
// Если статус уже равен целевому — успех без записи (идемпотентный ретрай).
func (r *Repo) Transition(ctx context.Context, id string, to Status) (*Request, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		current Status
		total   float64
	)
	err = tx.QueryRow(ctx, `
		SELECT status, total_amount FROM budget_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&current, &total)
	if err == pgx.ErrNoRows {
		return nil, &apperr.NotFoundError{Kind: "budget_request", ID: id}
	}
	if err != nil {
		return nil, err
	}

	if current == to {
		// Дубль от ретрая — возвращаем текущее состояние как есть.
		row := tx.QueryRow(ctx, `
			SELECT id, fiscal_year, justification, status, total_amount, created_at, updated_at
			FROM budget_requests WHERE id = $1
		`, id)
		req, err := scanRequest(row)
		if err != nil {
			return nil, err
		}
		return req, tx.Commit(ctx)
	}

	if to == StatusSubmitted {
		var count int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM budget_line_items WHERE request_id = $1
		`, id).Scan(&count); err != nil {
			return nil, err
		}
		if err := CheckSubmit(current, count, total); err != nil {
			return nil, err
		}
	} else if err := CheckTransition(current, to); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE budget_requests SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, fiscal_year, justification, status, total_amount, created_at, updated_at
	`, id, string(to))
	req, err := scanRequest(row)
	if err != nil {
		return nil, err
	}
	return req, tx.Commit(ctx)
}

// DeleteDraft удаляет черновик вместе с позициями.
// Позиции не существуют вне заявки, отдельного удаления у них нет.
func (r *Repo) DeleteDraft(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `
		SELECT status FROM budget_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err == pgx.ErrNoRows {
		return &apperr.NotFoundError{Kind: "budget_request", ID: id}
	}
	if err != nil {
		return err
	}
	if current != StatusDraft {
		return &apperr.ConflictError{
			Message: fmt.Sprintf("only DRAFT requests can be deleted, current status is %s", current),
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM budget_line_items WHERE request_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM budget_requests WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.FiscalYear, &req.Justification, &req.Status,
		&req.TotalAmount, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
