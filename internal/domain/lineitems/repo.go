package lineitems

import (
	"context"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegisx-platform/budget-service/internal/apperr"
	"github.com/aegisx-platform/budget-service/internal/domain/budget"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// List возвращает позиции в порядке вставки — грид рассчитывает
// на стабильный порядок строк.
func (r *Repo) List(ctx context.Context, requestID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, catalog_ref, description, unit, requested_qty, unit_price, created_at
		FROM budget_line_items
		WHERE request_id = $1
		ORDER BY id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.RequestID, &it.CatalogRef, &it.Description,
			&it.Unit, &it.RequestedQty, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Count(ctx context.Context, requestID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM budget_line_items WHERE request_id = $1
	`, requestID).Scan(&n)
	return n, err
}

// BulkInsert — одноразовое заполнение позиций заявки.
// Вставка условная: один INSERT ... SELECT с проверкой «позиций ещё нет»,
// а не проверка-потом-вставка, чтобы два конкурентных вызова не прошли оба.
func (r *Repo) BulkInsert(ctx context.Context, requestID string, items []NewItem) (int, error) {
	if len(items) == 0 {
		return 0, &apperr.ConflictError{Message: "nothing to insert: empty item set"}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return 0, err
	}
	if status != budget.StatusDraft {
		return 0, &apperr.ConflictError{
			Message: "request is not a draft, status is " + string(status),
		}
	}

	refs := make([]string, len(items))
	descs := make([]string, len(items))
	units := make([]string, len(items))
	qtys := make([]float64, len(items))
	prices := make([]float64, len(items))
	for i, it := range items {
		refs[i] = it.CatalogRef
		descs[i] = it.Description
		units[i] = it.Unit
		qtys[i] = it.RequestedQty
		prices[i] = it.UnitPrice
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO budget_line_items (request_id, catalog_ref, description, unit, requested_qty, unit_price)
		SELECT $1, t.ref, t.descr, t.unit, t.qty, t.price
		FROM unnest($2::text[], $3::text[], $4::text[], $5::float8[], $6::float8[])
		     AS t(ref, descr, unit, qty, price)
		WHERE NOT EXISTS (SELECT 1 FROM budget_line_items WHERE request_id = $1)
	`, requestID, refs, descs, units, qtys, prices)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, &apperr.ConflictError{Message: "request already has line items"}
	}

	if err := recomputeTotal(ctx, tx, requestID); err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), tx.Commit(ctx)
}

// ApplyEdits применяет весь батч целиком или не применяет ничего.
// Ошибки валидации собираются по всем строкам сразу, а не по первой.
func (r *Repo) ApplyEdits(ctx context.Context, requestID string, edits map[int64]FieldUpdate) ([]Item, error) {
	if verr := Validate(edits); verr != nil {
		return nil, verr
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if status != budget.StatusDraft {
		return nil, &apperr.ImmutableStateError{Status: string(status)}
	}

	// Детерминированный порядок применения, чтобы поведение было воспроизводимым.
	ids := make([]int64, 0, len(edits))
	for id := range edits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	updated := make([]Item, 0, len(ids))
	for _, lineID := range ids {
		upd := edits[lineID]
		row := tx.QueryRow(ctx, `
			UPDATE budget_line_items
			SET requested_qty = COALESCE($3, requested_qty),
			    unit_price    = COALESCE($4, unit_price)
			WHERE id = $1 AND request_id = $2
			RETURNING id, request_id, catalog_ref, description, unit, requested_qty, unit_price, created_at
		`, lineID, requestID, upd.RequestedQty, upd.UnitPrice)
		var it Item
		err := row.Scan(&it.ID, &it.RequestID, &it.CatalogRef, &it.Description,
			&it.Unit, &it.RequestedQty, &it.UnitPrice, &it.CreatedAt)
		if err == pgx.ErrNoRows {
			return nil, &apperr.NotFoundError{Kind: "line_item", ID: strconv.FormatInt(lineID, 10)}
		}
		if err != nil {
			return nil, err
		}
		updated = append(updated, it)
	}

	if err := recomputeTotal(ctx, tx, requestID); err != nil {
		return nil, err
	}
	return updated, tx.Commit(ctx)
}

// Validate проверяет значения батча до обращения к БД.
func Validate(edits map[int64]FieldUpdate) error {
	verr := &apperr.ValidationError{}
	for lineID, upd := range edits {
		if upd.RequestedQty != nil && *upd.RequestedQty < 0 {
			verr.Add(lineID, FieldRequestedQty, "must be >= 0")
		}
		if upd.UnitPrice != nil && *upd.UnitPrice < 0 {
			verr.Add(lineID, FieldUnitPrice, "must be >= 0")
		}
		if upd.RequestedQty == nil && upd.UnitPrice == nil {
			verr.Add(lineID, "", "no editable fields in edit")
		}
	}
	if verr.Empty() {
		return nil
	}
	// Стабильный порядок сообщений.
	sort.Slice(verr.Fields, func(i, j int) bool {
		if verr.Fields[i].LineID != verr.Fields[j].LineID {
			return verr.Fields[i].LineID < verr.Fields[j].LineID
		}
		return verr.Fields[i].Field < verr.Fields[j].Field
	})
	return verr
}

// lockRequest блокирует строку заявки на время транзакции.
// Все мутации позиций идут через эту блокировку.
func lockRequest(ctx context.Context, tx pgx.Tx, requestID string) (budget.Status, error) {
	var status budget.Status
	err := tx.QueryRow(ctx, `
		SELECT status FROM budget_requests WHERE id = $1 FOR UPDATE
	`, requestID).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", &apperr.NotFoundError{Kind: "budget_request", ID: requestID}
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// total_amount пересчитывается в той же транзакции, что и мутация позиций.
func recomputeTotal(ctx context.Context, tx pgx.Tx, requestID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE budget_requests
		SET total_amount = (
			SELECT COALESCE(SUM(requested_qty * unit_price), 0)
			FROM budget_line_items WHERE request_id = $1
		), updated_at = now()
		WHERE id = $1
	`, requestID)
	return err
}
