package workflow

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aegisx-platform/budget-service/internal/apperr"
	"github.com/aegisx-platform/budget-service/internal/domain/catalog"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
)

// Initialize заполняет черновик позициями из мастер-каталога.
// Цены снимаются на момент инициализации и дальше не пересчитываются.
// Условие «позиций ещё нет» проверяет само хранилище атомарно со вставкой.
func (s *Service) Initialize(ctx context.Context, id string, f catalog.Filter) (*Snapshot, error) {
	unlock := s.sessions.Lock(id)
	defer unlock()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, s.done("initialize", err)
	}
	if req == nil {
		return nil, s.done("initialize", &apperr.NotFoundError{Kind: "budget_request", ID: id})
	}

	entries, err := s.catalog.ListActive(ctx, f)
	if err != nil {
		return nil, s.done("initialize", err)
	}
	if len(entries) == 0 {
		return nil, s.done("initialize", &apperr.ConflictError{
			Message: "no active catalog entries match the filter",
		})
	}

	items := make([]lineitems.NewItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, lineitems.NewItem{
			CatalogRef:  e.Code,
			Description: e.Description,
			Unit:        e.Unit,
			UnitPrice:   e.UnitPrice,
			// Количество заполняет пользователь в гриде.
			RequestedQty: 0,
		})
	}

	inserted, err := s.items.BulkInsert(ctx, id, items)
	if err != nil {
		return nil, s.done("initialize", err)
	}
	s.log.Info("request initialized from catalog", "request_id", id, "items", inserted)

	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, s.done("initialize", err)
	}
	return snap, s.done("initialize", nil)
}

// Колонки файла загрузки: catalog_ref | qty. Остальное берётся из каталога.
const importColumns = 2

// ImportSpreadsheet — альтернатива инициализации из каталога:
// позиции приходят готовым файлом (например, из заполненной таблицы).
// Те же предусловия и та же атомарность, что у Initialize.
func (s *Service) ImportSpreadsheet(ctx context.Context, id string, data []byte) (*Snapshot, error) {
	unlock := s.sessions.Lock(id)
	defer unlock()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, s.done("import", err)
	}
	if req == nil {
		return nil, s.done("import", &apperr.NotFoundError{Kind: "budget_request", ID: id})
	}

	items, err := s.parseImport(ctx, data)
	if err != nil {
		return nil, s.done("import", err)
	}

	inserted, err := s.items.BulkInsert(ctx, id, items)
	if err != nil {
		return nil, s.done("import", err)
	}
	s.log.Info("request initialized from spreadsheet", "request_id", id, "items", inserted)

	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, s.done("import", err)
	}
	return snap, s.done("import", nil)
}

func (s *Service) parseImport(ctx context.Context, data []byte) ([]lineitems.NewItem, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		verr := &apperr.ValidationError{}
		verr.Add(0, "file", "cannot read spreadsheet (corrupted or not .xlsx)")
		return nil, verr
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		verr := &apperr.ValidationError{}
		verr.Add(0, "file", "spreadsheet has no data rows")
		return nil, verr
	}
	if len(rows[0]) < importColumns {
		verr := &apperr.ValidationError{}
		verr.Add(0, "file", fmt.Sprintf("expected at least %d columns (catalog_ref, qty)", importColumns))
		return nil, verr
	}

	verr := &apperr.ValidationError{}
	var items []lineitems.NewItem
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		// GetRows отбрасывает пустые ячейки в хвосте строки.
		if len(row) == 0 {
			continue
		}
		code := strings.TrimSpace(row[0])
		if code == "" {
			continue
		}
		qtyStr := ""
		if len(row) > 1 {
			qtyStr = strings.TrimSpace(row[1])
		}

		qty := 0.0
		if qtyStr != "" {
			qty, err = strconv.ParseFloat(strings.ReplaceAll(qtyStr, ",", "."), 64)
			if err != nil {
				verr.Add(0, "requestedQty", fmt.Sprintf("row %d: not a number (%q)", i+1, qtyStr))
				continue
			}
		}
		if qty < 0 {
			verr.Add(0, "requestedQty", fmt.Sprintf("row %d: must be >= 0", i+1))
			continue
		}

		entry, err := s.catalog.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if entry == nil || !entry.Active {
			verr.Add(0, "catalogRef", fmt.Sprintf("row %d: unknown or inactive catalog code %q", i+1, code))
			continue
		}

		items = append(items, lineitems.NewItem{
			CatalogRef:   entry.Code,
			Description:  entry.Description,
			Unit:         entry.Unit,
			UnitPrice:    entry.UnitPrice,
			RequestedQty: qty,
		})
	}

	if !verr.Empty() {
		return nil, verr
	}
	if len(items) == 0 {
		verr.Add(0, "file", "no usable rows in spreadsheet")
		return nil, verr
	}
	return items, nil
}
