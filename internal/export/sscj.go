package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
)

// Колонки регламентной формы. Формат фиксированный,
// внешняя система разбирает его по заголовкам.
var header = []interface{}{
	"no",
	"catalog_ref",
	"description",
	"unit",
	"requested_qty",
	"unit_price",
	"line_total",
}

// BuildSSCJ собирает регламентную выгрузку заявки.
// Чистая функция от переданных данных: ничего не читает и не пишет,
// актуальность позиций обеспечивает вызывающая сторона.
func BuildSSCJ(req *budget.Request, items []lineitems.Item, now time.Time) ([]byte, string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	meta := [][]interface{}{
		{"fiscal_year", req.FiscalYear},
		{"request_id", req.ID},
		{"status", string(req.Status)},
		{"generated_at", now.Format("2006-01-02 15:04:05")},
	}
	for i, row := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, "", fmt.Errorf("sscj meta cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("sscj meta row: %w", err)
		}
	}

	headerRow := len(meta) + 2 // пустая строка между шапкой и таблицей
	cell, err := excelize.CoordinatesToCellName(1, headerRow)
	if err != nil {
		return nil, "", fmt.Errorf("sscj header cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return nil, "", fmt.Errorf("sscj header row: %w", err)
	}

	row := headerRow + 1
	var total float64
	for i, it := range items {
		excelRow := []interface{}{
			i + 1,
			it.CatalogRef,
			it.Description,
			it.Unit,
			it.RequestedQty,
			it.UnitPrice,
			it.LineTotal(),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, "", fmt.Errorf("sscj item cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, "", fmt.Errorf("sscj item row: %w", err)
		}
		total += it.LineTotal()
		row++
	}

	totalRow := []interface{}{"", "", "", "", "", "total", total}
	cell, err = excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return nil, "", fmt.Errorf("sscj total cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &totalRow); err != nil {
		return nil, "", fmt.Errorf("sscj total row: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, "", fmt.Errorf("sscj write: %w", err)
	}

	filename := fmt.Sprintf("%s-%s-sscj.xlsx", req.FiscalYear, req.ID)
	return buf.Bytes(), filename, nil
}
