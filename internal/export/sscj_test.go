package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
)

func TestBuildSSCJRoundTrip(t *testing.T) {
	req := &budget.Request{
		ID:         "8e3f0c1a-0000-0000-0000-000000000001",
		FiscalYear: "2569",
		Status:     budget.StatusSubmitted,
	}
	items := []lineitems.Item{
		{ID: 1, CatalogRef: "MAT-001", Description: "Офисная бумага A4", Unit: "пачка", RequestedQty: 10, UnitPrice: 120},
		{ID: 2, CatalogRef: "MAT-002", Description: "Картридж для принтера", Unit: "шт", RequestedQty: 2, UnitPrice: 2400},
		{ID: 3, CatalogRef: "EQP-001", Description: "Настольная лампа", Unit: "шт", RequestedQty: 1, UnitPrice: 1500},
	}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	payload, filename, err := BuildSSCJ(req, items, now)
	require.NoError(t, err)
	assert.Equal(t, "2569-8e3f0c1a-0000-0000-0000-000000000001-sscj.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)

	// Шапка: 4 строки метаданных, пустая строка, заголовок таблицы.
	require.GreaterOrEqual(t, len(rows), 6+len(items)+1)
	assert.Equal(t, []string{"fiscal_year", "2569"}, rows[0][:2])
	assert.Equal(t, "request_id", rows[1][0])
	assert.Equal(t, req.ID, rows[1][1])
	assert.Equal(t, "SUBMITTED", rows[2][1])

	headerRow := rows[5]
	assert.Equal(t, "catalog_ref", headerRow[1])
	assert.Equal(t, "line_total", headerRow[6])

	// В выгрузке все позиции — не больше и не меньше.
	dataRows := rows[6 : 6+len(items)]
	refs := make([]string, 0, len(dataRows))
	for _, r := range dataRows {
		refs = append(refs, r[1])
	}
	assert.Equal(t, []string{"MAT-001", "MAT-002", "EQP-001"}, refs)

	// Пост-редакционные значения и построчные суммы.
	assert.Equal(t, "10", dataRows[0][4])
	assert.Equal(t, "120", dataRows[0][5])
	assert.Equal(t, "1200", dataRows[0][6])

	totalRow := rows[6+len(items)]
	assert.Equal(t, "total", totalRow[5])
	assert.Equal(t, "7500", totalRow[6])
}

func TestBuildSSCJEmptyRequest(t *testing.T) {
	req := &budget.Request{ID: "abc", FiscalYear: "2569", Status: budget.StatusDraft}

	payload, filename, err := BuildSSCJ(req, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2569-abc-sscj.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)

	totalRow := rows[len(rows)-1]
	assert.Equal(t, "total", totalRow[5])
	assert.Equal(t, "0", totalRow[6])
}
