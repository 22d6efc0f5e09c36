package lineitems

import "time"

// Item — одна строка заявки. Цена фиксируется при инициализации
// из каталога и дальше живёт своей жизнью (не подтягивается заново).
type Item struct {
	ID           int64
	RequestID    string
	CatalogRef   string
	Description  string
	Unit         string
	RequestedQty float64
	UnitPrice    float64
	CreatedAt    time.Time
}

// LineTotal — производное значение, в БД не хранится.
func (i *Item) LineTotal() float64 { return i.RequestedQty * i.UnitPrice }

// NewItem — заготовка строки для массовой вставки.
type NewItem struct {
	CatalogRef   string
	Description  string
	Unit         string
	RequestedQty float64
	UnitPrice    float64
}

// Редактируемые поля строки. catalogRef и цена из каталога неизменяемы,
// править можно количество и цену-снимок.
const (
	FieldRequestedQty = "requestedQty"
	FieldUnitPrice    = "unitPrice"
)

// EditableField — известно ли такое поле батч-редактору.
func EditableField(f string) bool {
	return f == FieldRequestedQty || f == FieldUnitPrice
}

// FieldUpdate — набор изменений одной строки внутри батча.
// nil означает «поле не трогаем».
type FieldUpdate struct {
	RequestedQty *float64
	UnitPrice    *float64
}
