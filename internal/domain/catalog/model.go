package catalog

import "time"

// Entry — позиция мастер-каталога. Каталог для сервиса только на чтение,
// его ведёт внешняя система; цена отсюда снимается в заявку один раз.
type Entry struct {
	Code        string
	Description string
	Unit        string
	Category    string
	UnitPrice   float64
	Active      bool
	CreatedAt   time.Time
}

// Filter сужает выборку каталога при инициализации заявки.
// Пустой фильтр означает «весь активный каталог».
type Filter struct {
	Category string
	Codes    []string
}
