package session

import (
	"sort"

	"github.com/aegisx-platform/budget-service/internal/apperr"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
)

// PendingEdit — одна несохранённая правка ячейки (строка, поле, значение).
type PendingEdit struct {
	LineID int64
	Field  string
	Value  float64
	Seq    int
}

type cellKey struct {
	lineID int64
	field  string
}

// Session копит правки грида до одного сетевого вызова commit.
// Полностью в памяти, никуда не ходит и нигде не блокируется.
type Session struct {
	requestID string
	seq       int
	edits     map[cellKey]PendingEdit
	baseline  map[cellKey]float64 // последние известные серверные значения
}

func New(requestID string) *Session {
	return &Session{
		requestID: requestID,
		edits:     make(map[cellKey]PendingEdit),
		baseline:  make(map[cellKey]float64),
	}
}

func (s *Session) RequestID() string { return s.requestID }

// SetBaseline запоминает серверные значения ячеек: правка,
// совпадающая с ними, не делает сессию «грязной».
func (s *Session) SetBaseline(items []lineitems.Item) {
	for _, it := range items {
		s.baseline[cellKey{it.ID, lineitems.FieldRequestedQty}] = it.RequestedQty
		s.baseline[cellKey{it.ID, lineitems.FieldUnitPrice}] = it.UnitPrice
	}
}

// RecordEdit — семантика перезаписи: последняя правка ячейки побеждает,
// ранние правки той же ячейки замещаются, а не суммируются.
func (s *Session) RecordEdit(lineID int64, field string, value float64) error {
	if !lineitems.EditableField(field) {
		verr := &apperr.ValidationError{}
		verr.Add(lineID, field, "unknown or read-only field")
		return verr
	}
	if value < 0 {
		verr := &apperr.ValidationError{}
		verr.Add(lineID, field, "must be >= 0")
		return verr
	}

	key := cellKey{lineID, field}
	if base, ok := s.baseline[key]; ok && base == value {
		// Значение не отличается от серверного — правка не нужна.
		delete(s.edits, key)
		return nil
	}

	s.seq++
	s.edits[key] = PendingEdit{LineID: lineID, Field: field, Value: value, Seq: s.seq}
	return nil
}

// Edits возвращает накопленные правки в порядке editSequence.
func (s *Session) Edits() []PendingEdit {
	out := make([]PendingEdit, 0, len(s.edits))
	for _, e := range s.edits {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// FieldUpdates сворачивает правки в форму батча для хранилища.
func (s *Session) FieldUpdates() map[int64]lineitems.FieldUpdate {
	out := make(map[int64]lineitems.FieldUpdate)
	for _, e := range s.Edits() {
		upd := out[e.LineID]
		v := e.Value
		switch e.Field {
		case lineitems.FieldRequestedQty:
			upd.RequestedQty = &v
		case lineitems.FieldUnitPrice:
			upd.UnitPrice = &v
		}
		out[e.LineID] = upd
	}
	return out
}

// DropLine выбрасывает накопленные правки одной строки. Нужен, когда
// хранилище сообщило, что строки нет: повторять такую правку бессмысленно.
func (s *Session) DropLine(lineID int64) {
	delete(s.edits, cellKey{lineID, lineitems.FieldRequestedQty})
	delete(s.edits, cellKey{lineID, lineitems.FieldUnitPrice})
}

func (s *Session) Len() int    { return len(s.edits) }
func (s *Session) Dirty() bool { return len(s.edits) > 0 }

// Clear вызывается только после успешного коммита.
// При ошибке правки остаются — пользователь не перенабирает данные.
func (s *Session) Clear() {
	s.edits = make(map[cellKey]PendingEdit)
	s.baseline = make(map[cellKey]float64)
	s.seq = 0
}
