package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError — запрошенного объекта нет (request или line item).
type NotFoundError struct {
	Kind string // "budget_request" | "line_item" | "catalog_entry"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError — нарушено предусловие о текущем состоянии
// (например, повторная инициализация непустой заявки).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// InvalidTransitionError — недопустимый переход статуса.
// Всегда несёт текущий и запрошенный статус.
type InvalidTransitionError struct {
	Current   string
	Requested string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.Current, e.Requested, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.Current, e.Requested)
}

// ImmutableStateError — попытка менять позиции после закрытия окна
// редактирования (статус уже не DRAFT).
type ImmutableStateError struct {
	Status string
}

func (e *ImmutableStateError) Error() string {
	return fmt.Sprintf("line items are locked in status %s", e.Status)
}

// FieldError — одна ошибка валидации: какая строка, какое поле, что не так.
type FieldError struct {
	LineID  int64  `json:"lineId,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.LineID != 0 {
		return fmt.Sprintf("line %d, field %q: %s", e.LineID, e.Field, e.Message)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// ValidationError — агрегат всех ошибок валидации одного батча.
// Батч применяется целиком или не применяется вовсе.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.String())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(lineID int64, field, message string) {
	e.Fields = append(e.Fields, FieldError{LineID: lineID, Field: field, Message: message})
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func IsNotFound(err error) bool {
	var t *NotFoundError
	return errors.As(err, &t)
}

func IsConflict(err error) bool {
	var t *ConflictError
	return errors.As(err, &t)
}

func IsInvalidTransition(err error) bool {
	var t *InvalidTransitionError
	return errors.As(err, &t)
}

func IsImmutableState(err error) bool {
	var t *ImmutableStateError
	return errors.As(err, &t)
}

func IsValidation(err error) bool {
	var t *ValidationError
	return errors.As(err, &t)
}
