package budget

import "github.com/aegisx-platform/budget-service/internal/apperr"

// Переходы строго вперёд по цепочке согласования,
// отмена возможна только из DRAFT и SUBMITTED.
var transitions = map[Status][]Status{
	StatusDraft:              {StatusSubmitted, StatusCancelled},
	StatusSubmitted:          {StatusDepartmentApproved, StatusCancelled},
	StatusDepartmentApproved: {StatusFinanceApproved},
	StatusFinanceApproved:    {}, // терминальный
	StatusCancelled:          {},
}

// ValidStatus проверяет, что строка из БД/запроса — известный статус.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CheckTransition возвращает nil, если переход from -> to допустим.
// Повторный вызов, когда статус уже равен целевому, считается успехом —
// это защита от дублей при сетевых ретраях.
func CheckTransition(from, to Status) error {
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return &apperr.InvalidTransitionError{Current: string(from), Requested: string(to)}
}

// CheckSubmit — отдельное правило для DRAFT -> SUBMITTED:
// нужна хотя бы одна позиция и положительная сумма.
func CheckSubmit(from Status, itemCount int, totalAmount float64) error {
	if from == StatusSubmitted {
		return nil
	}
	if err := CheckTransition(from, StatusSubmitted); err != nil {
		return err
	}
	if itemCount == 0 {
		return &apperr.InvalidTransitionError{
			Current:   string(from),
			Requested: string(StatusSubmitted),
			Reason:    "request has no line items",
		}
	}
	if totalAmount <= 0 {
		return &apperr.InvalidTransitionError{
			Current:   string(from),
			Requested: string(StatusSubmitted),
			Reason:    "total amount must be greater than zero",
		}
	}
	return nil
}
