package budget

import "time"

type Status string

const (
	StatusDraft              Status = "DRAFT"
	StatusSubmitted          Status = "SUBMITTED"
	StatusDepartmentApproved Status = "DEPARTMENT_APPROVED"
	StatusFinanceApproved    Status = "FINANCE_APPROVED"
	StatusCancelled          Status = "CANCELLED"
)

type Request struct {
	ID            string
	FiscalYear    string // год фиксируется при создании и больше не меняется
	Justification string
	Status        Status
	TotalAmount   float64 // производное поле: сумма qty*price по позициям
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Editable — можно ли сейчас менять позиции заявки.
func (r *Request) Editable() bool { return r.Status == StatusDraft }

// Exportable — выгрузка доступна в любом статусе, кроме отменённой.
func (r *Request) Exportable() bool { return r.Status != StatusCancelled }
