package workflow

import (
	"context"

	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/catalog"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
)

// Зависимости передаются через конструктор — никакого
// глобального реестра и «текущей заявки» в неявном контексте.

type RequestStore interface {
	Create(ctx context.Context, fiscalYear, justification string) (*budget.Request, error)
	GetByID(ctx context.Context, id string) (*budget.Request, error)
	Transition(ctx context.Context, id string, to budget.Status) (*budget.Request, error)
	DeleteDraft(ctx context.Context, id string) error
}

type ItemStore interface {
	List(ctx context.Context, requestID string) ([]lineitems.Item, error)
	Count(ctx context.Context, requestID string) (int, error)
	BulkInsert(ctx context.Context, requestID string, items []lineitems.NewItem) (int, error)
	ApplyEdits(ctx context.Context, requestID string, edits map[int64]lineitems.FieldUpdate) ([]lineitems.Item, error)
}

type Catalog interface {
	ListActive(ctx context.Context, f catalog.Filter) ([]catalog.Entry, error)
	GetByCode(ctx context.Context, code string) (*catalog.Entry, error)
}

// Notifier получает события жизненного цикла (submit, согласования, отмена).
type Notifier interface {
	StatusChanged(ctx context.Context, req *budget.Request)
}

// NopNotifier — заглушка, когда канал уведомлений не настроен.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(context.Context, *budget.Request) {}
