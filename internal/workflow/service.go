package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aegisx-platform/budget-service/internal/apperr"
	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
	"github.com/aegisx-platform/budget-service/internal/export"
	"github.com/aegisx-platform/budget-service/internal/infra/metrics"
	"github.com/aegisx-platform/budget-service/internal/session"
)

// Service — фасад рабочего процесса заявки: принимает внешние команды,
// проверяет статус и раздаёт работу хранилищам.
type Service struct {
	log      *slog.Logger
	requests RequestStore
	items    ItemStore
	catalog  Catalog
	sessions *session.Manager
	notify   Notifier
	now      func() time.Time
}

func New(log *slog.Logger, requests RequestStore, items ItemStore,
	cat Catalog, sessions *session.Manager, notify Notifier) *Service {

	if notify == nil {
		notify = NopNotifier{}
	}
	return &Service{
		log:      log,
		requests: requests,
		items:    items,
		catalog:  cat,
		sessions: sessions,
		notify:   notify,
		now:      time.Now,
	}
}

// Snapshot — состояние заявки после команды: сама заявка и её позиции.
type Snapshot struct {
	Request *budget.Request
	Items   []lineitems.Item
}

// CellEdit — одна правка ячейки в батч-запросе.
type CellEdit struct {
	LineID int64
	Field  string
	Value  float64
}

func (s *Service) Create(ctx context.Context, fiscalYear, justification string) (*budget.Request, error) {
	fiscalYear = strings.TrimSpace(fiscalYear)
	if fiscalYear == "" {
		verr := &apperr.ValidationError{}
		verr.Add(0, "fiscalYear", "must not be empty")
		return nil, s.done("create", verr)
	}
	req, err := s.requests.Create(ctx, fiscalYear, justification)
	if err != nil {
		return nil, s.done("create", err)
	}
	s.log.Info("budget request created", "request_id", req.ID, "fiscal_year", req.FiscalYear)
	return req, s.done("create", nil)
}

func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &apperr.NotFoundError{Kind: "budget_request", ID: id}
	}
	items, err := s.items.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Request: req, Items: items}, nil
}

// EditCells применяет батч правок: правки складываются в сессию заявки
// и уходят в хранилище одним вызовом. При ошибке сессия сохраняет
// накопленное — клиент может повторить коммит без перенабора.
func (s *Service) EditCells(ctx context.Context, id string, edits []CellEdit) (*Snapshot, error) {
	unlock := s.sessions.Lock(id)
	defer unlock()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, s.done("edit_cells", err)
	}
	if req == nil {
		return nil, s.done("edit_cells", &apperr.NotFoundError{Kind: "budget_request", ID: id})
	}
	if !req.Editable() {
		return nil, s.done("edit_cells", &apperr.ImmutableStateError{Status: string(req.Status)})
	}

	// Свежие серверные значения — базис для подавления пустых правок:
	// правка, совпадающая с базисом, не делает сессию грязной.
	current, err := s.items.List(ctx, id)
	if err != nil {
		return nil, s.done("edit_cells", err)
	}
	sess := s.sessions.Session(id)
	sess.SetBaseline(current)

	verr := &apperr.ValidationError{}
	for _, e := range edits {
		if err := sess.RecordEdit(e.LineID, e.Field, e.Value); err != nil {
			var v *apperr.ValidationError
			if errors.As(err, &v) {
				verr.Fields = append(verr.Fields, v.Fields...)
				continue
			}
			return nil, s.done("edit_cells", err)
		}
	}
	if !verr.Empty() {
		return nil, s.done("edit_cells", verr)
	}

	if sess.Dirty() {
		if _, err := s.items.ApplyEdits(ctx, id, sess.FieldUpdates()); err != nil {
			// Правки остаются в сессии до успешного коммита. Исключение —
			// правка несуществующей строки: ретрай её не вылечит, выбрасываем.
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) && nf.Kind == "line_item" {
				if lineID, perr := strconv.ParseInt(nf.ID, 10, 64); perr == nil {
					sess.DropLine(lineID)
				}
			}
			return nil, s.done("edit_cells", err)
		}
		sess.Clear()
	}

	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, s.done("edit_cells", err)
	}
	s.log.Info("batch edit committed", "request_id", id,
		"edits", len(edits), "total_amount", snap.Request.TotalAmount)
	return snap, s.done("edit_cells", nil)
}

func (s *Service) Submit(ctx context.Context, id string) (*budget.Request, error) {
	return s.transition(ctx, "submit", id, budget.StatusSubmitted)
}

func (s *Service) DepartmentApprove(ctx context.Context, id string) (*budget.Request, error) {
	return s.transition(ctx, "department_approve", id, budget.StatusDepartmentApproved)
}

func (s *Service) FinanceApprove(ctx context.Context, id string) (*budget.Request, error) {
	return s.transition(ctx, "finance_approve", id, budget.StatusFinanceApproved)
}

func (s *Service) Cancel(ctx context.Context, id string) (*budget.Request, error) {
	return s.transition(ctx, "cancel", id, budget.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, cmd, id string, to budget.Status) (*budget.Request, error) {
	unlock := s.sessions.Lock(id)
	defer unlock()

	req, err := s.requests.Transition(ctx, id, to)
	if err != nil {
		return nil, s.done(cmd, err)
	}
	s.log.Info("status changed", "request_id", id, "status", req.Status)
	s.notify.StatusChanged(ctx, req)
	return req, s.done(cmd, nil)
}

func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	unlock := s.sessions.Lock(id)
	defer unlock()

	if err := s.requests.DeleteDraft(ctx, id); err != nil {
		return s.done("delete_draft", err)
	}
	s.sessions.Drop(id)
	s.log.Info("draft deleted", "request_id", id)
	return s.done("delete_draft", nil)
}

// Export выгружает актуальные позиции — чтение всегда сквозь хранилище,
// никакого кэша. Статус не важен, кроме отменённой заявки.
func (s *Service) Export(ctx context.Context, id string) ([]byte, string, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, "", s.done("export", err)
	}
	if req == nil {
		return nil, "", s.done("export", &apperr.NotFoundError{Kind: "budget_request", ID: id})
	}
	if !req.Exportable() {
		return nil, "", s.done("export", &apperr.ConflictError{
			Message: "cancelled request cannot be exported",
		})
	}

	items, err := s.items.List(ctx, id)
	if err != nil {
		return nil, "", s.done("export", err)
	}
	payload, filename, err := export.BuildSSCJ(req, items, s.now())
	if err != nil {
		return nil, "", s.done("export", err)
	}
	s.log.Info("export built", "request_id", id, "items", len(items), "file", filename)
	return payload, filename, s.done("export", nil)
}

// done фиксирует метрику исхода команды и пробрасывает ошибку как есть.
func (s *Service) done(cmd string, err error) error {
	metrics.Command(cmd, err)
	return err
}
