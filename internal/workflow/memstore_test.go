package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aegisx-platform/budget-service/internal/apperr"
	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/catalog"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
)

// memStore — общая in-memory реализация хранилищ для тестов оркестратора.
// Повторяет контракт pgx-репозиториев: условная массовая вставка,
// батч целиком-или-ничего, пересчёт суммы при каждой мутации.
type memStore struct {
	mu       sync.Mutex
	requests map[string]*budget.Request
	items    map[string][]lineitems.Item
	catalog  []catalog.Entry
	nextReq  int
	nextLine int64

	// Инъекция сбоя для проверки удержания правок в сессии.
	failApplyOnce error
}

func newMemStore(entries ...catalog.Entry) *memStore {
	return &memStore{
		requests: make(map[string]*budget.Request),
		items:    make(map[string][]lineitems.Item),
		catalog:  entries,
	}
}

func (m *memStore) Create(_ context.Context, fiscalYear, justification string) (*budget.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReq++
	req := &budget.Request{
		ID:            fmt.Sprintf("req-%d", m.nextReq),
		FiscalYear:    fiscalYear,
		Justification: justification,
		Status:        budget.StatusDraft,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.requests[req.ID] = req
	return copyRequest(req), nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*budget.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return copyRequest(req), nil
}

func (m *memStore) Transition(_ context.Context, id string, to budget.Status) (*budget.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, &apperr.NotFoundError{Kind: "budget_request", ID: id}
	}
	if req.Status == to {
		return copyRequest(req), nil
	}
	if to == budget.StatusSubmitted {
		if err := budget.CheckSubmit(req.Status, len(m.items[id]), req.TotalAmount); err != nil {
			return nil, err
		}
	} else if err := budget.CheckTransition(req.Status, to); err != nil {
		return nil, err
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	return copyRequest(req), nil
}

func (m *memStore) DeleteDraft(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return &apperr.NotFoundError{Kind: "budget_request", ID: id}
	}
	if req.Status != budget.StatusDraft {
		return &apperr.ConflictError{Message: "only DRAFT requests can be deleted"}
	}
	delete(m.requests, id)
	delete(m.items, id)
	return nil
}

func (m *memStore) List(_ context.Context, requestID string) ([]lineitems.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]lineitems.Item, len(m.items[requestID]))
	copy(out, m.items[requestID])
	return out, nil
}

func (m *memStore) Count(_ context.Context, requestID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items[requestID]), nil
}

func (m *memStore) BulkInsert(_ context.Context, requestID string, items []lineitems.NewItem) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return 0, &apperr.NotFoundError{Kind: "budget_request", ID: requestID}
	}
	if req.Status != budget.StatusDraft {
		return 0, &apperr.ConflictError{Message: "request is not a draft"}
	}
	if len(m.items[requestID]) > 0 {
		return 0, &apperr.ConflictError{Message: "request already has line items"}
	}
	for _, it := range items {
		m.nextLine++
		m.items[requestID] = append(m.items[requestID], lineitems.Item{
			ID:           m.nextLine,
			RequestID:    requestID,
			CatalogRef:   it.CatalogRef,
			Description:  it.Description,
			Unit:         it.Unit,
			RequestedQty: it.RequestedQty,
			UnitPrice:    it.UnitPrice,
			CreatedAt:    time.Now(),
		})
	}
	m.recomputeLocked(requestID)
	return len(items), nil
}

func (m *memStore) ApplyEdits(_ context.Context, requestID string, edits map[int64]lineitems.FieldUpdate) ([]lineitems.Item, error) {
	if err := lineitems.Validate(edits); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApplyOnce != nil {
		err := m.failApplyOnce
		m.failApplyOnce = nil
		return nil, err
	}

	req, ok := m.requests[requestID]
	if !ok {
		return nil, &apperr.NotFoundError{Kind: "budget_request", ID: requestID}
	}
	if req.Status != budget.StatusDraft {
		return nil, &apperr.ImmutableStateError{Status: string(req.Status)}
	}

	idx := make(map[int64]int, len(m.items[requestID]))
	for i, it := range m.items[requestID] {
		idx[it.ID] = i
	}
	for lineID := range edits {
		if _, ok := idx[lineID]; !ok {
			return nil, &apperr.NotFoundError{Kind: "line_item", ID: fmt.Sprint(lineID)}
		}
	}

	ids := make([]int64, 0, len(edits))
	for id := range edits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	updated := make([]lineitems.Item, 0, len(ids))
	for _, lineID := range ids {
		upd := edits[lineID]
		it := &m.items[requestID][idx[lineID]]
		if upd.RequestedQty != nil {
			it.RequestedQty = *upd.RequestedQty
		}
		if upd.UnitPrice != nil {
			it.UnitPrice = *upd.UnitPrice
		}
		updated = append(updated, *it)
	}
	m.recomputeLocked(requestID)
	return updated, nil
}

func (m *memStore) recomputeLocked(requestID string) {
	var total float64
	for _, it := range m.items[requestID] {
		total += it.RequestedQty * it.UnitPrice
	}
	m.requests[requestID].TotalAmount = total
	m.requests[requestID].UpdatedAt = time.Now()
}

func (m *memStore) ListActive(_ context.Context, f catalog.Filter) ([]catalog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Entry
	for _, e := range m.catalog {
		if !e.Active {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if len(f.Codes) > 0 && !containsCode(f.Codes, e.Code) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) GetByCode(_ context.Context, code string) (*catalog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.catalog {
		if strings.EqualFold(e.Code, code) {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func copyRequest(req *budget.Request) *budget.Request {
	out := *req
	return &out
}

// recordingNotifier накапливает события для проверок.
type recordingNotifier struct {
	mu     sync.Mutex
	events []budget.Status
}

func (n *recordingNotifier) StatusChanged(_ context.Context, req *budget.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, req.Status)
}
