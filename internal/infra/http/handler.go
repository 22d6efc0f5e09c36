package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aegisx-platform/budget-service/internal/apperr"
	"github.com/aegisx-platform/budget-service/internal/domain/budget"
	"github.com/aegisx-platform/budget-service/internal/domain/catalog"
	"github.com/aegisx-platform/budget-service/internal/domain/lineitems"
	"github.com/aegisx-platform/budget-service/internal/workflow"
)

// Лимит на тело загружаемого файла с позициями.
const maxImportSize = 10 << 20

type Handler struct {
	log *slog.Logger
	svc *workflow.Service
}

func NewHandler(log *slog.Logger, svc *workflow.Service) *Handler {
	return &Handler{log: log, svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /budget-requests", h.create)
	mux.HandleFunc("GET /budget-requests/{id}", h.get)
	mux.HandleFunc("POST /budget-requests/{id}/initialize", h.initialize)
	mux.HandleFunc("POST /budget-requests/{id}/import", h.importSpreadsheet)
	mux.HandleFunc("PATCH /budget-requests/{id}/items", h.editItems)
	mux.HandleFunc("POST /budget-requests/{id}/submit", h.transition(budget.StatusSubmitted))
	mux.HandleFunc("POST /budget-requests/{id}/department-approve", h.transition(budget.StatusDepartmentApproved))
	mux.HandleFunc("POST /budget-requests/{id}/finance-approve", h.transition(budget.StatusFinanceApproved))
	mux.HandleFunc("POST /budget-requests/{id}/cancel", h.transition(budget.StatusCancelled))
	mux.HandleFunc("DELETE /budget-requests/{id}", h.deleteDraft)
	mux.HandleFunc("GET /budget-requests/{id}/export", h.export)
}

type createPayload struct {
	FiscalYear    string `json:"fiscalYear"`
	Justification string `json:"justification"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var p createPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req, err := h.svc.Create(r.Context(), p.FiscalYear, p.Justification)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestToDTO(req))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

type initializePayload struct {
	Category string   `json:"category,omitempty"`
	Codes    []string `json:"codes,omitempty"`
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	var p initializePayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	snap, err := h.svc.Initialize(r.Context(), r.PathValue("id"),
		catalog.Filter{Category: p.Category, Codes: p.Codes})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

func (h *Handler) importSpreadsheet(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeBadRequest(w, "cannot read request body")
		return
	}
	snap, err := h.svc.ImportSpreadsheet(r.Context(), r.PathValue("id"), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

type cellEditPayload struct {
	LineID int64  `json:"lineId"`
	Field  string `json:"field"`
	Value  any    `json:"value"`
}

// decodeEdits принимает батч как голый массив [{lineId, field, value}];
// обёртка {"edits": [...]} тоже понимается ради старых клиентов.
func decodeEdits(body io.Reader) ([]cellEditPayload, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	var list []cellEditPayload
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Edits []cellEditPayload `json:"edits"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Edits, nil
}

func (h *Handler) editItems(w http.ResponseWriter, r *http.Request) {
	p, err := decodeEdits(r.Body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(p) == 0 {
		writeBadRequest(w, "edits must not be empty")
		return
	}

	edits := make([]workflow.CellEdit, 0, len(p))
	verr := &apperr.ValidationError{}
	for _, e := range p {
		v, err := numericValue(e.Value)
		if err != nil {
			verr.Add(e.LineID, e.Field, err.Error())
			continue
		}
		edits = append(edits, workflow.CellEdit{LineID: e.LineID, Field: e.Field, Value: v})
	}
	if !verr.Empty() {
		h.writeError(w, r, verr)
		return
	}

	snap, err := h.svc.EditCells(r.Context(), r.PathValue("id"), edits)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

// numericValue принимает число или числовую строку из ячейки грида.
func numericValue(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number (%q)", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}

func (h *Handler) transition(to budget.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var (
			req *budget.Request
			err error
		)
		switch to {
		case budget.StatusSubmitted:
			req, err = h.svc.Submit(r.Context(), id)
		case budget.StatusDepartmentApproved:
			req, err = h.svc.DepartmentApprove(r.Context(), id)
		case budget.StatusFinanceApproved:
			req, err = h.svc.FinanceApprove(r.Context(), id)
		case budget.StatusCancelled:
			req, err = h.svc.Cancel(r.Context(), id)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, requestToDTO(req))
	}
}

func (h *Handler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDraft(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	payload, filename, err := h.svc.Export(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

/* DTO */

type requestDTO struct {
	ID            string    `json:"id"`
	FiscalYear    string    `json:"fiscalYear"`
	Justification string    `json:"justification"`
	Status        string    `json:"status"`
	TotalAmount   float64   `json:"totalAmount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type itemDTO struct {
	LineID       int64   `json:"lineId"`
	CatalogRef   string  `json:"catalogRef"`
	Description  string  `json:"description"`
	Unit         string  `json:"unit"`
	RequestedQty float64 `json:"requestedQty"`
	UnitPrice    float64 `json:"unitPrice"`
	LineTotal    float64 `json:"lineTotal"`
}

type snapshotDTO struct {
	Request requestDTO `json:"request"`
	Items   []itemDTO  `json:"items"`
}

func requestToDTO(req *budget.Request) requestDTO {
	return requestDTO{
		ID:            req.ID,
		FiscalYear:    req.FiscalYear,
		Justification: req.Justification,
		Status:        string(req.Status),
		TotalAmount:   req.TotalAmount,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
}

func itemToDTO(it lineitems.Item) itemDTO {
	return itemDTO{
		LineID:       it.ID,
		CatalogRef:   it.CatalogRef,
		Description:  it.Description,
		Unit:         it.Unit,
		RequestedQty: it.RequestedQty,
		UnitPrice:    it.UnitPrice,
		LineTotal:    it.LineTotal(),
	}
}

func snapshotToDTO(s *workflow.Snapshot) snapshotDTO {
	out := snapshotDTO{Request: requestToDTO(s.Request), Items: []itemDTO{}}
	for _, it := range s.Items {
		out.Items = append(out.Items, itemToDTO(it))
	}
	return out
}
