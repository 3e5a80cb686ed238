package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"qbank/internal/models"
	"qbank/internal/service"
	"qbank/internal/utility"
	httputil "qbank/internal/utility/http"

	"github.com/go-chi/chi"
)

type UnitService interface {
	Create(ctx context.Context, unit *models.Unit) (*models.Unit, error)
	Get(ctx context.Context, id string) (*models.Unit, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.Unit, error)
	Update(ctx context.Context, id string, in service.UnitUpdate) (*models.Unit, error)
	Delete(ctx context.Context, id string) (*service.CascadeReport, error)
}

type UnitHandler struct {
	svc UnitService
}

func NewUnitHandler(svc UnitService) *UnitHandler {
	return &UnitHandler{svc: svc}
}

func (h *UnitHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *UnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	var probe struct {
		SubjectID string `json:"subjectId"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if !utility.IsValidID(probe.SubjectID) {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid subject id", nil)
		return
	}

	var unit models.Unit
	if err := json.Unmarshal(body, &unit); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	created, err := h.svc.Create(r.Context(), &unit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondCreated(w, "Unit created", created)
}

func (h *UnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	unit, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, unit)
}

func (h *UnitHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.UnitUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	unit, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, unit)
}

func (h *UnitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Respond(w, &httputil.Result{
		Success: true,
		Code:    http.StatusOK,
		Message: "Unit and its questions deleted",
		Data:    report,
	})
}
