package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"qbank/internal/models"
	"qbank/internal/service"
	"qbank/internal/utility"
	httputil "qbank/internal/utility/http"

	"github.com/go-chi/chi"
)

type questionPtr[T any] interface {
	*T
	models.UnitScoped
}

// QuestionService is the per-kind operator set behind QuestionHandler.
type QuestionService[T any, PT questionPtr[T]] interface {
	Kind() models.QuestionKind
	Create(ctx context.Context, doc PT) (PT, error)
	Get(ctx context.Context, id string) (PT, error)
	Update(ctx context.Context, id string, doc PT) (PT, error)
	Delete(ctx context.Context, id, unitID string) (PT, error)
	ListByUnit(ctx context.Context, unitID string, fields ...string) ([]T, error)
	BulkCreate(ctx context.Context, in service.BulkCreateInput) (int, error)
	BulkDelete(ctx context.Context, ids []string) (service.BulkDeleteResult, error)
}

type Importer interface {
	Import(ctx context.Context, req service.ImportRequest) (*service.ImportResult, error)
	UploadImages(ctx context.Context, images []utility.Asset) (map[string]string, []service.ImageFailure)
}

type QuestionHandler[T any, PT questionPtr[T]] struct {
	svc      QuestionService[T, PT]
	importer Importer
}

func NewQuestionHandler[T any, PT questionPtr[T]](svc QuestionService[T, PT], importer Importer) *QuestionHandler[T, PT] {
	return &QuestionHandler[T, PT]{svc: svc, importer: importer}
}

// Routes mounts the kind's endpoints below its slug.
func (h *QuestionHandler[T, PT]) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/bulk", h.BulkCreate)
	r.Post("/bulk-delete", h.BulkDelete)
	r.Post("/import", h.Import)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type ownerProbe struct {
	UnitID    string `json:"unitId"`
	SubjectID string `json:"subjectId"`
}

func (p ownerProbe) check(w http.ResponseWriter) bool {
	if !utility.IsValidID(p.UnitID) {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid unit id", nil)
		return false
	}
	if !utility.IsValidID(p.SubjectID) {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid subject id", nil)
		return false
	}
	return true
}

func (h *QuestionHandler[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	var probe ownerProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if !probe.check(w) {
		return
	}

	doc := PT(new(T))
	if err := json.Unmarshal(body, doc); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	created, err := h.svc.Create(r.Context(), doc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondCreated(w, h.svc.Kind().Label()+" created", created)
}

func (h *QuestionHandler[T, PT]) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, doc)
}

func (h *QuestionHandler[T, PT]) Update(w http.ResponseWriter, r *http.Request) {
	doc := PT(new(T))
	if !decodeJSON(w, r, doc) {
		return
	}
	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), doc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, updated)
}

func (h *QuestionHandler[T, PT]) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("unitId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Respond(w, &httputil.Result{
		Success: true,
		Code:    http.StatusOK,
		Message: h.svc.Kind().Label() + " deleted",
		Data:    deleted,
	})
}

// ListByUnit serves GET /units/{id}/<kind>. An optional comma separated
// "fields" query limits the returned fields.
func (h *QuestionHandler[T, PT]) ListByUnit(w http.ResponseWriter, r *http.Request) {
	var fields []string
	if q := r.URL.Query().Get("fields"); q != "" {
		fields = strings.Split(q, ",")
	}
	docs, err := h.svc.ListByUnit(r.Context(), chi.URLParam(r, "id"), fields...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, docs)
}

type bulkRequest struct {
	ownerProbe
	RefImages map[string]string `json:"refImages"`
}

// BulkCreate accepts a bare array (owner ids in the query string) or an
// object carrying unitId, subjectId and the items array.
func (h *QuestionHandler[T, PT]) BulkCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	req := bulkRequest{ownerProbe: ownerProbe{
		UnitID:    r.URL.Query().Get("unitId"),
		SubjectID: r.URL.Query().Get("subjectId"),
	}}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body", nil)
			return
		}
	}
	if !req.check(w) {
		return
	}

	items, err := service.UnwrapItems(body, h.svc.Kind())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	created, err := h.svc.BulkCreate(r.Context(), service.BulkCreateInput{
		UnitID:    req.UnitID,
		SubjectID: req.SubjectID,
		Items:     items,
		RefImages: req.RefImages,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Respond(w, &httputil.Result{
		Success:      true,
		Code:         http.StatusCreated,
		Message:      h.svc.Kind().Label() + " bulk created",
		CreatedCount: &created,
	})
}

func (h *QuestionHandler[T, PT]) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Respond(w, &httputil.Result{
		Success:      true,
		Code:         http.StatusOK,
		Message:      h.svc.Kind().Label() + " bulk deleted",
		DeletedCount: &res.Deleted,
		Requested:    &res.Requested,
	})
}

// Import takes multipart fields unitId and subjectId, one or more JSON files
// under "file" and optional images under "images".
func (h *QuestionHandler[T, PT]) Import(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	files, err := formFiles(r, "file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Could not read uploaded file", err)
		return
	}
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "At least one JSON file is required", nil)
		return
	}

	res, err := h.importer.Import(r.Context(), service.ImportRequest{
		Kind:      h.svc.Kind(),
		UnitID:    r.FormValue("unitId"),
		SubjectID: r.FormValue("subjectId"),
		Files:     files,
		Images:    formAssets(r, "images"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Respond(w, &httputil.Result{
		Success:      true,
		Code:         http.StatusCreated,
		Message:      h.svc.Kind().Label() + " import finished",
		Data:         res,
		CreatedCount: &res.CreatedCount,
	})
}
