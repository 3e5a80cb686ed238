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

type SubjectService interface {
	Create(ctx context.Context, subject *models.Subject, thumbnail *utility.Asset) (*models.Subject, error)
	List(ctx context.Context) ([]models.Subject, error)
	Get(ctx context.Context, id string) (*models.Subject, error)
	Update(ctx context.Context, id string, in service.SubjectUpdate, thumbnail *utility.Asset) (*models.Subject, error)
	Delete(ctx context.Context, id string) (*service.CascadeReport, error)
}

type SubjectHandler struct {
	svc   SubjectService
	units UnitService
}

func NewSubjectHandler(svc SubjectService, units UnitService) *SubjectHandler {
	return &SubjectHandler{svc: svc, units: units}
}

func (h *SubjectHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/units", h.ListUnits)
}

// subjectForm reads either a JSON body or a multipart form whose "data" field
// (or plain name/code/description fields) describes the subject and whose
// optional "thumbnail" part is the image.
func subjectForm(w http.ResponseWriter, r *http.Request, v interface{}) (*utility.Asset, bool) {
	if !isMultipart(r) {
		return nil, decodeJSON(w, r, v)
	}
	if !parseMultipart(w, r) {
		return nil, false
	}

	data := r.FormValue("data")
	if data == "" {
		fields := map[string]string{}
		for _, key := range []string{"name", "code", "description"} {
			if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
				fields[key] = vals[0]
			}
		}
		raw, _ := json.Marshal(fields)
		data = string(raw)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid subject data", nil)
		return nil, false
	}

	if assets := formAssets(r, "thumbnail"); len(assets) > 0 {
		return &assets[0], true
	}
	return nil, true
}

func (h *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var subject models.Subject
	thumbnail, ok := subjectForm(w, r, &subject)
	if !ok {
		return
	}
	created, err := h.svc.Create(r.Context(), &subject, thumbnail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondCreated(w, "Subject created", created)
}

func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, subjects)
}

func (h *SubjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	subject, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, subject)
}

func (h *SubjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.SubjectUpdate
	thumbnail, ok := subjectForm(w, r, &in)
	if !ok {
		return
	}
	subject, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in, thumbnail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, subject)
}

func (h *SubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Respond(w, &httputil.Result{
		Success: true,
		Code:    http.StatusOK,
		Message: "Subject and all related data deleted",
		Data:    report,
	})
}

func (h *SubjectHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.units.ListBySubject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.RespondSuccess(w, units)
}
