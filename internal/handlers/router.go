package handlers

import (
	"net/http"

	"qbank/internal/models"
	"qbank/internal/monitoring"
	"qbank/internal/service"
	httputil "qbank/internal/utility/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
)

// Services are the dependencies of the HTTP surface.
type Services struct {
	MCQs        QuestionService[models.MCQ, *models.MCQ]
	FillBlanks  QuestionService[models.FillBlank, *models.FillBlank]
	Descriptive QuestionService[models.Descriptive, *models.Descriptive]
	Subjects    SubjectService
	Units       UnitService
	Importer    Importer
}

func ServicesFrom(qb *service.QuestionBank) Services {
	return Services{
		MCQs:        qb.MCQs,
		FillBlanks:  qb.FillBlanks,
		Descriptive: qb.Descriptive,
		Subjects:    qb.Subjects,
		Units:       qb.Units,
		Importer:    qb.Importer,
	}
}

type questionRoutes interface {
	Routes(r chi.Router)
	ListByUnit(w http.ResponseWriter, r *http.Request)
}

func NewRouter(svc Services, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(monitoring.MetricsMiddleware)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:4200"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondSuccess(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", monitoring.PrometheusHandler())

	r.Route("/subjects", NewSubjectHandler(svc.Subjects, svc.Units).Routes)
	r.Post("/uploads/images", UploadImages(svc.Importer))

	kinds := map[models.QuestionKind]questionRoutes{
		models.KindMCQ:         NewQuestionHandler(svc.MCQs, svc.Importer),
		models.KindFillBlank:   NewQuestionHandler(svc.FillBlanks, svc.Importer),
		models.KindDescriptive: NewQuestionHandler(svc.Descriptive, svc.Importer),
	}
	r.Route("/units", func(r chi.Router) {
		NewUnitHandler(svc.Units).Routes(r)
		for _, kind := range models.Kinds {
			r.Get("/{id}/"+kind.Slug(), kinds[kind].ListByUnit)
		}
	})
	for _, kind := range models.Kinds {
		r.Route("/"+kind.Slug(), kinds[kind].Routes)
	}

	return r
}
