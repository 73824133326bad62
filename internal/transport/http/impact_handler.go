package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"priceeda/internal/analysis"
	apierrors "priceeda/internal/errors"
	appmw "priceeda/internal/middleware"
)

// ImpactRequest is the body of POST /api/v1/events/impact. Events maps an
// event date to its label.
type ImpactRequest struct {
	Column string            `json:"column"`
	Window int               `json:"window" validate:"gte=0,lte=3650"`
	Events map[string]string `json:"events" validate:"required,min=1,max=10000"`
}

// ImpactHandler serves event impact analysis and the run journal
type ImpactHandler struct {
	service      AnalysisServiceInterface
	validator    *appmw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewImpactHandler creates a new impact handler
func NewImpactHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ImpactHandler {
	return &ImpactHandler{
		service:      service,
		validator:    appmw.NewValidator(),
		logger:       logger.With(slog.String("component", "impact_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the event impact routes
func (h *ImpactHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/impact", h.Analyze)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.GetRun)
	return r
}

// Analyze handles POST /api/v1/events/impact
func (h *ImpactHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req ImpactRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.EventImpact(r.Context(), req.Column, analysis.EventsFromMap(req.Events), req.Window)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := newImpactResponse(report)
	h.logger.InfoContext(r.Context(), "impact analysis served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("run_id", report.RunID),
		slog.Int("resolved", resp.Resolved),
		slog.Int("skipped", resp.Skipped))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// ListRuns handles GET /api/v1/events/runs?limit=
func (h *ImpactHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := appmw.QueryInt(r, "limit", 1, 1000, 50)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	runs, err := h.service.ListImpactRuns(r.Context(), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"count": len(runs),
		"data":  runs,
	})
}

// GetRun handles GET /api/v1/events/runs/{runID}
func (h *ImpactHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ImpactRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newImpactResponse(report))
}
