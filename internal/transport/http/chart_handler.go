package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "priceeda/internal/errors"
	appmw "priceeda/internal/middleware"
	"priceeda/internal/services"
)

// ChartHandler renders analysis charts as images
type ChartHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChartHandler {
	return &ChartHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "chart_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the chart routes
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{kind}", h.GetChart)
	return r
}

// GetChart handles GET /api/v1/charts/{kind}?column=&window=&period=
func (h *ChartHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	kind, err := services.ParseChartKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	window, err := appmw.QueryInt(r, "window", 1, maxWindow, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	period, err := appmw.QueryInt(r, "period", 2, maxPeriod, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// render fully before writing so failures still produce a problem response
	var buf bytes.Buffer
	format, err := h.service.RenderChart(r.Context(), &buf, services.ChartRequest{
		Kind:   kind,
		Column: r.URL.Query().Get("column"),
		Window: window,
		Period: period,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write chart",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}
}
