package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "priceeda/internal/errors"
	appmw "priceeda/internal/middleware"
)

type columnKey struct{}

// Query parameter bounds
const (
	maxWindow = 3650
	maxPeriod = 3650
)

// LoadRequest is the body of POST /api/v1/dataset/load
type LoadRequest struct {
	Path string `json:"path" validate:"required"`
}

// MergeRequest is the body of POST /api/v1/merge
type MergeRequest struct {
	Path    string `json:"path" validate:"required"`
	Key     string `json:"key"`
	Replace bool   `json:"replace"`
}

// AnalysisHandler serves the dataset, rolling statistics, decomposition,
// merge and correlation endpoints
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *appmw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    appmw.NewValidator(),
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// RegisterRoutes adds the analysis routes to r
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dataset", h.GetDataset)
	r.Post("/dataset/load", h.LoadDataset)
	r.Post("/merge", h.Merge)
	r.Get("/correlation", h.GetCorrelation)

	r.Route("/series/{column}", func(r chi.Router) {
		r.Use(h.ColumnCtx)
		r.Get("/", h.GetSeries)
		r.Get("/moving-average", h.GetMovingAverage)
		r.Get("/volatility", h.GetVolatility)
		r.Get("/decomposition", h.GetDecomposition)
	})
}

// ColumnCtx middleware validates the column parameter and stores it in the
// request context
func (h *AnalysisHandler) ColumnCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		column, err := url.PathUnescape(chi.URLParam(r, "column"))
		if err != nil || strings.TrimSpace(column) == "" {
			h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest, "INVALID_PARAMETER", "Column name is required"))
			return
		}
		ctx := context.WithValue(r.Context(), columnKey{}, column)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func columnFrom(r *http.Request) string {
	column, _ := r.Context().Value(columnKey{}).(string)
	return column
}

// GetDataset handles GET /api/v1/dataset
func (h *AnalysisHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Dataset(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// LoadDataset handles POST /api/v1/dataset/load
func (h *AnalysisHandler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	info, err := h.service.LoadDataset(r.Context(), req.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "dataset loaded via API",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", req.Path),
		slog.Int("rows", info.Rows))
	render.JSON(w, r, info)
}

// Merge handles POST /api/v1/merge
func (h *AnalysisHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Merge(r.Context(), req.Path, req.Key, req.Replace)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, result)
}

// GetSeries handles GET /api/v1/series/{column}
func (h *AnalysisHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.PriceSeries(r.Context(), columnFrom(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newSeriesResponse(s, 0))
}

// GetMovingAverage handles GET /api/v1/series/{column}/moving-average?window=
func (h *AnalysisHandler) GetMovingAverage(w http.ResponseWriter, r *http.Request) {
	window, err := appmw.QueryInt(r, "window", 1, maxWindow, h.service.Defaults().MovingAverageWindow)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	s, err := h.service.MovingAverage(r.Context(), columnFrom(r), window)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newSeriesResponse(s, window))
}

// GetVolatility handles GET /api/v1/series/{column}/volatility?window=
func (h *AnalysisHandler) GetVolatility(w http.ResponseWriter, r *http.Request) {
	window, err := appmw.QueryInt(r, "window", 1, maxWindow, h.service.Defaults().VolatilityWindow)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	s, err := h.service.Volatility(r.Context(), columnFrom(r), window)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newSeriesResponse(s, window))
}

// GetDecomposition handles GET /api/v1/series/{column}/decomposition?period=
func (h *AnalysisHandler) GetDecomposition(w http.ResponseWriter, r *http.Request) {
	period, err := appmw.QueryInt(r, "period", 2, maxPeriod, h.service.Defaults().SeasonalPeriod)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	d, err := h.service.Decompose(r.Context(), columnFrom(r), period)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newDecompositionResponse(d))
}

// GetCorrelation handles GET /api/v1/correlation
func (h *AnalysisHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Correlation(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newCorrelationResponse(m))
}
