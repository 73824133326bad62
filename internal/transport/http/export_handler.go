package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	apierrors "priceeda/internal/errors"
	appmw "priceeda/internal/middleware"
	"priceeda/internal/services"
)

// ExportHandler writes analysis results to files and downloads them
type ExportHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler
func NewExportHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{target}", h.Export)
	return r
}

// Export handles GET /api/v1/exports/{target}?format=&run_id=
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	name, err := appmw.QueryEnum(r, "format", services.ExportFormats(), string(services.ExportCSV))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := services.ParseExportFormat(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	target := chi.URLParam(r, "target")
	runID := r.URL.Query().Get("run_id")
	if target == services.TargetImpact && runID == "" {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest, "INVALID_PARAMETER", "run_id is required for impact exports"))
		return
	}

	path, err := h.service.Export(r.Context(), target, format, runID)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "serving export",
		slog.String("target", target),
		slog.String("path", path))

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
