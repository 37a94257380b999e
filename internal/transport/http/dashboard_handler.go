package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/exporter"
	"cryptodash/internal/files"
	mw "cryptodash/internal/middleware"
	"cryptodash/internal/services"
	api "cryptodash/pkg/contracts/api/v1"
	"cryptodash/pkg/contracts/domain"
)

// uploadMemory is how much of a multipart upload is kept in memory before
// spilling to temporary files.
const uploadMemory = 8 << 20

// DashboardHandler serves the JSON dashboard API with RFC 7807 errors
type DashboardHandler struct {
	service        DashboardServiceInterface
	validator      *mw.Validator
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validator *mw.Validator, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:        service,
		validator:      validator,
		logger:         logger.With(slog.String("component", "dashboard_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the dashboard API routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/symbols", h.GetSymbols)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/records", h.GetRecords)
		r.Get("/latest", h.GetLatest)
	})

	r.Get("/export", h.Export(""))
	r.Get("/export.csv", h.Export(exporter.FormatCSV))
	r.Get("/export.xlsx", h.Export(exporter.FormatXLSX))

	r.With(mw.ContentTypeValidator("multipart/form-data")).Post("/upload", h.Upload)

	return r
}

// GetSymbols handles GET /api/symbols: the dataset summary and the selection
// a first visit starts with.
func (h *DashboardHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	src, _, err := h.bind(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Dataset(r.Context(), src)
	if err != nil {
		h.fail(w, r, "dataset", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result.Dataset.Symbols),
	})
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	src, sel, err := h.bind(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Dashboard(r.Context(), src, sel)
	if err != nil {
		h.fail(w, r, "dashboard", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   view,
	})
}

// GetRecords handles GET /api/records
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	src, sel, err := h.bind(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rows, err := h.service.Records(r.Context(), src, sel)
	if err != nil {
		h.fail(w, r, "records", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rows,
		"count":  len(rows),
	})
}

// GetLatest handles GET /api/latest
func (h *DashboardHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	src, sel, err := h.bind(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	latest, err := h.service.Latest(r.Context(), src, sel)
	if err != nil {
		h.fail(w, r, "latest", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   latest,
		"count":  len(latest),
	})
}

// Export handles GET /api/export.csv and /api/export.xlsx, and GET /api/export
// when format is empty, which takes the format query parameter (CSV by
// default). The file is built in memory so a failed pass can still answer
// with a problem document.
func (h *DashboardHandler) Export(format exporter.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := h.validator.BindExportQuery(r)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		f := format
		if f == "" {
			// Already checked by the validator.
			f, _ = exporter.ParseFormat(q.Format)
		}
		src, sel := services.SourceRef{SessionID: q.Session}, mw.ToSelection(&q.DashboardQuery)

		var buf bytes.Buffer
		n, err := h.service.Export(r.Context(), src, sel, f, &buf)
		if err != nil {
			h.fail(w, r, "export", err)
			return
		}

		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+f.FileName()+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Header().Set("X-Record-Count", strconv.Itoa(n))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			h.logger.WarnContext(r.Context(), "export write interrupted",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("error", err.Error()))
		}
	}
}

// Upload handles POST /api/upload with a multipart "file" field and returns
// the new session id.
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	filename, resp, err := receiveUpload(w, r, h.service, h.maxUploadBytes)
	if err != nil {
		h.fail(w, r, "upload", err)
		return
	}

	h.logger.InfoContext(r.Context(), "upload accepted",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("filename", filename),
		slog.String("session_id", resp.SessionID),
		slog.Int("records", resp.RecordCount))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// bind validates the query string and converts it to a source and selection.
func (h *DashboardHandler) bind(r *http.Request) (services.SourceRef, domain.FilterSelection, error) {
	q, err := h.validator.BindDashboardQuery(r)
	if err != nil {
		return services.SourceRef{}, domain.FilterSelection{}, err
	}
	return services.SourceRef{SessionID: q.Session}, mw.ToSelection(q), nil
}

// fail maps a service error to its problem response. The error handler logs it.
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.DebugContext(r.Context(), "pass ended with error",
		slog.String("action", action),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("outcome", err.Error()))
	h.errorHandler.HandleError(w, r, mapServiceError(err))
}

// receiveUpload reads the "file" field of a multipart form, bounded by
// maxBytes, and hands it to the service.
func receiveUpload(w http.ResponseWriter, r *http.Request, service DashboardServiceInterface, maxBytes int64) (string, *api.UploadResponse, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, apierrors.ErrPayloadTooLarge.Wrap(err)
		}
		return "", nil, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, apierrors.ErrValidation("file", "a CSV or XLSX file is required")
	}
	defer file.Close()

	if !files.IsDataFile(header.Filename) {
		return header.Filename, nil, apierrors.ErrValidation("file", "only .csv and .xlsx files are accepted")
	}

	resp, err := service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		return header.Filename, nil, err
	}
	return header.Filename, resp, nil
}
