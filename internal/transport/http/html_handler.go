package http

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "cryptodash/internal/errors"
	mw "cryptodash/internal/middleware"
	"cryptodash/internal/services"
	"cryptodash/pkg/contracts/domain"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// Messages shown on the dashboard page.
const (
	PageTitle       = "Crypto Price Dashboard"
	MsgUploadPrompt = "Upload your crypto data (CSV) to begin"
	MsgNoData       = "No data for selected filters."
	MsgSessionGone  = "Your upload session has expired. Upload the file again to continue."
)

var pageFuncs = template.FuncMap{
	"price": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64)
	},
	"optional": func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', 2, 64)
	},
}

// symbolOption is one entry of the coin multiselect.
type symbolOption struct {
	Name     string
	Selected bool
}

// pageData is everything the dashboard template reads.
type pageData struct {
	Title     string
	Info      string
	Warning   string
	Error     string
	SessionID string

	View    *domain.DashboardView
	HasRows bool
	Symbols []symbolOption

	Start, End       string
	MinDate, MaxDate string

	ExportQuery string
	ChartJSON   template.JS
}

// HTMLHandler renders the server-side dashboard page
type HTMLHandler struct {
	service        DashboardServiceInterface
	validator      *mw.Validator
	tmpl           *template.Template
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHTMLHandler parses the embedded page template
func NewHTMLHandler(service DashboardServiceInterface, validator *mw.Validator, maxUploadBytes int64, logger *slog.Logger) (*HTMLHandler, error) {
	tmpl, err := template.New("dashboard.html").Funcs(pageFuncs).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, err
	}
	return &HTMLHandler{
		service:        service,
		validator:      validator,
		tmpl:           tmpl,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "html_handler")),
	}, nil
}

// Routes returns the page routes
func (h *HTMLHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Dashboard)
	r.Post("/upload", h.Upload)
	return r
}

// Dashboard handles GET /. Pipeline halts become messages on the page rather
// than error responses, so the upload form and filters stay usable.
func (h *HTMLHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: PageTitle}

	q, err := h.validator.BindDashboardQuery(r)
	if err != nil {
		data.Error = describe(err)
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	data.SessionID = q.Session

	view, err := h.service.Dashboard(r.Context(), services.SourceRef{SessionID: q.Session}, mw.ToSelection(q))
	if view != nil {
		h.fill(&data, view)
	}

	status := http.StatusOK
	switch {
	case err == nil:
		data.HasRows = true
		chart, jerr := json.Marshal(view.Series)
		if jerr != nil {
			h.logger.ErrorContext(r.Context(), "failed to encode chart data", slog.String("error", jerr.Error()))
			chart = []byte("[]")
		}
		data.ChartJSON = template.JS(chart)
	case errors.Is(err, services.ErrEmptyResult):
		data.Warning = MsgNoData
	case errors.Is(err, services.ErrNoDataSource):
		data.Info = MsgUploadPrompt
	case errors.Is(err, services.ErrSessionNotFound):
		data.Info = MsgSessionGone
		data.SessionID = ""
	case errors.Is(err, services.ErrMalformedInput):
		data.Error = err.Error()
		status = http.StatusUnprocessableEntity
	default:
		h.logger.ErrorContext(r.Context(), "dashboard pass failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		data.Error = "The dashboard could not be built. Please try again."
		status = http.StatusInternalServerError
	}

	h.render(w, r, status, data)
}

// Upload handles the form POST /upload and redirects to the session's page.
func (h *HTMLHandler) Upload(w http.ResponseWriter, r *http.Request) {
	_, resp, err := receiveUpload(w, r, h.service, h.maxUploadBytes)
	if err != nil {
		status := http.StatusBadRequest
		var apiErr *apierrors.APIError
		if errors.As(mapServiceError(err), &apiErr) {
			status = apiErr.StatusCode
		}
		h.logger.WarnContext(r.Context(), "upload rejected",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		h.render(w, r, status, pageData{Title: PageTitle, Error: describe(err), Info: MsgUploadPrompt})
		return
	}

	http.Redirect(w, r, "/?session="+url.QueryEscape(resp.SessionID), http.StatusSeeOther)
}

// fill copies the view's filter context into the page.
func (h *HTMLHandler) fill(data *pageData, view *domain.DashboardView) {
	data.View = view

	selected := view.Selection.SymbolSet()
	for _, s := range view.Dataset.Symbols {
		_, ok := selected[s]
		data.Symbols = append(data.Symbols, symbolOption{Name: s, Selected: ok})
	}

	if !view.Dataset.MinDate.IsZero() {
		data.MinDate = view.Dataset.MinDate.Format(domain.DateLayout)
		data.MaxDate = view.Dataset.MaxDate.Format(domain.DateLayout)
	}
	if !view.Selection.Range.Start.IsZero() {
		data.Start = view.Selection.Range.Start.Format(domain.DateLayout)
	}
	if view.Selection.Range.End != nil {
		data.End = view.Selection.Range.End.Format(domain.DateLayout)
	}

	q := url.Values{}
	for _, s := range view.Selection.Symbols {
		q.Add("symbols", s)
	}
	if data.Start != "" {
		q.Set("start", data.Start)
	}
	if data.End != "" {
		q.Set("end", data.End)
	}
	if data.SessionID != "" {
		q.Set("session", data.SessionID)
	}
	data.ExportQuery = q.Encode()
}

// render executes the template into a buffer first so a template failure
// can still produce a clean 500.
func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// describe turns an error into a message fit for the page.
func describe(err error) string {
	var apiErr *apierrors.APIError
	if errors.As(mapServiceError(err), &apiErr) {
		switch d := apiErr.Details.(type) {
		case apierrors.ValidationErrors:
			if len(d.Errors) > 0 {
				return d.Errors[0].Message
			}
		case apierrors.ValidationError:
			return d.Message
		case string:
			if d != "" {
				return apiErr.Message + ": " + d
			}
		}
		return apiErr.Message
	}
	return err.Error()
}
