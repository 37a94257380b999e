package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "cryptodash/internal/errors"
	api "cryptodash/pkg/contracts/api/v1"
	"cryptodash/pkg/contracts/domain"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,20}$`)

// Validator binds dashboard query strings and validates them with struct tags.
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator with the dashboard's custom rules registered.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	v.RegisterValidation("symbol", isValidSymbol)
	v.RegisterStructValidation(validateDateRange, api.DateRangeRequest{})

	// Use query tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("query"); name != "" {
			return name
		}
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	return &Validator{
		validator: v,
		logger:    logger.With(slog.String("component", "validation")),
	}
}

// ValidateStruct validates a struct and returns an APIError listing every
// failed field.
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// BindDashboardQuery reads symbols, start, end and session from the query
// string. Symbols may be comma separated, repeated, or both. A missing
// symbols parameter yields nil Symbols; an empty one yields an empty slice.
func (m *Validator) BindDashboardQuery(r *http.Request) (*api.DashboardQuery, error) {
	query := dashboardQuery(r)
	if err := m.validate(r, query); err != nil {
		return nil, err
	}
	return query, nil
}

// BindExportQuery is BindDashboardQuery plus the optional format parameter.
func (m *Validator) BindExportQuery(r *http.Request) (*api.ExportQuery, error) {
	query := &api.ExportQuery{
		DashboardQuery: *dashboardQuery(r),
		Format:         strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))),
	}
	if err := m.validate(r, query); err != nil {
		return nil, err
	}
	return query, nil
}

func (m *Validator) validate(r *http.Request, v interface{}) error {
	if err := m.ValidateStruct(v); err != nil {
		m.logger.DebugContext(r.Context(), "query rejected",
			slog.String("query", r.URL.RawQuery),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func dashboardQuery(r *http.Request) *api.DashboardQuery {
	q := r.URL.Query()

	// A symbols parameter that is present but empty deselects every coin.
	var symbols []string
	if _, ok := q["symbols"]; ok {
		symbols = []string{}
	}
	for _, raw := range q["symbols"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	query := &api.DashboardQuery{
		Symbols: symbols,
		DateRange: api.DateRangeRequest{
			From: strings.TrimSpace(q.Get("start")),
			To:   strings.TrimSpace(q.Get("end")),
		},
		Session: strings.TrimSpace(q.Get("session")),
	}
	return query
}

// ToSelection converts a validated query into a filter selection. Dates have
// already been checked, so parse failures cannot happen here.
func ToSelection(q *api.DashboardQuery) domain.FilterSelection {
	sel := domain.FilterSelection{Symbols: q.Symbols}
	if q.DateRange.From != "" {
		sel.Range.Start, _ = time.Parse(domain.DateLayout, q.DateRange.From)
	}
	if q.DateRange.To != "" {
		end, _ := time.Parse(domain.DateLayout, q.DateRange.To)
		sel.Range.End = &end
	}
	return sel
}

// ContentTypeValidator ensures requests with a body have an allowed content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			problem := apierrors.NewProblemDetails(
				http.StatusUnsupportedMediaType,
				apierrors.TypeValidation,
				"Unsupported Media Type",
				fmt.Sprintf("Content-Type %q is not accepted; use one of: %s", contentType, strings.Join(contentTypes, ", ")),
				r.URL.Path,
			).WithExtension("trace_id", GetReqID(r.Context()))
			render.Render(w, r, problem)
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "symbol":
		return fmt.Sprintf("%s must be 1-20 letters, digits, '.', '_' or '-'", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before start", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isValidSymbol validates a coin ticker
func isValidSymbol(fl validator.FieldLevel) bool {
	return symbolPattern.MatchString(fl.Field().String())
}

// validateDateRange rejects end dates before the start date. Format errors
// are reported by the field tags.
func validateDateRange(sl validator.StructLevel) {
	dr := sl.Current().Interface().(api.DateRangeRequest)
	if dr.From == "" || dr.To == "" {
		return
	}
	from, errFrom := time.Parse(domain.DateLayout, dr.From)
	to, errTo := time.Parse(domain.DateLayout, dr.To)
	if errFrom != nil || errTo != nil {
		return
	}
	if to.Before(from) {
		sl.ReportError(dr.To, "end", "To", "gtefield", "start")
	}
}
