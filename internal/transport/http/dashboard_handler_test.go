package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/exporter"
	mw "cryptodash/internal/middleware"
	"cryptodash/internal/services"
	"cryptodash/internal/shared/testutil"
	api "cryptodash/pkg/contracts/api/v1"
	"cryptodash/pkg/contracts/domain"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Dataset(ctx context.Context, src services.SourceRef) (*services.DatasetResult, error) {
	args := m.Called(src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetResult), args.Error(1)
}

func (m *MockDashboardService) Dashboard(ctx context.Context, src services.SourceRef, sel domain.FilterSelection) (*domain.DashboardView, error) {
	args := m.Called(src, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardView), args.Error(1)
}

func (m *MockDashboardService) Records(ctx context.Context, src services.SourceRef, sel domain.FilterSelection) ([]domain.DerivedRecord, error) {
	args := m.Called(src, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DerivedRecord), args.Error(1)
}

func (m *MockDashboardService) Latest(ctx context.Context, src services.SourceRef, sel domain.FilterSelection) ([]domain.DerivedRecord, error) {
	args := m.Called(src, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DerivedRecord), args.Error(1)
}

func (m *MockDashboardService) Export(ctx context.Context, src services.SourceRef, sel domain.FilterSelection, format exporter.Format, w io.Writer) (int, error) {
	args := m.Called(src, sel, format)
	if body := args.String(2); body != "" {
		_, _ = io.WriteString(w, body)
	}
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardService) Upload(ctx context.Context, filename string, r io.Reader) (*api.UploadResponse, error) {
	content, _ := io.ReadAll(r)
	args := m.Called(filename, string(content))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.UploadResponse), args.Error(1)
}

const testSession = "3f2a0c4e-6c1d-4b53-9f0a-1f5b6f7a8b9c"

func newDashboardRouter(t *testing.T, svc DashboardServiceInterface) chi.Router {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	handler := NewDashboardHandler(svc, mw.NewValidator(logger), 1<<20, logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Mount("/api", handler.Routes())
	return r
}

func serve(r http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	end := jan(3)
	wantSel := domain.FilterSelection{
		Symbols: []string{"BTC", "eth"},
		Range:   domain.DateRange{Start: jan(1), End: &end},
	}
	view := &domain.DashboardView{Banner: "Loaded 6 price records • Latest: 2024-01-03", RecordCount: 6}

	svc := new(MockDashboardService)
	svc.On("Dashboard", services.SourceRef{}, wantSel).Return(view, nil)

	rec := serve(newDashboardRouter(t, svc), http.MethodGet, "/api/dashboard?symbols=BTC,eth&start=2024-01-01&end=2024-01-03", nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, view.Banner, data["banner"])
	svc.AssertExpectations(t)
}

func TestDashboardHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no data source", services.ErrNoDataSource, http.StatusNotFound, apierrors.CodeNoDataSource},
		{"empty result", services.ErrEmptyResult, http.StatusNotFound, apierrors.CodeNoDataForFilters},
		{"session expired", services.ErrSessionNotFound, http.StatusNotFound, apierrors.CodeSessionNotFound},
		{"malformed", fmt.Errorf("%w: row 3", services.ErrMalformedInput), http.StatusUnprocessableEntity, apierrors.CodeMalformedInput},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("Records", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(newDashboardRouter(t, svc), http.MethodGet, "/api/records", nil, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeJSON(t, rec)
			assert.NotEmpty(t, body["type"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
		})
	}
}

func TestDashboardHandler_EmptyResultMessage(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Dashboard", mock.Anything, mock.Anything).Return(&domain.DashboardView{}, services.ErrEmptyResult)

	rec := serve(newDashboardRouter(t, svc), http.MethodGet, "/api/dashboard?symbols=DOGE", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No data for selected filters.", decodeJSON(t, rec)["detail"])
}

func TestDashboardHandler_ValidationRejectedBeforeService(t *testing.T) {
	svc := new(MockDashboardService)
	router := newDashboardRouter(t, svc)

	for _, target := range []string{
		"/api/latest?start=2024/01/01",
		"/api/latest?start=2024-02-01&end=2024-01-01",
		"/api/latest?symbols=BTC$",
		"/api/latest?session=not-a-uuid",
	} {
		rec := serve(router, http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	svc.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything)
}

func TestDashboardHandler_GetLatestWithSession(t *testing.T) {
	latest := []domain.DerivedRecord{{PriceRecord: domain.PriceRecord{Symbol: "btc", Close: 43218}}}
	svc := new(MockDashboardService)
	svc.On("Latest", services.SourceRef{SessionID: testSession}, domain.FilterSelection{}).Return(latest, nil)

	rec := serve(newDashboardRouter(t, svc), http.MethodGet, "/api/latest?session="+testSession, nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeJSON(t, rec)["count"])
	svc.AssertExpectations(t)
}

func TestDashboardHandler_GetSymbols(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Dataset", services.SourceRef{}).Return(&services.DatasetResult{
		Dataset:          domain.DatasetInfo{Symbols: []string{"BTC", "ETH"}, RecordCount: 6},
		DefaultSelection: domain.FilterSelection{Symbols: []string{"BTC"}},
	}, nil)

	rec := serve(newDashboardRouter(t, svc), http.MethodGet, "/api/symbols", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeJSON(t, rec)["count"])
}

func TestDashboardHandler_Export(t *testing.T) {
	tests := []struct {
		path        string
		format      exporter.Format
		contentType string
		filename    string
	}{
		{"/api/export.csv", exporter.FormatCSV, "text/csv", "crypto_price_data.csv"},
		{"/api/export.xlsx", exporter.FormatXLSX, exporter.FormatXLSX.ContentType(), "crypto_price_data.xlsx"},
		{"/api/export", exporter.FormatCSV, "text/csv", "crypto_price_data.csv"},
		{"/api/export?format=XLSX&", exporter.FormatXLSX, exporter.FormatXLSX.ContentType(), "crypto_price_data.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("Export", services.SourceRef{}, domain.FilterSelection{Symbols: []string{"ETH"}}, tt.format).
				Return(3, nil, "payload")

			sep := "?"
			if strings.Contains(tt.path, "?") {
				sep = ""
			}
			rec := serve(newDashboardRouter(t, svc), http.MethodGet, tt.path+sep+"symbols=ETH", nil, "")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.filename)
			assert.Equal(t, "3", rec.Header().Get("X-Record-Count"))
			assert.Equal(t, "payload", rec.Body.String())
		})
	}
}

func TestDashboardHandler_ExportFormatQuery(t *testing.T) {
	router := newDashboardRouter(t, new(MockDashboardService))

	rec := serve(router, http.MethodGet, "/api/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeJSON(t, rec)["error_code"])

	// Each request resolves its own format.
	svc := new(MockDashboardService)
	svc.On("Export", mock.Anything, mock.Anything, exporter.FormatXLSX).Return(1, nil, "x")
	svc.On("Export", mock.Anything, mock.Anything, exporter.FormatCSV).Return(1, nil, "c")
	router = newDashboardRouter(t, svc)
	assert.Equal(t, "x", serve(router, http.MethodGet, "/api/export?format=xlsx", nil, "").Body.String())
	assert.Equal(t, "c", serve(router, http.MethodGet, "/api/export", nil, "").Body.String())
}

func TestDashboardHandler_ExportFailureIsProblem(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Export", mock.Anything, mock.Anything, exporter.FormatCSV).Return(0, services.ErrNoDataSource, "")

	rec := serve(newDashboardRouter(t, svc), http.MethodGet, "/api/export.csv", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestDashboardHandler_Upload(t *testing.T) {
	csv := testutil.PriceCSV(testutil.SampleRows()...)
	svc := new(MockDashboardService)
	svc.On("Upload", "prices.csv", csv).Return(&api.UploadResponse{SessionID: testSession, Filename: "prices.csv", RecordCount: 6}, nil)

	body, contentType := multipartBody(t, "file", "prices.csv", csv)
	rec := serve(newDashboardRouter(t, svc), http.MethodPost, "/api/upload", body, contentType)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeJSON(t, rec)
	assert.Equal(t, testSession, resp["session_id"])
	assert.Equal(t, float64(6), resp["record_count"])
	svc.AssertExpectations(t)
}

func TestDashboardHandler_UploadRejected(t *testing.T) {
	router := newDashboardRouter(t, new(MockDashboardService))

	t.Run("wrong content type", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/api/upload", strings.NewReader("{}"), "application/json")
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		body, contentType := multipartBody(t, "other", "prices.csv", "x")
		rec := serve(router, http.MethodPost, "/api/upload", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "prices.pdf", "x")
		rec := serve(router, http.MethodPost, "/api/upload", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "prices.csv", strings.Repeat("a", 2<<20))
		rec := serve(router, http.MethodPost, "/api/upload", body, contentType)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestDashboardHandler_UploadMalformed(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Upload", "bad.csv", "nope").Return(nil, fmt.Errorf("%w: missing column", services.ErrMalformedInput))

	body, contentType := multipartBody(t, "file", "bad.csv", "nope")
	rec := serve(newDashboardRouter(t, svc), http.MethodPost, "/api/upload", body, contentType)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apierrors.CodeMalformedInput, decodeJSON(t, rec)["error_code"])
}
