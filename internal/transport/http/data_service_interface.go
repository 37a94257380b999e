package http

import (
	"context"
	"io"

	"cryptodash/internal/exporter"
	"cryptodash/internal/services"
	api "cryptodash/pkg/contracts/api/v1"
	"cryptodash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the pipeline operations the handlers use
type DashboardServiceInterface interface {
	Dataset(ctx context.Context, src services.SourceRef) (*services.DatasetResult, error)
	Dashboard(ctx context.Context, src services.SourceRef, sel domain.FilterSelection) (*domain.DashboardView, error)
	Records(ctx context.Context, src services.SourceRef, sel domain.FilterSelection) ([]domain.DerivedRecord, error)
	Latest(ctx context.Context, src services.SourceRef, sel domain.FilterSelection) ([]domain.DerivedRecord, error)
	Export(ctx context.Context, src services.SourceRef, sel domain.FilterSelection, format exporter.Format, w io.Writer) (int, error)
	Upload(ctx context.Context, filename string, r io.Reader) (*api.UploadResponse, error)
}
