// Package api contains API contract definitions for the crypto price dashboard.
// Version v1 represents the current stable API version.
package api

// Common request parameters

// DateRangeRequest represents a date range in requests.
// Both bounds are optional calendar dates; an empty To leaves the range open-ended.
type DateRangeRequest struct {
	From string `json:"from" query:"start" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"end" validate:"omitempty,datetime=2006-01-02"`
}

// Dashboard API Requests

// DashboardQuery is the filter selection carried in the query string of every
// dashboard, records, latest and export request.
type DashboardQuery struct {
	Symbols   []string `json:"symbols" query:"symbols" validate:"omitempty,max=50,dive,symbol"`
	DateRange DateRangeRequest
	Session   string `json:"session,omitempty" query:"session" validate:"omitempty,uuid"`
}

// ExportQuery extends DashboardQuery with the output format.
type ExportQuery struct {
	DashboardQuery
	Format string `json:"format" query:"format" validate:"omitempty,oneof=csv xlsx"`
}

// Response envelopes

// UploadResponse is returned after a successful file upload.
type UploadResponse struct {
	SessionID   string `json:"session_id"`
	Filename    string `json:"filename"`
	RecordCount int    `json:"record_count"`
}
