package dto

import (
	"time"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

// SubmissionListResponse is the filtered view plus aggregates for the viewer.
type SubmissionListResponse struct {
	Items         []models.Submission    `json:"items"`
	Stats         models.SubmissionStats `json:"stats"`
	FilteredStats models.SubmissionStats `json:"filteredStats"`
	Pagination    models.Pagination      `json:"pagination"`
}

// UpdateStatusRequest changes the processing state of a submission.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateAssignmentRequest reassigns a submission. Use "unassigned" to clear.
type UpdateAssignmentRequest struct {
	AssignedTo string `json:"assignedTo" validate:"required"`
}

// UpdateRemarkRequest replaces the free-text remark. An empty remark clears it.
type UpdateRemarkRequest struct {
	Remark string `json:"remark" validate:"max=2000"`
}

// ExportRequest selects the format and filters of a stored export.
type ExportRequest struct {
	Format string `json:"format"`
	Search string `json:"search"`
	Status string `json:"status"`
	Claim  string `json:"claim"`
	Member string `json:"member"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Criteria converts the request filters into view criteria.
func (r ExportRequest) Criteria() models.FilterCriteria {
	return models.FilterCriteria{
		SearchTerm: r.Search,
		Status:     r.Status,
		Claim:      r.Claim,
		Member:     r.Member,
		DateRange:  models.DateRange{Start: r.Start, End: r.End},
	}
}

// ExportResult describes a stored export and its signed download link.
type ExportResult struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	RecordCount int       `json:"recordCount"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// RefreshJobResponse acknowledges a queued reload.
type RefreshJobResponse struct {
	JobID    string    `json:"jobId"`
	QueuedAt time.Time `json:"queuedAt"`
}

// LoadStatusResponse reports the state of the in-memory submission set.
type LoadStatusResponse struct {
	Loading  bool               `json:"loading"`
	Count    int                `json:"count"`
	LastLoad *models.LoadResult `json:"lastLoad,omitempty"`
}
