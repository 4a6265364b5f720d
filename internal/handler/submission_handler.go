package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/shortcourse-api/internal/dto"
	"github.com/noah-isme/shortcourse-api/internal/middleware"
	"github.com/noah-isme/shortcourse-api/internal/models"
	"github.com/noah-isme/shortcourse-api/internal/service"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
	"github.com/noah-isme/shortcourse-api/pkg/response"
)

type submissionService interface {
	List(ctx context.Context, req service.SubmissionListRequest) (*dto.SubmissionListResponse, bool, error)
	View(ctx context.Context, criteria models.FilterCriteria) ([]models.Submission, error)
	Stats(ctx context.Context, viewer *models.ViewerScope) models.SubmissionStats
	Get(ctx context.Context, id string, viewer *models.ViewerScope) (*models.Submission, error)
	SetStatus(ctx context.Context, viewer *models.ViewerScope, id, status string) (*models.Submission, error)
	SetAssignment(ctx context.Context, viewer *models.ViewerScope, id, staffID string) (*models.Submission, error)
	SetRemark(ctx context.Context, viewer *models.ViewerScope, id, remark string) (*models.Submission, error)
	Status() dto.LoadStatusResponse
}

type submissionExporter interface {
	Render(subs []models.Submission, format service.ExportFormat) (*service.RenderedExport, error)
	Store(ctx context.Context, subs []models.Submission, format service.ExportFormat) (*dto.ExportResult, error)
}

type refreshTrigger interface {
	Trigger(reason string) (*dto.RefreshJobResponse, error)
}

// SubmissionHandler exposes the submission dashboard endpoints.
type SubmissionHandler struct {
	service   submissionService
	exporter  submissionExporter
	refresher refreshTrigger
	validate  *validator.Validate
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService, exporter submissionExporter, refresher refreshTrigger, validate *validator.Validate) *SubmissionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionHandler{service: svc, exporter: exporter, refresher: refresher, validate: validate}
}

// List godoc
// @Summary List submissions
// @Description Filtered, newest-first submissions visible to the caller with statistics
// @Tags Submissions
// @Produce json
// @Param search query string false "Substring over organisation, PIC, email, participant names, remark"
// @Param status query string false "Status or all"
// @Param claim query string false "Claim type or all"
// @Param member query string false "Yes, No or all"
// @Param start query string false "Earliest timestamp (inclusive)"
// @Param end query string false "Latest timestamp (inclusive, date-only covers the day)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, err := parseOptionalInt(c.Query("page"), "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"), "limit")
	if err != nil {
		response.Error(c, err)
		return
	}

	req := service.SubmissionListRequest{Criteria: criteriaFromQuery(c, viewer), Page: page, PageSize: limit}
	result, cacheHit, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	if last := h.service.Status().LastLoad; last != nil {
		middleware.SetMeta(c, "source", last.Source)
	}
	pagination := result.Pagination
	response.JSON(c, http.StatusOK, result, &pagination, middleware.ExtractMeta(c))
}

// Stats godoc
// @Summary Submission statistics
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submissions/stats [get]
func (h *SubmissionHandler) Stats(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Stats(c.Request.Context(), viewer), nil)
}

// Source godoc
// @Summary Load state of the submission set
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submissions/source [get]
func (h *SubmissionHandler) Source(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status(), nil)
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sub, err := h.service.Get(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// UpdateStatus godoc
// @Summary Change submission status
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/status [patch]
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateStatusRequest
	if !h.bind(c, &req, "invalid status payload") {
		return
	}
	sub, err := h.service.SetStatus(c.Request.Context(), viewer, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// UpdateAssignment godoc
// @Summary Reassign submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateAssignmentRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/assignment [patch]
func (h *SubmissionHandler) UpdateAssignment(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateAssignmentRequest
	if !h.bind(c, &req, "invalid assignment payload") {
		return
	}
	sub, err := h.service.SetAssignment(c.Request.Context(), viewer, c.Param("id"), req.AssignedTo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// UpdateRemark godoc
// @Summary Edit submission remark
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateRemarkRequest true "Remark"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/remark [patch]
func (h *SubmissionHandler) UpdateRemark(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateRemarkRequest
	if !h.bind(c, &req, "invalid remark payload") {
		return
	}
	sub, err := h.service.SetRemark(c.Request.Context(), viewer, c.Param("id"), req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Export godoc
// @Summary Download the filtered view
// @Tags Submissions
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf"
// @Param search query string false "Search term"
// @Param status query string false "Status or all"
// @Param claim query string false "Claim type or all"
// @Param member query string false "Yes, No or all"
// @Param start query string false "Earliest timestamp"
// @Param end query string false "Latest timestamp"
// @Success 200 {file} binary
// @Router /submissions/export [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.View(c.Request.Context(), criteriaFromQuery(c, viewer))
	if err != nil {
		response.Error(c, err)
		return
	}
	rendered, err := h.exporter.Render(view, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, rendered.Filename, rendered.ContentType, rendered.Payload)
}

// StoreExport godoc
// @Summary Store an export and return a signed link
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Format and filters"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions/exports [post]
func (h *SubmissionHandler) StoreExport(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if !h.bind(c, &req, "invalid export payload") {
		return
	}
	format, err := service.ParseExportFormat(req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	criteria := req.Criteria()
	criteria.Viewer = viewer
	view, err := h.service.View(c.Request.Context(), criteria)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Store(c.Request.Context(), view, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Refresh godoc
// @Summary Reload submissions from the sources
// @Tags Submissions
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/refresh [post]
func (h *SubmissionHandler) Refresh(c *gin.Context) {
	if h.refresher == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "refresh worker not configured"))
		return
	}
	reason := "manual"
	if claims := claimsFromContext(c); claims != nil {
		reason = "manual:" + claims.StaffID
	}
	job, err := h.refresher.Trigger(reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

func (h *SubmissionHandler) bind(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func criteriaFromQuery(c *gin.Context, viewer *models.ViewerScope) models.FilterCriteria {
	return models.FilterCriteria{
		SearchTerm: c.Query("search"),
		Status:     c.Query("status"),
		Claim:      c.Query("claim"),
		Member:     c.Query("member"),
		DateRange: models.DateRange{
			Start: c.Query("start"),
			End:   c.Query("end"),
		},
		Viewer: viewer,
	}
}

func parseOptionalInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a non-negative integer")
	}
	return v, nil
}
