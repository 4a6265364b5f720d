package handler

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shortcourse-api/internal/service"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
	"github.com/noah-isme/shortcourse-api/pkg/response"
)

type exportResolver interface {
	Resolve(token string) (*service.StoredExport, error)
	Open(relPath string) (*os.File, error)
}

// ExportHandler serves stored exports behind signed links.
type ExportHandler struct {
	service exportResolver
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportResolver) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download godoc
// @Summary Download a stored export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	stored, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Open(stored.Path)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}

	contentType := "application/octet-stream"
	if format, err := service.ParseExportFormat(strings.TrimPrefix(path.Ext(stored.Filename), ".")); err == nil {
		contentType = format.ContentType()
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", stored.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

