package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shortcourse-api/internal/models"
	"github.com/noah-isme/shortcourse-api/pkg/response"
)

type staffLister interface {
	List() []models.StaffMember
}

// StaffHandler exposes the staff directory.
type StaffHandler struct {
	staff staffLister
}

// NewStaffHandler constructs the handler.
func NewStaffHandler(staff staffLister) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// List godoc
// @Summary List staff members
// @Tags Staff
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	members := h.staff.List()
	response.JSON(c, http.StatusOK, members, &models.Pagination{Page: 1, PageSize: len(members), TotalCount: len(members)})
}
