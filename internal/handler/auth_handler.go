package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
	"github.com/noah-isme/shortcourse-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

type staffLookup interface {
	Lookup(id string) (models.StaffMember, bool)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	staff   staffLookup
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, staff staffLookup) *AuthHandler {
	return &AuthHandler{service: svc, staff: staff}
}

// Login godoc
// @Summary Authenticate staff
// @Description Authenticate by staff id and the shared staff password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Current staff member
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	member := models.StaffMember{ID: claims.StaffID, Name: claims.Name, Role: claims.Role}
	if h.staff != nil {
		if found, ok := h.staff.Lookup(claims.StaffID); ok {
			member = found
		}
	}
	response.JSON(c, http.StatusOK, member, nil)
}
