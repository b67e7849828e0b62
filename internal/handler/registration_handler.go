package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/service"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
	"github.com/bgpnc/members-api/pkg/response"
)

// RegistrationHandler exposes the public registration endpoint.
type RegistrationHandler struct {
	registration *service.RegistrationService
	metrics      *service.MetricsService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *service.RegistrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, metrics: metrics}
}

// Register godoc
// @Summary Register a new member
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body service.RegistrationSubmission true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /members/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var sub service.RegistrationSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	memberID, err := h.registration.Register(c.Request.Context(), sub, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordRegistration(models.RegistrationOnline)
	response.Created(c, gin.H{"member_id": memberID})
}
