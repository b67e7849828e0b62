package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/internal/service"
	appErrors "github.com/bgpnc/members-api/pkg/errors"
	"github.com/bgpnc/members-api/pkg/response"
)

// MemberHandler exposes admin member management endpoints.
type MemberHandler struct {
	members   *service.MemberService
	exports   *service.ExportService
	dashboard *service.DashboardService
}

// NewMemberHandler constructs MemberHandler.
func NewMemberHandler(members *service.MemberService, exports *service.ExportService, dashboard *service.DashboardService) *MemberHandler {
	return &MemberHandler{members: members, exports: exports, dashboard: dashboard}
}

// UpdateStatusRequest is the payload for a single status transition.
type UpdateStatusRequest struct {
	Status string `json:"member_status" binding:"required"`
}

// BulkStatusRequest is the payload for a bulk status transition.
type BulkStatusRequest struct {
	MemberIDs []string `json:"member_ids"`
	Status    string   `json:"member_status" binding:"required"`
}

// List godoc
// @Summary List members
// @Tags Members
// @Produce json
// @Param search query string false "Search by name, email or phone"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /members [get]
func (h *MemberHandler) List(c *gin.Context) {
	var filter models.MemberFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Status = models.MemberStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "25")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	members, pagination, err := h.members.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, pagination)
}

// Get godoc
// @Summary Get member detail with children
// @Tags Members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.members.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// Update godoc
// @Summary Update member fields
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Member ID"
// @Param payload body service.UpdateMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Router /members/{id} [put]
func (h *MemberHandler) Update(c *gin.Context) {
	var req service.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	member, err := h.members.Update(c.Request.Context(), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateCache(c.Request.Context())
	response.JSON(c, http.StatusOK, member, nil)
}

// Delete godoc
// @Summary Delete a member and its children
// @Tags Members
// @Produce json
// @Param id path string true "Member ID"
// @Success 204
// @Router /members/{id} [delete]
func (h *MemberHandler) Delete(c *gin.Context) {
	if err := h.members.Delete(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateCache(c.Request.Context())
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Update one member's status
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Member ID"
// @Param payload body UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /members/{id}/status [patch]
func (h *MemberHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.members.UpdateStatus(c.Request.Context(), c.Param("id"), models.MemberStatus(req.Status), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateCache(c.Request.Context())
	response.JSON(c, http.StatusOK, gin.H{"member_status": req.Status}, nil)
}

// BulkUpdateStatus godoc
// @Summary Update many members' status at once
// @Tags Members
// @Accept json
// @Produce json
// @Param payload body BulkStatusRequest true "Bulk status payload"
// @Success 200 {object} response.Envelope
// @Router /members/bulk-status [post]
func (h *MemberHandler) BulkUpdateStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	affected, err := h.members.BulkUpdateStatus(c.Request.Context(), req.MemberIDs, models.MemberStatus(req.Status), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateCache(c.Request.Context())
	response.JSON(c, http.StatusOK, gin.H{"updated": affected, "member_status": req.Status}, nil)
}

// Export godoc
// @Summary Download the member roster
// @Tags Members
// @Produce octet-stream
// @Param format query string true "Export format (csv|xlsx|pdf)"
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Router /members/export [get]
func (h *MemberHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	status := models.MemberStatus(c.Query("status"))

	result, err := h.exports.Export(c.Request.Context(), format, status, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
