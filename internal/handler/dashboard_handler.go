package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bgpnc/members-api/internal/service"
	"github.com/bgpnc/members-api/pkg/response"
)

// DashboardHandler exposes admin dashboard and analytics endpoints.
type DashboardHandler struct {
	dashboard *service.DashboardService
	activity  *service.ActivityService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService, activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, activity: activity}
}

// Stats godoc
// @Summary Dashboard summary counts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, cached, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cache_hit": cached})
}

// Analytics godoc
// @Summary Membership growth and demographic analytics
// @Tags Dashboard
// @Produce json
// @Param days query int false "Growth window in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/analytics [get]
func (h *DashboardHandler) Analytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	analytics, cached, err := h.dashboard.Analytics(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil, map[string]interface{}{"cache_hit": cached})
}

// ActivityLogs godoc
// @Summary List audit trail entries
// @Tags Dashboard
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activity-logs [get]
func (h *DashboardHandler) ActivityLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, pagination, err := h.activity.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
