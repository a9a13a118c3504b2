package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/service"
	"github.com/webgis-caps/rocksample-api/pkg/response"
)

// DashboardHandler serves aggregate statistics and the activity feed.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Counts of samples per status, users per role, and archived samples
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// RecentActivity godoc
// @Summary Recent activity
// @Description Latest activity entries across all users
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Limit"
// @Success 200 {object} response.Envelope
// @Router /dashboard/activity/recent [get]
func (h *DashboardHandler) RecentActivity(c *gin.Context) {
	entries, err := h.service.RecentActivity(c.Request.Context(), intQuery(c, "limit", 10))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ActivityLog godoc
// @Summary Activity log
// @Description Filtered, paginated activity trail
// @Tags Dashboard
// @Produce json
// @Param activity_type query string false "Activity type filter"
// @Param user_id query string false "User filter"
// @Param sample_id query string false "Sample filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /dashboard/activity [get]
func (h *DashboardHandler) ActivityLog(c *gin.Context) {
	filter := models.ActivityFilter{
		ActivityType: c.Query("activity_type"),
		UserID:       c.Query("user_id"),
		SampleID:     c.Query("sample_id"),
		Page:         intQuery(c, "page", 1),
		PageSize:     intQuery(c, "page_size", 20),
	}

	entries, total, err := h.service.ActivityLog(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
