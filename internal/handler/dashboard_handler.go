package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/pkg/response"
)

type dashboardReader interface {
	Summary(ctx context.Context) (*models.AttendanceSummary, error)
	Performance(ctx context.Context) ([]models.EmployeePerformance, error)
	Latest(ctx context.Context, limit int) ([]models.AttendanceRecord, error)
}

// DashboardHandler serves aggregate attendance views.
type DashboardHandler struct {
	service dashboardReader
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardReader) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Attendance headline counts
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Performance godoc
// @Summary Per-employee status breakdown
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/performance [get]
func (h *DashboardHandler) Performance(c *gin.Context) {
	rows, err := h.service.Performance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Latest godoc
// @Summary Most recently updated records
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Row limit (default 10, max 100)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/latest [get]
func (h *DashboardHandler) Latest(c *gin.Context) {
	rows, err := h.service.Latest(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
