package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/service"
	"github.com/bp3mi/presensi-api/pkg/response"
)

type recordLister interface {
	List(ctx context.Context, req service.ListRecordsRequest) ([]models.AttendanceRecord, *models.Pagination, error)
}

// RecordHandler serves reconciled attendance records.
type RecordHandler struct {
	service recordLister
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(service recordLister) *RecordHandler {
	return &RecordHandler{service: service}
}

// List godoc
// @Summary List attendance records
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param employee query string false "Filter by employee name (substring)"
// @Param status query string false "Filter by record status"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort column (employee_name, date, status)"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	req := service.ListRecordsRequest{
		Employee:  strings.TrimSpace(c.Query("employee")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 50),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		req.Status = &status
	}
	if from := strings.TrimSpace(c.Query("date_from")); from != "" {
		req.DateFrom = &from
	}
	if to := strings.TrimSpace(c.Query("date_to")); to != "" {
		req.DateTo = &to
	}

	rows, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
