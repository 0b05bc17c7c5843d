package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/pkg/response"
)

type auditReader interface {
	List(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// AuditHandler serves the activity log.
type AuditHandler struct {
	service auditReader
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditReader) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @Summary Recent activity-log entries
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Row limit (default 50, max 500)"
// @Success 200 {object} response.Envelope
// @Router /audits [get]
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
