package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/service"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
	"github.com/bp3mi/presensi-api/pkg/response"
)

type archiveManager interface {
	List(ctx context.Context) ([]models.ArchiveFile, error)
	Delete(ctx context.Context, name string, actor *string, ip string) error
	Reprocess(ctx context.Context, name string, actor *string, ip string) (*service.UploadResult, error)
}

// ArchiveHandler manages stored raw punch-log uploads.
type ArchiveHandler struct {
	service archiveManager
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(service archiveManager) *ArchiveHandler {
	return &ArchiveHandler{service: service}
}

// List godoc
// @Summary List archived punch-log uploads
// @Tags Archives
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /archives [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Delete godoc
// @Summary Delete an archived upload
// @Tags Archives
// @Security BearerAuth
// @Param name path string true "Archive filename"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /archives/{name} [delete]
func (h *ArchiveHandler) Delete(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "archive name is required"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), name, actorFromContext(c), c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reprocess godoc
// @Summary Replay an archived upload through reconciliation
// @Tags Archives
// @Produce json
// @Security BearerAuth
// @Param name path string true "Archive filename"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archives/{name}/reprocess [post]
func (h *ArchiveHandler) Reprocess(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "archive name is required"))
		return
	}
	result, err := h.service.Reprocess(c.Request.Context(), name, actorFromContext(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
