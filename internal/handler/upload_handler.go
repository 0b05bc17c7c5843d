package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bp3mi/presensi-api/internal/service"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
	"github.com/bp3mi/presensi-api/pkg/response"
)

type uploadProcessor interface {
	ProcessBatch(ctx context.Context, raw io.Reader, actor *string, ip string) (*service.UploadResult, error)
}

type uploadArchiver interface {
	Store(originalName string, data []byte) (string, error)
}

// UploadHandler accepts raw punch-log files and runs them through the
// reconciliation pipeline.
type UploadHandler struct {
	processor uploadProcessor
	archiver  uploadArchiver
	maxBytes  int64
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(processor uploadProcessor, archiver uploadArchiver, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &UploadHandler{processor: processor, archiver: archiver, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a raw punch log
// @Description Parses a tab- or comma-separated terminal export and merges the
// @Description reconciled records into the store. A malformed row rejects the
// @Description whole file.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Punch log export"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	if fileHeader.Size > h.maxBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum upload size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	if int64(len(data)) > h.maxBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum upload size"))
		return
	}

	var archived string
	if h.archiver != nil {
		archived, err = h.archiver.Store(fileHeader.Filename, data)
		if err != nil {
			response.Error(c, err)
			return
		}
	}

	result, err := h.processor.ProcessBatch(c.Request.Context(), bytes.NewReader(data), actorFromContext(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{}
	if archived != "" {
		meta["archive"] = archived
	}
	response.JSON(c, http.StatusOK, result, nil, meta)
}
