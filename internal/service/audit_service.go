package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bp3mi/presensi-api/internal/models"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
)

type auditStore interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// AuditService writes and reads the activity log. Writes are best-effort:
// a failed audit insert is logged and swallowed so it never aborts the
// operation it describes.
type AuditService struct {
	repo   auditStore
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends one activity-log entry.
func (s *AuditService) Record(ctx context.Context, actor *string, action, detail, ip string) {
	entry := &models.AuditEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		IPAddress: ip,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// List returns the most recent activity-log entries.
func (s *AuditService) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, nil
}
