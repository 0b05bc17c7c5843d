package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bp3mi/presensi-api/internal/models"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
	"github.com/bp3mi/presensi-api/pkg/storage"
)

type archiveStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	List() ([]storage.FileInfo, error)
}

type batchProcessor interface {
	ProcessBatch(ctx context.Context, raw io.Reader, actor *string, ip string) (*UploadResult, error)
}

// ArchiveService keeps every uploaded punch log on disk so a batch can be
// inspected or replayed after the fact.
type ArchiveService struct {
	store     archiveStorage
	processor batchProcessor
	audit     auditSink
	logger    *zap.Logger
}

// NewArchiveService constructs the service.
func NewArchiveService(store archiveStorage, processor batchProcessor, audit auditSink, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{store: store, processor: processor, audit: audit, logger: logger}
}

// Store persists a raw upload under a collision-free name and returns it.
func (s *ArchiveService) Store(originalName string, data []byte) (string, error) {
	name := archiveName(originalName, time.Now().UTC())
	if _, err := s.store.Save(name, data); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive upload")
	}
	return name, nil
}

// List returns the archived uploads, newest first.
func (s *ArchiveService) List(_ context.Context) ([]models.ArchiveFile, error) {
	files, err := s.store.List()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archives")
	}
	out := make([]models.ArchiveFile, len(files))
	for i, f := range files {
		out[i] = models.ArchiveFile{Name: f.Name, SizeBytes: f.SizeBytes, UploadedAt: f.ModTime}
	}
	return out, nil
}

// Delete removes one archived upload and records the deletion.
func (s *ArchiveService) Delete(ctx context.Context, name string, actor *string, ip string) error {
	if _, err := s.store.Open(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("archive %q not found", name))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to access archive")
	}
	if err := s.store.Delete(name); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete archive")
	}
	if s.audit != nil {
		s.audit.Record(ctx, actor, models.AuditActionDelete, fmt.Sprintf("archive %s deleted", name), ip)
	}
	return nil
}

// Reprocess replays an archived upload through the reconciliation pipeline.
// Useful after a policy change or a bad batch was overwritten.
func (s *ArchiveService) Reprocess(ctx context.Context, name string, actor *string, ip string) (*UploadResult, error) {
	file, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("archive %q not found", name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open archive")
	}
	defer file.Close() //nolint:errcheck

	res, err := s.processor.ProcessBatch(ctx, file, actor, ip)
	if err != nil {
		return nil, err
	}
	s.logger.Info("archive reprocessed", zap.String("archive", name), zap.Int("records", len(res.Records)))
	return res, nil
}

// archiveName prefixes the upload with a sortable timestamp and strips any
// client-supplied directory components.
func archiveName(originalName string, now time.Time) string {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "punchlog.txt"
	}
	return fmt.Sprintf("%s_%s", now.Format("20060102T150405"), base)
}

