package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/repository"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
	"github.com/bp3mi/presensi-api/pkg/export"
	"github.com/bp3mi/presensi-api/pkg/jobs"
	"github.com/bp3mi/presensi-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
}

type monthReader interface {
	Month(ctx context.Context, year int, month time.Month) ([]models.AttendanceRecord, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ReportServiceConfig governs result retention.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportService manages the lifecycle of asynchronous monthly exports: create
// a job, render it on a worker, hand the result out through a signed URL.
type ReportService struct {
	repo      reportJobStore
	records   monthReader
	store     reportStorage
	signer    *storage.SignedURLSigner
	queue     jobDispatcher
	csv       *export.CSVExporter
	pdf       *export.MatrixPDFExporter
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// NewReportService constructs the report service. The queue is attached later
// via SetQueue because the queue handler needs the service itself.
func NewReportService(repo reportJobStore, records monthReader, store reportStorage, signer *storage.SignedURLSigner, audit auditSink, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:      repo,
		records:   records,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewMatrixPDFExporter(),
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetQueue wires the background dispatcher.
func (s *ReportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateReportRequest asks for one monthly export.
type CreateReportRequest struct {
	Year   int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Month  int    `json:"month" validate:"required,gte=1,lte=12"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// CreateJob persists a queued job and dispatches it.
func (s *ReportService) CreateJob(ctx context.Context, req CreateReportRequest, actor string, ip string) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	job := &models.ReportJob{
		Params:    models.ReportJobParams{Year: req.Year, Month: req.Month, Format: models.ReportFormat(req.Format)},
		Status:    models.ReportStatusQueued,
		CreatedBy: actor,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID}); err != nil {
			s.failJob(ctx, job.ID, "failed to enqueue job")
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
		}
	}
	if s.audit != nil {
		detail := fmt.Sprintf("%s report requested for %04d-%02d", req.Format, req.Year, req.Month)
		s.audit.Record(ctx, &actor, models.AuditActionReport, detail, ip)
	}
	return job, nil
}

// GetStatus exposes job metadata to clients.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// Process is the queue handler: it renders the export and records the result.
func (s *ReportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}
	if job.Status == models.ReportStatusFinished {
		return nil
	}

	processing := models.ReportStatusProcessing
	_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing})

	if err := s.render(ctx, job); err != nil {
		s.failJob(ctx, job.ID, err.Error())
		return err
	}
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) error {
	year, month := job.Params.Year, time.Month(job.Params.Month)
	rows, err := s.records.Month(ctx, year, month)
	if err != nil {
		return fmt.Errorf("load records for %04d-%02d: %w", year, month, err)
	}
	if len(rows) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no attendance records for %04d-%02d", year, month))
	}

	var data []byte
	var ext string
	switch job.Params.Format {
	case models.ReportFormatCSV:
		data, err = s.csv.Render(monthlyDataset(rows))
		ext = "csv"
	case models.ReportFormatPDF:
		data, err = s.pdf.Render(monthlyMatrix(rows, year, month))
		ext = "pdf"
	default:
		return fmt.Errorf("unsupported report format %q", job.Params.Format)
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	relPath := filepath.Join(job.ID, fmt.Sprintf("rekap_%04d-%02d.%s", year, month, ext))
	if _, err := s.store.Save(relPath, data); err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return fmt.Errorf("sign download url: %w", err)
	}
	resultURL := "/api/v1/reports/download/" + token
	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		ResultURL:  &resultURL,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("finalize report job: %w", err)
	}
	s.logger.Info("report rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Params.Format)),
		zap.Int("records", len(rows)),
	)
	return nil
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ResolveDownload validates the token and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs requeues jobs left QUEUED by a previous process.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup boots a goroutine that purges expired report files.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if deleted, err := s.store.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
					s.logger.Warn("report cleanup failed", zap.Error(err))
				} else if len(deleted) > 0 {
					s.logger.Info("expired reports removed", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

func (s *ReportService) failJob(ctx context.Context, id, message string) {
	failed := models.ReportStatusFailed
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark report job failed", zap.String("job_id", id), zap.Error(err))
	}
}

func monthlyDataset(rows []models.AttendanceRecord) export.Dataset {
	headers := []string{"Nama", "Tanggal", "Jam Masuk", "Jam Pulang", "Status"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, len(rows))}
	for i, rec := range rows {
		data.Rows[i] = map[string]string{
			"Nama":       rec.EmployeeName,
			"Tanggal":    rec.Date.Format("2006-01-02"),
			"Jam Masuk":  rec.CheckIn,
			"Jam Pulang": rec.CheckOut,
			"Status":     string(rec.Status),
		}
	}
	return data
}

func monthlyMatrix(rows []models.AttendanceRecord, year int, month time.Month) export.MonthlyMatrix {
	seen := map[string]bool{}
	var employees []string
	entries := map[export.MatrixKey]export.MatrixEntry{}
	for _, rec := range rows {
		if !seen[rec.EmployeeName] {
			seen[rec.EmployeeName] = true
			employees = append(employees, rec.EmployeeName)
		}
		entries[export.MatrixKey{Employee: rec.EmployeeName, Day: rec.Date.Day()}] = export.MatrixEntry{
			CheckIn:  rec.CheckIn,
			CheckOut: rec.CheckOut,
			Complete: rec.Status.Complete(),
		}
	}
	sort.Strings(employees)
	return export.MonthlyMatrix{Year: year, Month: month, Employees: employees, Entries: entries}
}
