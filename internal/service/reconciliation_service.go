package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/punch"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
)

type attendanceStore interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) (int, error)
}

type auditSink interface {
	Record(ctx context.Context, actor *string, action, detail, ip string)
}

// ReconciliationConfig tunes the upload pipeline.
type ReconciliationConfig struct {
	Policy  punch.Policy
	Workers int
}

// ReconciliationService runs raw punch logs through the classifier and merges
// the outcome into the record store.
type ReconciliationService struct {
	repo      attendanceStore
	audit     auditSink
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReconciliationConfig
}

// NewReconciliationService constructs the service.
func NewReconciliationService(repo attendanceStore, audit auditSink, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ReconciliationConfig) *ReconciliationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	svc := &ReconciliationService{repo: repo, audit: audit, cache: cache, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
	svc.validator.RegisterValidation("record_status", func(fl validator.FieldLevel) bool {
		return punch.Status(fl.Field().String()).Valid()
	})
	return svc
}

// UploadResult summarises one processed punch log.
type UploadResult struct {
	Punches   int                       `json:"punches"`
	Stored    int                       `json:"stored"`
	Records   []models.AttendanceRecord `json:"records"`
	Discarded []string                  `json:"discarded,omitempty"`
}

// ProcessBatch parses a raw terminal export, reconciles it, and merges the
// records into the store. A malformed row rejects the whole batch; nothing is
// written in that case.
func (s *ReconciliationService) ProcessBatch(ctx context.Context, raw io.Reader, actor *string, ip string) (*UploadResult, error) {
	events, err := punch.ParseBatch(raw)
	if err != nil {
		var rowErr *punch.RowError
		if errors.As(err, &rowErr) {
			return nil, appErrors.Wrap(err, appErrors.ErrBadUpload.Code, appErrors.ErrBadUpload.Status, rowErr.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrBadUpload.Code, appErrors.ErrBadUpload.Status, "unreadable punch log")
	}
	if len(events) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "punch log contains no events")
	}

	start := time.Now()
	result, err := s.reconcile(events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reconciliation failed")
	}

	records := make([]models.AttendanceRecord, len(result.Records))
	for i, rec := range result.Records {
		records[i] = models.FromReconciled(rec)
	}

	stored, err := s.repo.UpsertBatch(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance records")
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "dash:*")
	}
	if s.metrics != nil {
		s.metrics.ObserveReconciliation(len(events), result.Records, time.Since(start))
	}
	if s.audit != nil {
		detail := fmt.Sprintf("%d punches reconciled into %d records", len(events), len(records))
		s.audit.Record(ctx, actor, models.AuditActionReconcile, detail, ip)
	}

	out := &UploadResult{Punches: len(events), Stored: stored, Records: records}
	for _, ev := range result.Discarded {
		out.Discarded = append(out.Discarded, fmt.Sprintf("%s %s", ev.Employee, ev.Time.Format("2006-01-02 15:04:05")))
	}
	s.logger.Info("punch batch processed",
		zap.Int("punches", len(events)),
		zap.Int("records", len(records)),
		zap.Int("discarded", len(result.Discarded)),
	)
	return out, nil
}

// reconcile fans employee timelines out across a bounded worker pool. Each
// timeline owns its consumed set, so workers share nothing but read-only
// input; output order stays deterministic because results are collected by
// timeline index.
func (s *ReconciliationService) reconcile(events []punch.Event) (punch.Result, error) {
	timelines := punch.BuildTimelines(events)
	workers := s.cfg.Workers
	if workers > len(timelines) {
		workers = len(timelines)
	}
	if workers <= 1 {
		return punch.Reconcile(events, s.cfg.Policy)
	}

	type outcome struct {
		records   []punch.Record
		discarded []punch.Event
		err       error
	}
	outcomes := make([]outcome, len(timelines))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				records, discarded, err := punch.ReconcileTimeline(timelines[i], s.cfg.Policy)
				outcomes[i] = outcome{records: records, discarded: discarded, err: err}
			}
		}()
	}
	for i := range timelines {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	var res punch.Result
	for _, o := range outcomes {
		if o.err != nil {
			return punch.Result{}, o.err
		}
		res.Records = append(res.Records, o.records...)
		res.Discarded = append(res.Discarded, o.discarded...)
	}
	return res, nil
}

// ListRecordsRequest filters the record listing.
type ListRecordsRequest struct {
	Employee  string  `json:"employee"`
	Status    *string `json:"status" validate:"omitempty,record_status"`
	DateFrom  *string `json:"date_from"`
	DateTo    *string `json:"date_to"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

// List returns paginated attendance records.
func (s *ReconciliationService) List(ctx context.Context, req ListRecordsRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.AttendanceFilter{
		Employee:  req.Employee,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != nil {
		st := punch.Status(*req.Status)
		filter.Status = &st
	}
	if req.DateFrom != nil {
		from, err := time.Parse("2006-01-02", *req.DateFrom)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_from, expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if req.DateTo != nil {
		to, err := time.Parse("2006-01-02", *req.DateTo)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_to, expected YYYY-MM-DD")
		}
		filter.DateTo = &to
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	filter.Page = page
	filter.PageSize = size

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
