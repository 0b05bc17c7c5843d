package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/punch"
	"github.com/bp3mi/presensi-api/internal/repository"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
	"github.com/bp3mi/presensi-api/pkg/jobs"
	"github.com/bp3mi/presensi-api/pkg/storage"
)

type memoryJobStore struct {
	jobs map[string]*models.ReportJob
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: map[string]*models.ReportJob{}}
}

func (m *memoryJobStore) Create(_ context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now().UTC()
	m.jobs[job.ID] = job
	return nil
}

func (m *memoryJobStore) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobStore) ListQueued(_ context.Context, _ int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryJobStore) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

type stubMonthReader struct {
	rows []models.AttendanceRecord
	err  error
}

func (s *stubMonthReader) Month(_ context.Context, _ int, _ time.Month) ([]models.AttendanceRecord, error) {
	return s.rows, s.err
}

type recordingDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

func monthRows() []models.AttendanceRecord {
	return []models.AttendanceRecord{
		{
			EmployeeName: "Budi Santoso",
			Date:         time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
			CheckIn:      "07:43:00",
			CheckOut:     "17:30:00",
			Status:       punch.StatusCompleteNormal,
		},
		{
			EmployeeName: "Siti Aminah",
			Date:         time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
			CheckIn:      "-",
			CheckOut:     "17:32:00",
			Status:       punch.StatusMissingCheckIn,
		},
	}
}

func newReportService(t *testing.T, reader monthReader) (*ReportService, *memoryJobStore, *recordingDispatcher) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMemoryJobStore()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewReportService(repo, reader, store, signer, &stubAuditSink{}, nil, nil, ReportServiceConfig{ResultTTL: time.Hour})
	dispatcher := &recordingDispatcher{}
	svc.SetQueue(dispatcher)
	return svc, repo, dispatcher
}

func TestCreateJob_EnqueuesAndAudits(t *testing.T) {
	svc, repo, dispatcher := newReportService(t, &stubMonthReader{})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "csv"}, "admin", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, job.ID, dispatcher.enqueued[0].ID)
	assert.Contains(t, repo.jobs, job.ID)
}

func TestCreateJob_RejectsBadRequest(t *testing.T) {
	svc, _, _ := newReportService(t, &stubMonthReader{})

	cases := []CreateReportRequest{
		{Year: 2024, Month: 13, Format: "csv"},
		{Year: 2024, Month: 5, Format: "xlsx"},
		{Year: 1990, Month: 5, Format: "pdf"},
	}
	for _, req := range cases {
		_, err := svc.CreateJob(context.Background(), req, "admin", "")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestProcess_RendersCSVAndFinishes(t *testing.T) {
	svc, repo, _ := newReportService(t, &stubMonthReader{rows: monthRows()})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "csv"}, "admin", "")
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.Contains(t, *stored.ResultURL, "/api/v1/reports/download/")
	require.NotNil(t, stored.FinishedAt)
}

func TestProcess_RendersPDF(t *testing.T) {
	svc, repo, _ := newReportService(t, &stubMonthReader{rows: monthRows()})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "pdf"}, "admin", "")
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))
	assert.Equal(t, models.ReportStatusFinished, repo.jobs[job.ID].Status)
}

func TestDownloadRoundTrip(t *testing.T) {
	svc, repo, _ := newReportService(t, &stubMonthReader{rows: monthRows()})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "csv"}, "admin", "")
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	token := strings.TrimPrefix(*repo.jobs[job.ID].ResultURL, "/api/v1/reports/download/")
	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Budi Santoso")
	assert.Contains(t, string(content), "Missing-CheckIn")
	assert.Equal(t, "rekap_2024-05.csv", download.Filename)
}

func TestResolveDownload_RejectsTamperedToken(t *testing.T) {
	svc, _, _ := newReportService(t, &stubMonthReader{})

	_, err := svc.ResolveDownload(context.Background(), "garbage.token.value.sig")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestResolveDownload_NotReady(t *testing.T) {
	svc, repo, _ := newReportService(t, &stubMonthReader{})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "csv"}, "admin", "")
	require.NoError(t, err)

	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	token, _, err := signer.Generate(job.ID, job.ID+"/rekap_2024-05.csv")
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ReportStatusQueued, repo.jobs[job.ID].Status)
}

func TestProcess_EmptyMonthFailsValidation(t *testing.T) {
	svc, repo, _ := newReportService(t, &stubMonthReader{})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "csv"}, "admin", "")
	require.NoError(t, err)

	err = svc.Process(context.Background(), jobs.Job{ID: job.ID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs[job.ID].Status)
}

func TestProcess_MarksFailureOnRenderError(t *testing.T) {
	svc, repo, _ := newReportService(t, &stubMonthReader{err: assert.AnError})

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{Year: 2024, Month: 5, Format: "csv"}, "admin", "")
	require.NoError(t, err)

	require.Error(t, svc.Process(context.Background(), jobs.Job{ID: job.ID}))
	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
}
