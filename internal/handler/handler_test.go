package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bp3mi/presensi-api/internal/middleware"
	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/punch"
	"github.com/bp3mi/presensi-api/internal/service"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type processorMock struct {
	result *service.UploadResult
	err    error
	raw    []byte
}

func (m *processorMock) ProcessBatch(_ context.Context, raw io.Reader, _ *string, _ string) (*service.UploadResult, error) {
	data, _ := io.ReadAll(raw)
	m.raw = data
	return m.result, m.err
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestUploadHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	processor := &processorMock{result: &service.UploadResult{Punches: 2, Stored: 1}}
	handler := NewUploadHandler(processor, nil, 1<<20)

	body, contentType := multipartBody(t, "file", "log.txt", "raw punch rows")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("raw punch rows"), processor.raw)
}

func TestUploadHandler_MissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&processorMock{}, nil, 1<<20)

	c, w := newGinContext(http.MethodPost, "/uploads", nil)
	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_RejectsOversizedFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&processorMock{}, nil, 8)

	body, contentType := multipartBody(t, "file", "log.txt", "this payload is longer than eight bytes")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_BadBatchSurfacesRow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	processor := &processorMock{err: appErrors.Clone(appErrors.ErrBadUpload, "row 3: invalid timestamp")}
	handler := NewUploadHandler(processor, nil, 1<<20)

	body, contentType := multipartBody(t, "file", "log.txt", "whatever")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "row 3")
}

type recordListerMock struct {
	rows       []models.AttendanceRecord
	pagination *models.Pagination
	err        error
	gotReq     service.ListRecordsRequest
}

func (m *recordListerMock) List(_ context.Context, req service.ListRecordsRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	m.gotReq = req
	return m.rows, m.pagination, m.err
}

func TestRecordHandler_ListPassesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &recordListerMock{
		rows:       []models.AttendanceRecord{{EmployeeName: "Budi", Status: punch.StatusCompleteNormal}},
		pagination: &models.Pagination{Page: 2, PageSize: 25, TotalCount: 51},
	}
	handler := NewRecordHandler(mock)

	c, w := newGinContext(http.MethodGet, "/records?employee=Budi&status=Complete-Normal&page=2&page_size=25", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Budi", mock.gotReq.Employee)
	require.NotNil(t, mock.gotReq.Status)
	assert.Equal(t, "Complete-Normal", *mock.gotReq.Status)
	assert.Equal(t, 2, mock.gotReq.Page)
	assert.Equal(t, 25, mock.gotReq.PageSize)
}

type dashboardReaderMock struct {
	summary *models.AttendanceSummary
	err     error
}

func (m *dashboardReaderMock) Summary(_ context.Context) (*models.AttendanceSummary, error) {
	return m.summary, m.err
}

func (m *dashboardReaderMock) Performance(_ context.Context) ([]models.EmployeePerformance, error) {
	return nil, m.err
}

func (m *dashboardReaderMock) Latest(_ context.Context, _ int) ([]models.AttendanceRecord, error) {
	return nil, m.err
}

func TestDashboardHandler_Summary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&dashboardReaderMock{summary: &models.AttendanceSummary{TotalEmployees: 12}})

	c, w := newGinContext(http.MethodGet, "/dashboard/summary", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.AttendanceSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 12, envelope.Data.TotalEmployees)
}

type reportServiceMock struct {
	job         *models.ReportJob
	createErr   error
	statusErr   error
	download    *service.ReportDownload
	downloadErr error
}

func (m *reportServiceMock) CreateJob(_ context.Context, _ service.CreateReportRequest, _ string, _ string) (*models.ReportJob, error) {
	return m.job, m.createErr
}

func (m *reportServiceMock) GetStatus(_ context.Context, _ string) (*models.ReportJob, error) {
	return m.job, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(_ context.Context, _ string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func TestReportHandler_Create(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &reportServiceMock{job: &models.ReportJob{ID: "job-1", Status: models.ReportStatusQueued}}
	handler := NewReportHandler(mock)

	payload, _ := json.Marshal(service.CreateReportRequest{Year: 2024, Month: 5, Format: "pdf"})
	c, w := newGinContext(http.MethodPost, "/reports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "admin@bp3mi.go.id"})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestReportHandler_StatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &reportServiceMock{statusErr: appErrors.Clone(appErrors.ErrNotFound, "report job not found")}
	handler := NewReportHandler(mock)

	c, w := newGinContext(http.MethodGet, "/reports/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	handler.Status(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

type archiveManagerMock struct {
	files     []models.ArchiveFile
	deleteErr error
	result    *service.UploadResult
	err       error
}

func (m *archiveManagerMock) List(_ context.Context) ([]models.ArchiveFile, error) {
	return m.files, m.err
}

func (m *archiveManagerMock) Delete(_ context.Context, _ string, _ *string, _ string) error {
	return m.deleteErr
}

func (m *archiveManagerMock) Reprocess(_ context.Context, _ string, _ *string, _ string) (*service.UploadResult, error) {
	return m.result, m.err
}

func TestArchiveHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &archiveManagerMock{files: []models.ArchiveFile{{Name: "20240506T080000_log.txt", SizeBytes: 42, UploadedAt: time.Now()}}}
	handler := NewArchiveHandler(mock)

	c, w := newGinContext(http.MethodGet, "/archives", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "20240506T080000_log.txt")
}

func TestArchiveHandler_DeleteNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewArchiveHandler(&archiveManagerMock{})

	c, w := newGinContext(http.MethodDelete, "/archives/x.txt", nil)
	c.Params = gin.Params{{Key: "name", Value: "x.txt"}}
	handler.Delete(c)
	// the test recorder only sees the status once the header is flushed
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

type authServiceMock struct {
	resp *models.LoginResponse
	info *models.UserInfo
	err  error
}

func (m *authServiceMock) Login(_ context.Context, _ models.LoginRequest) (*models.LoginResponse, error) {
	return m.resp, m.err
}

func (m *authServiceMock) Me(_ context.Context, _ string) (*models.UserInfo, error) {
	return m.info, m.err
}

func TestAuthHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &authServiceMock{resp: &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}}
	handler := NewAuthHandler(mock)

	payload, _ := json.Marshal(models.LoginRequest{Email: "admin@bp3mi.go.id", Password: "rahasia"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)

	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
}

func TestAuthHandler_MeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
