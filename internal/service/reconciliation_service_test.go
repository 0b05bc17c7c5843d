package service

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/punch"
	appErrors "github.com/bp3mi/presensi-api/pkg/errors"
)

type stubAttendanceStore struct {
	upserted []models.AttendanceRecord
	listed   []models.AttendanceRecord
	total    int
	err      error
}

func (s *stubAttendanceStore) List(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return s.listed, s.total, s.err
}

func (s *stubAttendanceStore) UpsertBatch(_ context.Context, records []models.AttendanceRecord) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.upserted = append(s.upserted, records...)
	return len(records), nil
}

type stubAuditSink struct {
	actions []string
	details []string
}

func (s *stubAuditSink) Record(_ context.Context, _ *string, action, detail, _ string) {
	s.actions = append(s.actions, action)
	s.details = append(s.details, detail)
}

func newReconciliationService(repo *stubAttendanceStore, audit *stubAuditSink, workers int) *ReconciliationService {
	return NewReconciliationService(repo, audit, nil, nil, nil, nil, ReconciliationConfig{
		Policy:  punch.DefaultPolicy(),
		Workers: workers,
	})
}

func TestProcessBatch_NormalDay(t *testing.T) {
	repo := &stubAttendanceStore{}
	audit := &stubAuditSink{}
	svc := newReconciliationService(repo, audit, 1)

	raw := strings.Join([]string{
		"1\t2024-05-06 07:43:00\t3\tT01\tBudi Santoso\t0\t\t",
		"2\t2024-05-06 17:30:00\t3\tT01\tBudi Santoso\t1\t\t",
	}, "\n")

	res, err := svc.ProcessBatch(context.Background(), strings.NewReader(raw), nil, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Punches)
	assert.Equal(t, 1, res.Stored, "both punches fold into one attendance record")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Budi Santoso", res.Records[0].EmployeeName)
	assert.Equal(t, punch.StatusCompleteNormal, res.Records[0].Status)
	assert.Equal(t, "07:43:00", res.Records[0].CheckIn)
	assert.Equal(t, "17:30:00", res.Records[0].CheckOut)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionReconcile, audit.actions[0])
}

func TestProcessBatch_MalformedRowRejectsEverything(t *testing.T) {
	repo := &stubAttendanceStore{}
	svc := newReconciliationService(repo, &stubAuditSink{}, 1)

	raw := strings.Join([]string{
		"1\t2024-05-06 07:43:00\t3\tT01\tBudi Santoso\t0\t\t",
		"2\tnot-a-timestamp\t3\tT01\tBudi Santoso\t1\t\t",
	}, "\n")

	_, err := svc.ProcessBatch(context.Background(), strings.NewReader(raw), nil, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrBadUpload.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "row 2")
	assert.Empty(t, repo.upserted, "a rejected batch must not write anything")
}

func TestProcessBatch_EmptyLog(t *testing.T) {
	svc := newReconciliationService(&stubAttendanceStore{}, &stubAuditSink{}, 1)

	_, err := svc.ProcessBatch(context.Background(), strings.NewReader("\n\n"), nil, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProcessBatch_ParallelMatchesSequential(t *testing.T) {
	// Same input reconciled with one worker and with many must produce
	// identical output, in identical order.
	var rows []string
	id := 1
	for _, name := range []string{"Andi", "Budi", "Citra", "Dewi", "Eko"} {
		for day := 1; day <= 5; day++ {
			in := time.Date(2024, 5, day, 7, 40+day, 0, 0, time.UTC)
			out := time.Date(2024, 5, day, 17, 10+day, 0, 0, time.UTC)
			rows = append(rows,
				strings.Join([]string{strconv.Itoa(id), in.Format("2006-01-02 15:04:05"), "1", "T01", name, "0", "", ""}, "\t"),
				strings.Join([]string{strconv.Itoa(id + 1), out.Format("2006-01-02 15:04:05"), "1", "T01", name, "1", "", ""}, "\t"),
			)
			id += 2
		}
	}
	raw := strings.Join(rows, "\n")

	seqRepo := &stubAttendanceStore{}
	seq := newReconciliationService(seqRepo, &stubAuditSink{}, 1)
	seqRes, err := seq.ProcessBatch(context.Background(), strings.NewReader(raw), nil, "")
	require.NoError(t, err)

	parRepo := &stubAttendanceStore{}
	par := newReconciliationService(parRepo, &stubAuditSink{}, 4)
	parRes, err := par.ProcessBatch(context.Background(), strings.NewReader(raw), nil, "")
	require.NoError(t, err)

	require.Len(t, parRes.Records, len(seqRes.Records))
	for i := range seqRes.Records {
		assert.Equal(t, seqRes.Records[i].EmployeeName, parRes.Records[i].EmployeeName)
		assert.Equal(t, seqRes.Records[i].Date, parRes.Records[i].Date)
		assert.Equal(t, seqRes.Records[i].CheckIn, parRes.Records[i].CheckIn)
		assert.Equal(t, seqRes.Records[i].CheckOut, parRes.Records[i].CheckOut)
		assert.Equal(t, seqRes.Records[i].Status, parRes.Records[i].Status)
	}
}

func TestProcessBatch_SurfacesDiscardedPunches(t *testing.T) {
	svc := newReconciliationService(&stubAttendanceStore{}, &stubAuditSink{}, 1)

	raw := strings.Join([]string{
		"1\t2024-05-06 07:43:00\t3\tT01\tBudi Santoso\t0\t\t",
		"2\t2024-05-06 12:01:00\t3\tT01\tBudi Santoso\t0\t\t",
		"3\t2024-05-06 17:30:00\t3\tT01\tBudi Santoso\t1\t\t",
	}, "\n")

	res, err := svc.ProcessBatch(context.Background(), strings.NewReader(raw), nil, "")
	require.NoError(t, err)
	require.Len(t, res.Discarded, 1)
	assert.Contains(t, res.Discarded[0], "12:01:00")
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	svc := newReconciliationService(&stubAttendanceStore{}, &stubAuditSink{}, 1)

	bogus := "Half-Day"
	_, _, err := svc.List(context.Background(), ListRecordsRequest{Status: &bogus})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestList_DefaultsPagination(t *testing.T) {
	repo := &stubAttendanceStore{listed: []models.AttendanceRecord{{EmployeeName: "Budi"}}, total: 1}
	svc := newReconciliationService(repo, &stubAuditSink{}, 1)

	rows, page, err := svc.List(context.Background(), ListRecordsRequest{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PageSize)
	assert.Equal(t, 1, page.TotalCount)
}
