package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bp3mi/presensi-api/internal/models"
	"github.com/bp3mi/presensi-api/internal/punch"
)

// AttendanceRepository handles persistence for reconciled attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Employee != "" {
		where = append(where, fmt.Sprintf("employee_name = $%d", len(args)+1))
		args = append(args, filter.Employee)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"date":       "date",
		"employee":   "employee_name",
		"status":     "status",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, employee_name, date, check_in, check_out, status, created_at, updated_at
        FROM attendance_records WHERE %s
        ORDER BY %s %s, employee_name ASC
        LIMIT %d OFFSET %d`, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// UpsertBatch merges reconciled records into the store. The dedup key is
// (employee_name, date); a newer record replaces the older one, so re-uploads
// of overlapping punch logs never duplicate rows.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin attendance upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO attendance_records (id, employee_name, date, check_in, check_out, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (employee_name, date)
DO UPDATE SET check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.EmployeeName, rec.Date, rec.CheckIn, rec.CheckOut, rec.Status, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return 0, fmt.Errorf("upsert attendance record %s/%s: %w", rec.EmployeeName, rec.Date.Format("2006-01-02"), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attendance upsert: %w", err)
	}
	return len(records), nil
}

// Month returns every record inside the given calendar month, ordered by
// employee then date, as the matrix report expects.
func (r *AttendanceRepository) Month(ctx context.Context, year int, month time.Month) ([]models.AttendanceRecord, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	query := `SELECT id, employee_name, date, check_in, check_out, status, created_at, updated_at
FROM attendance_records
WHERE date >= $1 AND date < $2
ORDER BY employee_name ASC, date ASC`

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, fmt.Errorf("load month records: %w", err)
	}
	return rows, nil
}

// Summary aggregates headline counts for the dashboard.
func (r *AttendanceRepository) Summary(ctx context.Context) (*models.AttendanceSummary, error) {
	query := `SELECT
    COUNT(DISTINCT employee_name) AS total_employees,
    COUNT(*) FILTER (WHERE status IN ($1, $2)) AS complete_count,
    COUNT(*) FILTER (WHERE status NOT IN ($1, $2)) AS incomplete_count,
    COUNT(*) AS total_records
FROM attendance_records`

	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, punch.StatusCompleteNormal, punch.StatusCompleteNightShift); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return &summary, nil
}

// Performance breaks down statuses per employee.
func (r *AttendanceRepository) Performance(ctx context.Context) ([]models.EmployeePerformance, error) {
	query := `SELECT employee_name,
    COUNT(*) FILTER (WHERE status = $1) AS complete_normal,
    COUNT(*) FILTER (WHERE status = $2) AS night_shifts,
    COUNT(*) FILTER (WHERE status = $3) AS missing_check_ins,
    COUNT(*) FILTER (WHERE status = $4) AS missing_check_outs,
    COUNT(*) AS total_days
FROM attendance_records
GROUP BY employee_name
ORDER BY employee_name ASC`

	var rows []models.EmployeePerformance
	if err := r.db.SelectContext(ctx, &rows, query,
		punch.StatusCompleteNormal, punch.StatusCompleteNightShift,
		punch.StatusMissingCheckIn, punch.StatusMissingCheckOut); err != nil {
		return nil, fmt.Errorf("employee performance: %w", err)
	}
	return rows, nil
}

// Latest returns the most recently updated records for the dashboard feed.
func (r *AttendanceRepository) Latest(ctx context.Context, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT id, employee_name, date, check_in, check_out, status, created_at, updated_at
FROM attendance_records
ORDER BY date DESC, employee_name ASC
LIMIT %d`, limit)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("latest attendance records: %w", err)
	}
	return rows, nil
}
