package models

import (
	"time"

	"github.com/bp3mi/presensi-api/internal/punch"
)

// AttendanceRecord is one reconciled employee-day as persisted and served.
// CheckIn and CheckOut hold "HH:MM:SS" or the "-" sentinel; the sentinel is
// part of the storage contract so downstream report rendering never sees an
// empty field.
type AttendanceRecord struct {
	ID           string       `db:"id" json:"id"`
	EmployeeName string       `db:"employee_name" json:"employee_name"`
	Date         time.Time    `db:"date" json:"date"`
	CheckIn      string       `db:"check_in" json:"check_in"`
	CheckOut     string       `db:"check_out" json:"check_out"`
	Status       punch.Status `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// FromReconciled converts a core record into its persisted shape.
func FromReconciled(rec punch.Record) AttendanceRecord {
	return AttendanceRecord{
		EmployeeName: rec.Employee,
		Date:         rec.Date,
		CheckIn:      rec.CheckInString(),
		CheckOut:     rec.CheckOutString(),
		Status:       rec.Status,
	}
}

// AttendanceFilter scopes listing queries.
type AttendanceFilter struct {
	Employee  string
	Status    *punch.Status
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AttendanceSummary aggregates record counts for the dashboard.
type AttendanceSummary struct {
	TotalEmployees  int `db:"total_employees" json:"total_employees"`
	CompleteCount   int `db:"complete_count" json:"complete_count"`
	IncompleteCount int `db:"incomplete_count" json:"incomplete_count"`
	TotalRecords    int `db:"total_records" json:"total_records"`
}

// EmployeePerformance breaks down one employee's record statuses.
type EmployeePerformance struct {
	EmployeeName     string `db:"employee_name" json:"employee_name"`
	CompleteNormal   int    `db:"complete_normal" json:"complete_normal"`
	NightShifts      int    `db:"night_shifts" json:"night_shifts"`
	MissingCheckIns  int    `db:"missing_check_ins" json:"missing_check_ins"`
	MissingCheckOuts int    `db:"missing_check_outs" json:"missing_check_outs"`
	TotalDays        int    `db:"total_days" json:"total_days"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
