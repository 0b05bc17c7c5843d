package models

import "time"

// Audit actions recorded by the activity log.
const (
	AuditActionLogin     = "LOGIN"
	AuditActionUpload    = "UPLOAD"
	AuditActionDelete    = "DELETE"
	AuditActionReconcile = "RECONCILE"
	AuditActionReport    = "REPORT"
)

// AuditEntry is one activity-log row.
type AuditEntry struct {
	ID        string    `db:"id" json:"id"`
	Actor     *string   `db:"actor" json:"actor,omitempty"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
