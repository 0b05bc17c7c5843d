package models

import "time"

// ArchiveFile describes one stored raw punch-log upload.
type ArchiveFile struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}
