package model

import "time"

// Archive statuses.
const (
	ArchiveStatusUploaded = "uploaded"
	ArchiveStatusIngested = "ingested"
	ArchiveStatusFailed   = "failed"
)

// Archive formats.
const (
	FormatPST  = "pst"
	FormatEML  = "eml"
	FormatJSON = "json"
)

// Archive is an uploaded mail archive file stored in object storage.
type Archive struct {
	ID          int64
	UserID      int64
	Filename    string
	Format      string
	ObjectKey   string
	SizeBytes   int64
	Status      string
	ParsedCount int
	FailedCount int
	CreatedAt   time.Time
}
