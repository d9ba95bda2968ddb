package mq

import "time"

// ArchiveUploadedPayload is published (through the outbox) when an archive
// file lands in object storage. Routing key: "archive.uploaded".
type ArchiveUploadedPayload struct {
	ArchiveID  int64     `json:"archive_id"`
	UserID     int64     `json:"user_id"`
	ObjectKey  string    `json:"object_key"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"` // pst, eml, json
	UploadedAt time.Time `json:"uploaded_at"`
}
