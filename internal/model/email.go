package model

import "time"

// Email statuses.
const (
	EmailStatusIngested   = "ingested"
	EmailStatusClassified = "classified"
)

// Email is a single message extracted from an archive.
type Email struct {
	ID         int64
	ArchiveID  int64
	UserID     int64
	MessageID  string
	Subject    string
	Sender     string
	Recipients string
	BodyText   string
	SentAt     *time.Time
	Status     string
	CreatedAt  time.Time
}

// EmailMetadata is the LLM classification result for an email.
type EmailMetadata struct {
	ID         int64
	EmailID    int64
	Category   string
	Confidence float64
	CreatedAt  time.Time
}

// EmailWithMetadata joins an email with its classification for list views.
type EmailWithMetadata struct {
	Email
	Metadata *EmailMetadata
}
