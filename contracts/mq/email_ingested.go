package mq

import "time"

// EmailIngestedPayload is published once per email extracted from an
// archive. Routing key: "email.ingested". The classify, event-extraction
// and index consumers all bind to it with their own queues.
type EmailIngestedPayload struct {
	EmailID    int64     `json:"email_id"`
	ArchiveID  int64     `json:"archive_id"`
	UserID     int64     `json:"user_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	IngestedAt time.Time `json:"ingested_at"`
}
