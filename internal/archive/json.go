package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// jsonMessage mirrors the JSON export format: a flat array of messages.
type jsonMessage struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Date      string `json:"date"`
}

// jsonDateLayouts tried in order when parsing the date field.
var jsonDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseJSONArchive parses a JSON export. Messages with no subject and no
// body are skipped; a bad date only loses the timestamp, not the message.
func ParseJSONArchive(r io.Reader) ([]ParsedEmail, error) {
	var messages []jsonMessage
	if err := json.NewDecoder(r).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode json archive: %w", err)
	}

	emails := make([]ParsedEmail, 0, len(messages))
	for _, m := range messages {
		if m.Subject == "" && m.Body == "" {
			continue
		}

		parsed := ParsedEmail{
			MessageID:  m.MessageID,
			Subject:    m.Subject,
			Sender:     m.From,
			Recipients: m.To,
			BodyText:   m.Body,
		}

		if m.Date != "" {
			for _, layout := range jsonDateLayouts {
				if t, err := time.Parse(layout, m.Date); err == nil {
					parsed.SentAt = &t
					break
				}
			}
		}

		emails = append(emails, parsed)
	}

	return emails, nil
}
