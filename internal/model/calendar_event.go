package model

import "time"

// CalendarEvent is an event the LLM extracted from an email body.
type CalendarEvent struct {
	ID         int64
	EmailID    int64
	UserID     int64
	Title      string
	Location   string
	StartsAt   time.Time
	EndsAt     *time.Time
	AllDay     bool
	Confidence float64
	CreatedAt  time.Time
}
