package model

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a RAG chat thread.
type Conversation struct {
	ID        int64
	UserID    int64
	Title     string
	CreatedAt time.Time
}

// Message is one turn of a conversation.
type Message struct {
	ID             int64
	ConversationID int64
	Role           string
	Content        string
	CreatedAt      time.Time
}
