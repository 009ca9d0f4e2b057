// Package models contains the core data types shared across the pipeline.
package models

import "time"

// Message roles. No other roles are valid in a session transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn half within a conversation.
// Immutable once appended, except for the turn rollback performed
// by the orchestrator after a failed generation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a persisted conversation thread. The ID is the key in the
// session file and is not serialized as a field.
type Session struct {
	ID          string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	ScrapedURLs []string  `json:"scraped_urls"`
}

// History returns all messages except the last n. Used by the orchestrator
// to reconstruct prior turns while excluding the message just appended.
func (s *Session) History(excludeLast int) []Message {
	if excludeLast <= 0 || len(s.Messages) < excludeLast {
		return s.Messages
	}
	return s.Messages[:len(s.Messages)-excludeLast]
}
