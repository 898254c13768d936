package model

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Session is the state owned by one conversation: the append-only content
// history and the rolling memory summary. Each session owns its state
// exclusively; two sessions never share a memory slot.
type Session struct {
	ID        SessionID
	CreatedAt time.Time
	UpdatedAt time.Time

	Contents []*genai.Content
	Memory   string
}
