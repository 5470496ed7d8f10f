package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of a user's append-only transcript.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// Error marks synthetic assistant messages produced by a failed send.
	Error bool `json:"error,omitempty"`
}
