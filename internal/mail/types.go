// Package mail owns the email boundary: the raw thread/message value types the
// pipeline consumes, the IMAP source that produces them and the SMTP delivery
// channel that sends the final reply.
package mail

import (
	"fmt"
	"strings"
	"time"
)

// RawMessage is one email message as handed to the pipeline. BodyText is
// decoded plain text; when a message only has an HTML part the source is
// responsible for reconstructing text before the message enters the pipeline.
// Immutable once received.
type RawMessage struct {
	Sender   string    `json:"sender"`
	SentAt   time.Time `json:"sentAt"`
	BodyText string    `json:"bodyText"`
}

// RawThread is an ordered sequence of messages; insertion order is
// chronological order. The pipeline only reads it.
type RawThread struct {
	ID       string       `json:"threadId"`
	Subject  string       `json:"subject"`
	Messages []RawMessage `json:"messages"`
}

// Validate checks the shape constraints the pure core relies on. Shape is
// enforced here at the boundary, never inside the core.
func (t RawThread) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("thread id is required")
	}
	for i, msg := range t.Messages {
		if strings.TrimSpace(msg.Sender) == "" {
			return fmt.Errorf("message %d: sender is required", i)
		}
		if msg.SentAt.IsZero() {
			return fmt.Errorf("message %d: sentAt is required", i)
		}
	}
	return nil
}

// First returns the first message and true, or a zero message and false for
// an empty thread.
func (t RawThread) First() (RawMessage, bool) {
	if len(t.Messages) == 0 {
		return RawMessage{}, false
	}
	return t.Messages[0], true
}
