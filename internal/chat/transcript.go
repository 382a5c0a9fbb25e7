package chat

import "time"

type Speaker string

const (
	Caller    Speaker = "caller"
	Assistant Speaker = "assistant"
)

// Message is one immutable transcript line.
type Message struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sentAt"`
}

// Transcript is the ordered history of one caller session. It is not safe
// for concurrent use; the Controller that owns it serializes access.
type Transcript struct {
	messages  []Message
	sessionID string
	pending   bool
	ticketID  string
	now       func() time.Time
}

func newTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{now: now}
}

// AppendMessage adds a message stamped with the current time.
func (t *Transcript) AppendMessage(speaker Speaker, text string) {
	t.messages = append(t.messages, Message{Speaker: speaker, Text: text, SentAt: t.now()})
}

// BindSessionID records the remote session id. Once set it never changes.
func (t *Transcript) BindSessionID(id string) {
	if t.sessionID == "" {
		t.sessionID = id
	}
}

// RecordTicketIfAbsent scans a reply for a ticket reference and keeps the
// first one found. Only guest sessions track tickets. It reports whether a
// ticket was recorded by this call.
func (t *Transcript) RecordTicketIfAbsent(replyText string, isGuest bool) bool {
	if !isGuest || t.ticketID != "" {
		return false
	}
	id, ok := ExtractTicketID(replyText)
	if !ok {
		return false
	}
	t.ticketID = id
	return true
}

// Messages returns a copy of the history in insertion order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int { return len(t.messages) }

func (t *Transcript) SessionID() string { return t.sessionID }

func (t *Transcript) Pending() bool { return t.pending }

func (t *Transcript) TicketID() string { return t.ticketID }
