package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"techsupport-web/internal/backend"
	"techsupport-web/internal/i18n"
	"techsupport-web/internal/identity"
	"techsupport-web/internal/metrics"
)

var ErrNoSession = errors.New("no chat session in progress")

type State string

const (
	Idle     State = "idle"
	Awaiting State = "awaiting"
)

// Controller drives the turns of one caller's chat. At most one request to
// the backend is in flight per transcript; submits made meanwhile are
// ignored.
type Controller struct {
	mu         sync.Mutex
	sender     backend.ChatSender
	catalog    *i18n.Catalog
	now        func() time.Time
	profile    identity.Profile
	transcript *Transcript
	draft      string
}

type Option func(*Controller)

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(sender backend.ChatSender, catalog *i18n.Catalog, opts ...Option) *Controller {
	if catalog == nil {
		catalog = i18n.Default()
	}
	c := &Controller{sender: sender, catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a chat for the given caller, seeded with the greeting. Any
// previous transcript is dropped.
func (c *Controller) Start(p identity.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := newTranscript(c.now)
	t.AppendMessage(Assistant, c.catalog.Greeting(p.DisplayName))
	c.profile = p
	c.transcript = t
	c.draft = ""
}

// Active reports whether a chat is open.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript != nil
}

func (c *Controller) Profile() (identity.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile, c.transcript != nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcript != nil && c.transcript.pending {
		return Awaiting
	}
	return Idle
}

// SetDraft stores what the caller has typed but not yet sent.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcript != nil {
		c.draft = text
	}
}

// Submit runs one turn with the given input and blocks until the backend
// answers. It reports false, with no state change, when the input is blank
// or a previous turn is still waiting. Backend failures never escape: they
// become an assistant error message in the transcript.
func (c *Controller) Submit(ctx context.Context, input string) (bool, error) {
	text := strings.TrimSpace(input)

	c.mu.Lock()
	t := c.transcript
	if t == nil {
		c.mu.Unlock()
		return false, ErrNoSession
	}
	if text == "" || t.pending {
		c.mu.Unlock()
		metrics.RejectedSubmitsTotal.Inc()
		return false, nil
	}
	t.AppendMessage(Caller, text)
	t.pending = true
	c.draft = ""
	sessionID := t.sessionID
	isGuest := c.profile.IsGuest
	c.mu.Unlock()

	reply, err := c.sender.SendChatMessage(ctx, text, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcript != t {
		// the chat was ended or restarted while waiting
		log.WithField("session", sessionID).Info("dropping reply for a discarded transcript")
		metrics.ChatTurnsTotal.WithLabelValues(metrics.TurnDiscarded).Inc()
		return true, nil
	}
	t.pending = false
	if err != nil {
		log.WithError(err).WithField("session", sessionID).Warn("chat turn failed")
		t.AppendMessage(Assistant, c.catalog.Chat.ErrorNotice)
		metrics.ChatTurnsTotal.WithLabelValues(metrics.TurnFailed).Inc()
		return true, nil
	}
	t.AppendMessage(Assistant, reply.Response)
	t.BindSessionID(reply.SessionID)
	if t.RecordTicketIfAbsent(reply.Response, isGuest) {
		log.WithFields(log.Fields{"session": t.sessionID, "ticket": t.ticketID}).Info("ticket reference detected")
	}
	metrics.ChatTurnsTotal.WithLabelValues(metrics.TurnOK).Inc()
	return true, nil
}

// End closes the chat when the caller has confirmed it. Nothing is sent to
// the backend; a reply still in flight is dropped when it arrives.
func (c *Controller) End(confirmed bool) bool {
	if !confirmed {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transcript == nil {
		return false
	}
	c.transcript = nil
	c.profile = identity.Profile{}
	c.draft = ""
	return true
}

// EndPrompt is the question to ask before End.
func (c *Controller) EndPrompt() string { return c.catalog.Chat.EndPrompt }

type MessageView struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sentAt"`
	Time    string    `json:"time"`
}

// View is a read-only snapshot for rendering.
type View struct {
	Profile   identity.Profile `json:"profile"`
	Messages  []MessageView    `json:"messages"`
	SessionID string           `json:"sessionId,omitempty"`
	Pending   bool             `json:"pending"`
	TicketID  string           `json:"ticketId,omitempty"`
	Draft     string           `json:"draft,omitempty"`
}

func (c *Controller) View() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.transcript
	if t == nil {
		return View{}, ErrNoSession
	}
	v := View{
		Profile:   c.profile,
		Messages:  make([]MessageView, 0, len(t.messages)),
		SessionID: t.sessionID,
		Pending:   t.pending,
		Draft:     c.draft,
	}
	if c.profile.IsGuest {
		v.TicketID = t.ticketID
	}
	for _, m := range t.messages {
		v.Messages = append(v.Messages, MessageView{
			Speaker: m.Speaker,
			Text:    m.Text,
			SentAt:  m.SentAt,
			Time:    m.SentAt.Local().Format("15:04"),
		})
	}
	return v, nil
}
