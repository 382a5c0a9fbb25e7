package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"techsupport-web/internal/i18n"
	"techsupport-web/internal/metrics"
	"techsupport-web/internal/types"
)

const DefaultBaseURL = "http://127.0.0.1:8000"

// Operation names, also used as metric labels.
const (
	OpSend       = "send"
	OpHealth     = "health"
	OpList       = "list"
	OpGet        = "get"
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpCategories = "categories"
)

// ChatSender is the part of the backend the turn controller needs.
type ChatSender interface {
	SendChatMessage(ctx context.Context, text, sessionID string) (*types.ChatReply, error)
}

// KnowledgeBase is the part of the backend the admin screen needs.
type KnowledgeBase interface {
	ListEntries(ctx context.Context, category string) ([]types.KnowledgeBaseEntry, error)
	GetEntry(ctx context.Context, id int) (*types.KnowledgeBaseEntry, error)
	CreateEntry(ctx context.Context, entry types.KnowledgeBaseCreate) (*types.KnowledgeBaseEntry, error)
	UpdateEntry(ctx context.Context, id int, patch types.KnowledgeBaseUpdate) (*types.KnowledgeBaseEntry, error)
	DeleteEntry(ctx context.Context, id int) error
	ListCategories(ctx context.Context) ([]string, error)
}

// API is everything the remote support service offers.
type API interface {
	ChatSender
	KnowledgeBase
	Health(ctx context.Context) (*types.HealthStatus, error)
}

// Client talks JSON over HTTP to the remote support service. Every call is a
// single round trip: nothing is retried or cached.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallbacks  i18n.Failures
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithFallbacks sets the messages used when a failure carries no detail.
func WithFallbacks(f i18n.Failures) Option {
	return func(c *Client) {
		c.fallbacks = f
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		fallbacks:  i18n.Default().Failures,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---- Helpers ----

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, "", errors.Wrap(err, "marshal request body"))
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return c.fail(op, 0, "", errors.Wrap(err, "build request"))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(op, 0, "", errors.Wrapf(err, "%s %s", method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return c.fail(op, resp.StatusCode, detailOf(b), fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(op, resp.StatusCode, "", errors.Wrapf(err, "decode %s response", path))
	}
	return nil
}

// detailOf pulls the "detail" string out of a remote error body. Anything
// else (empty body, HTML, a validation array) yields "".
func detailOf(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	d := gjson.GetBytes(body, "detail")
	if d.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(d.String())
}

func (c *Client) fail(op string, status int, detail string, cause error) *Failure {
	metrics.BackendFailuresTotal.WithLabelValues(op).Inc()
	msg := detail
	if msg == "" {
		msg = c.fallback(op)
	}
	log.WithError(cause).WithFields(log.Fields{"op": op, "status": status}).Warn("backend request failed")
	return &Failure{Op: op, Status: status, Message: msg, Err: cause}
}

func (c *Client) fallback(op string) string {
	switch op {
	case OpSend:
		return c.fallbacks.Send
	case OpHealth:
		return c.fallbacks.Health
	case OpList:
		return c.fallbacks.List
	case OpGet:
		return c.fallbacks.Get
	case OpCreate:
		return c.fallbacks.Create
	case OpUpdate:
		return c.fallbacks.Update
	case OpDelete:
		return c.fallbacks.Delete
	case OpCategories:
		return c.fallbacks.Categories
	}
	return c.fallbacks.Send
}

// ---- Chat ----

func (c *Client) SendChatMessage(ctx context.Context, text, sessionID string) (*types.ChatReply, error) {
	var reply types.ChatReply
	req := types.ChatRequest{Message: text, SessionID: sessionID}
	if err := c.do(ctx, OpSend, http.MethodPost, "/chat/message", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	var h types.HealthStatus
	if err := c.do(ctx, OpHealth, http.MethodGet, "/chat/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ---- Knowledge base ----

func (c *Client) ListEntries(ctx context.Context, category string) ([]types.KnowledgeBaseEntry, error) {
	path := "/api/knowledge-base/"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var entries []types.KnowledgeBaseEntry
	if err := c.do(ctx, OpList, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GetEntry(ctx context.Context, id int) (*types.KnowledgeBaseEntry, error) {
	var e types.KnowledgeBaseEntry
	if err := c.do(ctx, OpGet, http.MethodGet, fmt.Sprintf("/api/knowledge-base/%d", id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) CreateEntry(ctx context.Context, entry types.KnowledgeBaseCreate) (*types.KnowledgeBaseEntry, error) {
	var e types.KnowledgeBaseEntry
	if err := c.do(ctx, OpCreate, http.MethodPost, "/api/knowledge-base/", entry, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) UpdateEntry(ctx context.Context, id int, patch types.KnowledgeBaseUpdate) (*types.KnowledgeBaseEntry, error) {
	var e types.KnowledgeBaseEntry
	if err := c.do(ctx, OpUpdate, http.MethodPut, fmt.Sprintf("/api/knowledge-base/%d", id), patch, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) DeleteEntry(ctx context.Context, id int) error {
	return c.do(ctx, OpDelete, http.MethodDelete, fmt.Sprintf("/api/knowledge-base/%d", id), nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var cats []string
	if err := c.do(ctx, OpCategories, http.MethodGet, "/api/knowledge-base/categories/list", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}
