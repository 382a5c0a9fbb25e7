package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techsupport-web/internal/chat"
	"techsupport-web/internal/config"
	"techsupport-web/internal/i18n"
	"techsupport-web/internal/theme"
	"techsupport-web/internal/types"
)

// fakeBackend is an in-memory stand-in for the remote support service.
type fakeBackend struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]types.KnowledgeBaseEntry
	reply   types.ChatReply
	chatErr bool
	seen    []types.ChatRequest
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		nextID:  1,
		entries: map[int]types.KnowledgeBaseEntry{},
		reply:   types.ChatReply{Response: "Olá!", SessionID: "s1"},
	}
	r := chi.NewRouter()
	r.Get("/chat/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthStatus{Status: "healthy", Service: "support"})
	})
	r.Post("/chat/message", fb.handleMessage)
	r.Get("/api/knowledge-base/", fb.handleList)
	r.Post("/api/knowledge-base/", fb.handleCreate)
	r.Get("/api/knowledge-base/categories/list", fb.handleCategories)
	r.Get("/api/knowledge-base/{id}", fb.handleGet)
	r.Put("/api/knowledge-base/{id}", fb.handleUpdate)
	r.Delete("/api/knowledge-base/{id}", fb.handleDelete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) lookupID(id int) (types.KnowledgeBaseEntry, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	e, ok := fb.entries[id]
	return e, ok
}

func (fb *fakeBackend) entry(id int) types.KnowledgeBaseEntry {
	e, _ := fb.lookupID(id)
	return e
}

func (fb *fakeBackend) requests() []types.ChatRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]types.ChatRequest(nil), fb.seen...)
}

func (fb *fakeBackend) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.seen = append(fb.seen, req)
	if fb.chatErr {
		writeJSON(w, http.StatusInternalServerError, types.RemoteError{Detail: "boom"})
		return
	}
	writeJSON(w, http.StatusOK, fb.reply)
}

func (fb *fakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := []types.KnowledgeBaseEntry{}
	for id := 1; id < fb.nextID; id++ {
		if e, ok := fb.entries[id]; ok {
			out = append(out, e)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *fakeBackend) handleCategories(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for id := 1; id < fb.nextID; id++ {
		if e, ok := fb.entries[id]; ok && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *fakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in types.KnowledgeBaseCreate
	_ = json.NewDecoder(r.Body).Decode(&in)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	e := types.KnowledgeBaseEntry{ID: fb.nextID, Question: in.Question, Answer: in.Answer, Keywords: in.Keywords, Category: in.Category}
	fb.entries[e.ID] = e
	fb.nextID++
	writeJSON(w, http.StatusOK, e)
}

func (fb *fakeBackend) lookup(w http.ResponseWriter, r *http.Request) (types.KnowledgeBaseEntry, bool) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	e, ok := fb.entries[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, types.RemoteError{Detail: "Item not found"})
	}
	return e, ok
}

func (fb *fakeBackend) handleGet(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if e, ok := fb.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, e)
	}
}

func (fb *fakeBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch types.KnowledgeBaseUpdate
	_ = json.NewDecoder(r.Body).Decode(&patch)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	e, ok := fb.lookup(w, r)
	if !ok {
		return
	}
	if patch.Question != nil {
		e.Question = *patch.Question
	}
	if patch.Answer != nil {
		e.Answer = *patch.Answer
	}
	if patch.Keywords != nil {
		e.Keywords = patch.Keywords
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	fb.entries[e.ID] = e
	writeJSON(w, http.StatusOK, e)
}

func (fb *fakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if e, ok := fb.lookup(w, r); ok {
		delete(fb.entries, e.ID)
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}
}

func newTestServer(t *testing.T) (*Server, *fakeBackend) {
	t.Helper()
	fb, upstream := newFakeBackend(t)
	s, err := NewServer(config.Config{
		Port:          "0",
		AllowedOrigin: "*",
		APIBaseURL:    upstream.URL,
		ThemeFile:     filepath.Join(t.TempDir(), "theme.json"),
		SessionTTL:    time.Minute,
		LogLevel:      "info",
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, fb
}

// call sends a request as visitor and decodes the JSON answer into out, if given.
func call(t *testing.T, s *Server, method, path, visitor string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if visitor != "" {
		req.Header.Set(VisitorHeader, visitor)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	var got struct {
		Status  string             `json:"status"`
		Backend types.HealthStatus `json:"backend"`
	}
	assert.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/api/health", "v1", nil, &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "healthy", got.Backend.Status)
}

func TestNewVisitorGetsCookie(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(VisitorHeader)
	assert.NotEmpty(t, id)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestIdentifyRequiresName(t *testing.T) {
	s, _ := newTestServer(t)
	var errResp types.ErrorResponse
	code := call(t, s, http.MethodPost, "/api/identify", "v1", identifyRequest{Name: "   "}, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, errResp.Error)

	var sess sessionResponse
	call(t, s, http.MethodGet, "/api/session", "v1", nil, &sess)
	assert.Equal(t, stageIdentify, sess.Stage)
}

func TestChatRequiresIdentification(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusConflict, call(t, s, http.MethodGet, "/api/chat", "v1", nil, nil))
	assert.Equal(t, http.StatusConflict, call(t, s, http.MethodPost, "/api/chat/messages", "v1", map[string]string{"text": "Oi"}, nil))
	assert.Equal(t, http.StatusConflict, call(t, s, http.MethodPut, "/api/chat/draft", "v1", map[string]string{"text": "Oi"}, nil))
}

func TestIdentifiedChatTurn(t *testing.T) {
	s, fb := newTestServer(t)
	fb.reply = types.ChatReply{Response: "Seu chamado foi aberto. ID: `ticket-42`", SessionID: "s1"}

	var view chat.View
	code := call(t, s, http.MethodPost, "/api/identify", "v1", identifyRequest{Name: "Ana", Email: "ana@example.com"}, &view)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Ana", view.Profile.DisplayName)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, chat.Assistant, view.Messages[0].Speaker)
	assert.Equal(t, i18n.Default().Greeting("Ana"), view.Messages[0].Text)

	var sess sessionResponse
	call(t, s, http.MethodGet, "/api/session", "v1", nil, &sess)
	assert.Equal(t, stageChat, sess.Stage)

	var resp messageResponse
	require.Equal(t, http.StatusOK, call(t, s, http.MethodPost, "/api/chat/messages", "v1", map[string]string{"text": "Meu PC não liga"}, &resp))
	assert.True(t, resp.Accepted)
	require.NotNil(t, resp.Chat)
	require.Len(t, resp.Chat.Messages, 3)
	assert.Equal(t, chat.Caller, resp.Chat.Messages[1].Speaker)
	assert.Equal(t, "Meu PC não liga", resp.Chat.Messages[1].Text)
	assert.Equal(t, fb.reply.Response, resp.Chat.Messages[2].Text)
	assert.Equal(t, "s1", resp.Chat.SessionID)
	assert.False(t, resp.Chat.Pending)
	// identified callers never see the ticket banner
	assert.Empty(t, resp.Chat.TicketID)

	call(t, s, http.MethodPost, "/api/chat/messages", "v1", map[string]string{"text": "Obrigado"}, &resp)
	seen := fb.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "", seen[0].SessionID)
	assert.Equal(t, "s1", seen[1].SessionID)
}

func TestGuestSeesTicket(t *testing.T) {
	s, fb := newTestServer(t)
	fb.reply = types.ChatReply{Response: "Chamado criado. ID: `ticket-42`", SessionID: "s1"}

	var view chat.View
	require.Equal(t, http.StatusCreated, call(t, s, http.MethodPost, "/api/identify/guest", "v1", nil, &view))
	assert.True(t, view.Profile.IsGuest)

	var resp messageResponse
	call(t, s, http.MethodPost, "/api/chat/messages", "v1", map[string]string{"text": "Preciso de ajuda"}, &resp)
	require.NotNil(t, resp.Chat)
	assert.Equal(t, "ticket-42", resp.Chat.TicketID)
}

func TestBlankMessageIsRejected(t *testing.T) {
	s, fb := newTestServer(t)
	call(t, s, http.MethodPost, "/api/identify/guest", "v1", nil, nil)

	var resp messageResponse
	require.Equal(t, http.StatusOK, call(t, s, http.MethodPost, "/api/chat/messages", "v1", map[string]string{"text": "   "}, &resp))
	assert.False(t, resp.Accepted)
	require.NotNil(t, resp.Chat)
	assert.Len(t, resp.Chat.Messages, 1)
	assert.Empty(t, fb.requests())
}

func TestBackendFailureBecomesErrorMessage(t *testing.T) {
	s, fb := newTestServer(t)
	fb.chatErr = true
	call(t, s, http.MethodPost, "/api/identify", "v1", identifyRequest{Name: "Ana"}, nil)

	var resp messageResponse
	call(t, s, http.MethodPost, "/api/chat/messages", "v1", map[string]string{"text": "Oi"}, &resp)
	require.NotNil(t, resp.Chat)
	require.Len(t, resp.Chat.Messages, 3)
	assert.Equal(t, i18n.Default().Chat.ErrorNotice, resp.Chat.Messages[2].Text)
	assert.Empty(t, resp.Chat.SessionID)
}

func TestDraftIsKept(t *testing.T) {
	s, _ := newTestServer(t)
	call(t, s, http.MethodPost, "/api/identify/guest", "v1", nil, nil)
	assert.Equal(t, http.StatusNoContent, call(t, s, http.MethodPut, "/api/chat/draft", "v1", map[string]string{"text": "meio escri"}, nil))

	var view chat.View
	call(t, s, http.MethodGet, "/api/chat", "v1", nil, &view)
	assert.Equal(t, "meio escri", view.Draft)
}

func TestEndChat(t *testing.T) {
	s, _ := newTestServer(t)
	call(t, s, http.MethodPost, "/api/identify", "v1", identifyRequest{Name: "Ana"}, nil)

	var prompt map[string]any
	require.Equal(t, http.StatusOK, call(t, s, http.MethodPost, "/api/chat/end", "v1", nil, &prompt))
	assert.Equal(t, false, prompt["ended"])
	assert.Equal(t, i18n.Default().Chat.EndPrompt, prompt["prompt"])
	assert.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/api/chat", "v1", nil, nil))

	var ended map[string]any
	call(t, s, http.MethodPost, "/api/chat/end", "v1", map[string]bool{"confirm": true}, &ended)
	assert.Equal(t, true, ended["ended"])
	assert.Equal(t, http.StatusConflict, call(t, s, http.MethodGet, "/api/chat", "v1", nil, nil))

	var sess sessionResponse
	call(t, s, http.MethodGet, "/api/session", "v1", nil, &sess)
	assert.Equal(t, stageIdentify, sess.Stage)
}

func TestVisitorsAreIsolated(t *testing.T) {
	s, _ := newTestServer(t)
	call(t, s, http.MethodPost, "/api/identify", "v1", identifyRequest{Name: "Ana"}, nil)

	var sess sessionResponse
	call(t, s, http.MethodGet, "/api/session", "v2", nil, &sess)
	assert.Equal(t, stageIdentify, sess.Stage)
}

func TestTheme(t *testing.T) {
	s, _ := newTestServer(t)

	var snap theme.Snapshot
	call(t, s, http.MethodGet, "/api/theme", "v1", nil, &snap)
	assert.Equal(t, theme.System, snap.Preference)
	assert.Equal(t, theme.Light, snap.Effective)

	call(t, s, http.MethodPost, "/api/theme/system", "v1", map[string]bool{"dark": true}, &snap)
	assert.Equal(t, theme.Dark, snap.Effective)

	require.Equal(t, http.StatusOK, call(t, s, http.MethodPut, "/api/theme", "v1", map[string]string{"theme": "light"}, &snap))
	assert.Equal(t, theme.Light, snap.Preference)
	assert.Equal(t, theme.Light, snap.Effective)

	assert.Equal(t, http.StatusBadRequest, call(t, s, http.MethodPut, "/api/theme", "v1", map[string]string{"theme": "sepia"}, nil))
	call(t, s, http.MethodGet, "/api/theme", "v1", nil, &snap)
	assert.Equal(t, theme.Light, snap.Preference)
}

func TestKnowledgeBaseAdmin(t *testing.T) {
	s, fb := newTestServer(t)
	cat := i18n.Default()

	var created map[string]string
	code := call(t, s, http.MethodPost, "/api/admin/kb", "op", kbForm("Como resetar a senha?", "Use o portal.", "senha, , reset", ""), &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, cat.Admin.Created, created["message"])
	assert.Equal(t, []string{"senha", "reset"}, fb.entry(1).Keywords)
	assert.Equal(t, "general", fb.entry(1).Category)

	call(t, s, http.MethodPost, "/api/admin/kb", "op", kbForm("Impressora offline", "Reinicie o spooler.", "impressora", "hardware"), nil)

	var list kbListResponse
	require.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/api/admin/kb?q=SENHA", "op", nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].ID)
	assert.ElementsMatch(t, []string{"general", "hardware"}, list.Categories)

	call(t, s, http.MethodGet, "/api/admin/kb?category=hardware", "op", nil, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Impressora offline", list.Items[0].Question)

	var updated map[string]string
	require.Equal(t, http.StatusOK, call(t, s, http.MethodPut, "/api/admin/kb/2", "op", kbForm("", "Reinicie o spooler de impressão.", "", ""), &updated))
	assert.Equal(t, cat.Admin.Updated, updated["message"])
	assert.Equal(t, "Impressora offline", fb.entry(2).Question)
	assert.Equal(t, "Reinicie o spooler de impressão.", fb.entry(2).Answer)
	assert.Equal(t, []string{"impressora"}, fb.entry(2).Keywords)

	var entry types.KnowledgeBaseEntry
	require.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/api/admin/kb/2", "op", nil, &entry))
	assert.Equal(t, "hardware", entry.Category)

	var errResp types.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, call(t, s, http.MethodDelete, "/api/admin/kb/2", "op", nil, &errResp))
	assert.Equal(t, cat.Admin.DeletePrompt, errResp.Error)
	_, ok := fb.lookupID(2)
	assert.True(t, ok)

	var deleted map[string]string
	require.Equal(t, http.StatusOK, call(t, s, http.MethodDelete, "/api/admin/kb/2?confirm=true", "op", nil, &deleted))
	assert.Equal(t, cat.Admin.Deleted, deleted["message"])
	_, ok = fb.lookupID(2)
	assert.False(t, ok)

	var cats []string
	call(t, s, http.MethodGet, "/api/admin/kb/categories", "op", nil, &cats)
	assert.Equal(t, []string{"general"}, cats)
}

func TestKnowledgeBaseErrors(t *testing.T) {
	s, _ := newTestServer(t)

	var errResp types.ErrorResponse
	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, "/api/admin/kb/99", "op", nil, &errResp))
	assert.Equal(t, "Item not found", errResp.Error)

	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodPut, "/api/admin/kb/99", "op", kbForm("q", "a", "", ""), nil))
	assert.Equal(t, http.StatusBadRequest, call(t, s, http.MethodGet, "/api/admin/kb/abc", "op", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodDelete, "/api/admin/kb/99?confirm=true", "op", nil, nil))
}

func kbForm(q, a, keywords, category string) map[string]string {
	return map[string]string{"question": q, "answer": a, "keywords": keywords, "category": category}
}
