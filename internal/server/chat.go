package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"techsupport-web/internal/chat"
	"techsupport-web/internal/identity"
)

type identifyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Guest bool   `json:"guest"`
}

type sessionResponse struct {
	Stage   string            `json:"stage"`
	Profile *identity.Profile `json:"profile,omitempty"`
}

const (
	stageIdentify = "identify"
	stageChat     = "chat"
)

// GET /api/session
// Tells the shell whether to mount the identification form or the chat
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	v := s.visitor(w, r)
	p, ok := v.Chat.Profile()
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{Stage: stageIdentify})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Stage: stageChat, Profile: &p})
}

// POST /api/identify
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := identity.Submit(req.Name, req.Email, req.Phone, req.Guest)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.startChat(w, r, p)
}

// POST /api/identify/guest
func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	s.startChat(w, r, identity.ContinueAsGuest())
}

func (s *Server) startChat(w http.ResponseWriter, r *http.Request, p identity.Profile) {
	v := s.visitor(w, r)
	v.Chat.Start(p)
	view, err := v.Chat.View()
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GET /api/chat
func (s *Server) handleChatView(w http.ResponseWriter, r *http.Request) {
	v := s.visitor(w, r)
	view, err := v.Chat.View()
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PUT /api/chat/draft
func (s *Server) handleChatDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v := s.visitor(w, r)
	if !v.Chat.Active() {
		s.writeError(w, http.StatusConflict, chat.ErrNoSession.Error())
		return
	}
	v.Chat.SetDraft(body.Text)
	w.WriteHeader(http.StatusNoContent)
}

type messageResponse struct {
	Accepted bool       `json:"accepted"`
	Chat     *chat.View `json:"chat,omitempty"`
}

// POST /api/chat/messages
// Runs one turn and answers once the assistant replied (or failed).
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v := s.visitor(w, r)
	// A browser giving up on the response must not abort the turn.
	ctx := context.WithoutCancel(r.Context())
	accepted, err := v.Chat.Submit(ctx, body.Text)
	if errors.Is(err, chat.ErrNoSession) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	resp := messageResponse{Accepted: accepted}
	// the chat may have been ended while the reply was pending
	if view, err := v.Chat.View(); err == nil {
		resp.Chat = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/chat/end
// Without {"confirm": true} nothing happens and the confirmation prompt is returned.
func (s *Server) handleChatEnd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if err := readJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v := s.visitor(w, r)
	if !body.Confirm {
		writeJSON(w, http.StatusOK, map[string]any{"ended": false, "prompt": s.catalog.Chat.EndPrompt})
		return
	}
	ended := v.Chat.End(true)
	writeJSON(w, http.StatusOK, map[string]any{"ended": ended, "stage": stageIdentify})
}
