package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"techsupport-web/internal/admin"
	"techsupport-web/internal/backend"
	"techsupport-web/internal/types"
)

type kbListResponse struct {
	Items      []types.KnowledgeBaseEntry `json:"items"`
	Categories []string                   `json:"categories"`
}

// GET /api/admin/kb?q=...&category=...
// Reloads the visitor's copy of the knowledge base and returns it filtered
func (s *Server) handleKBList(w http.ResponseWriter, r *http.Request) {
	v := s.visitor(w, r)
	if err := v.Admin.Load(r.Context()); err != nil {
		s.writeAlert(w, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, kbListResponse{
		Items:      v.Admin.Filter(q.Get("q"), q.Get("category")),
		Categories: v.Admin.Categories(),
	})
}

// GET /api/admin/kb/categories
func (s *Server) handleKBCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.api.ListCategories(r.Context())
	if err != nil {
		s.writeAlert(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// GET /api/admin/kb/{id}
func (s *Server) handleKBGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	e, err := s.visitor(w, r).Admin.Get(r.Context(), id)
	if err != nil {
		s.writeAlert(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// POST /api/admin/kb
func (s *Server) handleKBCreate(w http.ResponseWriter, r *http.Request) {
	var form admin.Form
	if err := readJSON(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg, err := s.visitor(w, r).Admin.Create(r.Context(), form)
	if err != nil {
		s.writeAlert(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": msg})
}

// PUT /api/admin/kb/{id}
// Blank fields keep the current values of the entry.
func (s *Server) handleKBUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	var form admin.Form
	if err := readJSON(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v := s.visitor(w, r)
	if !v.Admin.Loaded() {
		if err := v.Admin.Load(r.Context()); err != nil {
			s.writeAlert(w, err)
			return
		}
	}
	msg, err := v.Admin.Update(r.Context(), id, form)
	if err != nil {
		s.writeAlert(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// DELETE /api/admin/kb/{id}?confirm=true
func (s *Server) handleKBDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	v := s.visitor(w, r)
	msg, err := v.Admin.Delete(r.Context(), id, confirmed)
	if errors.Is(err, admin.ErrNotConfirmed) {
		s.writeError(w, http.StatusBadRequest, v.Admin.DeletePrompt())
		return
	}
	if err != nil {
		s.writeAlert(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) entryID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeAlert reports an admin failure with the message the operator should see.
func (s *Server) writeAlert(w http.ResponseWriter, err error) {
	if errors.Is(err, admin.ErrUnknownEntry) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	code := http.StatusBadGateway
	if f, ok := backend.AsFailure(err); ok && f.Status >= 400 && f.Status < 500 {
		code = f.Status
	}
	s.writeError(w, code, err.Error())
}
