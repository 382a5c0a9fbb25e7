package server

import (
	"net/http"

	"techsupport-web/internal/theme"
)

// GET /api/theme
func (s *Server) handleThemeGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.theme.Get())
}

// PUT /api/theme
func (s *Server) handleThemeSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Theme string `json:"theme"`
	}
	if err := readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := theme.ParsePreference(body.Theme)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.theme.Set(p)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not save theme")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /api/theme/system
// The browser reports a prefers-color-scheme change here.
func (s *Server) handleThemeSystem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dark bool `json:"dark"`
	}
	if err := readJSON(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.appearance.SetDark(body.Dark)
	writeJSON(w, http.StatusOK, s.theme.Get())
}
