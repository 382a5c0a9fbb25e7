package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// CookieName is the name of the visitor cookie
	CookieName = "techsupport_visitor"
	// CookieMaxAge is how long the browser keeps the visitor id
	CookieMaxAge = 24 * time.Hour
	// VisitorHeader lets non-browser clients pass the visitor id explicitly
	VisitorHeader = "X-Visitor-Id"
)

// SetVisitorCookie sets an HTTP-only visitor cookie
func SetVisitorCookie(w http.ResponseWriter, r *http.Request, visitorID string) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    visitorID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	}
	http.SetCookie(w, cookie)
}

// getVisitorID reads the visitor id from the cookie, falling back to the header
func getVisitorID(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get(VisitorHeader)
}

// getOrCreateVisitorID returns the caller's visitor id, minting one on first contact
func getOrCreateVisitorID(w http.ResponseWriter, r *http.Request) string {
	id := getVisitorID(r)
	if id == "" {
		id = uuid.NewString()
		log.WithFields(log.Fields{"visitor": id, "path": r.URL.Path}).Debug("new visitor")
		SetVisitorCookie(w, r, id)
	}
	w.Header().Set(VisitorHeader, id)
	return id
}
