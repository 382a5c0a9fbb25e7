package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"techsupport-web/internal/admin"
	"techsupport-web/internal/backend"
	"techsupport-web/internal/chat"
	"techsupport-web/internal/config"
	"techsupport-web/internal/i18n"
	"techsupport-web/internal/store"
	"techsupport-web/internal/theme"
	"techsupport-web/internal/types"
)

type Server struct {
	router     *chi.Mux
	cfg        config.Config
	api        backend.API
	catalog    *i18n.Catalog
	visitors   *store.MemoryStore
	theme      *theme.Store
	appearance *theme.ManualAppearance
}

func NewServer(cfg config.Config) (*Server, error) {
	catalog, err := i18n.Load(cfg.LocaleFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load locale catalog: %w", err)
	}
	api := backend.New(cfg.APIBaseURL, backend.WithFallbacks(catalog.Failures))

	appearance := theme.NewManualAppearance(cfg.SystemDark)
	themeStore := theme.NewStore(theme.NewFileStorage(cfg.ThemeFile), appearance)
	themeStore.Subscribe(func(snap theme.Snapshot) {
		log.WithFields(log.Fields{"theme": snap.Preference, "effective": snap.Effective}).Info("theme changed")
	})

	visitors := store.NewMemoryStore(cfg.SessionTTL, func(id string) *store.Visitor {
		return &store.Visitor{
			Chat:  chat.NewController(api, catalog),
			Admin: admin.NewScreen(api, catalog),
		}
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", VisitorHeader},
		ExposedHeaders:   []string{VisitorHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:     r,
		cfg:        cfg,
		api:        api,
		catalog:    catalog,
		visitors:   visitors,
		theme:      themeStore,
		appearance: appearance,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	// Identification gate
	s.router.Get("/api/session", s.handleSession)
	s.router.Post("/api/identify", s.handleIdentify)
	s.router.Post("/api/identify/guest", s.handleGuest)
	// Chat
	s.router.Get("/api/chat", s.handleChatView)
	s.router.Put("/api/chat/draft", s.handleChatDraft)
	s.router.Post("/api/chat/messages", s.handleChatMessage)
	s.router.Post("/api/chat/end", s.handleChatEnd)
	// Theme
	s.router.Get("/api/theme", s.handleThemeGet)
	s.router.Put("/api/theme", s.handleThemeSet)
	s.router.Post("/api/theme/system", s.handleThemeSystem)
	// Knowledge-base admin
	s.router.Get("/api/admin/kb", s.handleKBList)
	s.router.Get("/api/admin/kb/categories", s.handleKBCategories)
	s.router.Get("/api/admin/kb/{id}", s.handleKBGet)
	s.router.Post("/api/admin/kb", s.handleKBCreate)
	s.router.Put("/api/admin/kb/{id}", s.handleKBUpdate)
	s.router.Delete("/api/admin/kb/{id}", s.handleKBDelete)

	if s.cfg.MetricsOn {
		s.router.Handle("/metrics", promhttp.Handler())
	}
}

func (s *Server) Router() http.Handler { return s.router }

// RunJanitor evicts idle visitors until ctx is done.
func (s *Server) RunJanitor(ctx context.Context) {
	s.visitors.Run(ctx, time.Minute)
}

func (s *Server) Close() {
	s.theme.Close()
}

func (s *Server) visitor(w http.ResponseWriter, r *http.Request) *store.Visitor {
	return s.visitors.GetOrCreate(getOrCreateVisitorID(w, r))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "backend": nil}
	h, err := s.api.Health(r.Context())
	if err != nil {
		resp["backendError"] = err.Error()
	} else {
		resp["backend"] = h
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}
