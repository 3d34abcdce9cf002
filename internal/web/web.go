// Package web serves the JSON API and the server-rendered week view.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"notedesk/internal/calsync"
	"notedesk/internal/chat"
	"notedesk/internal/config"
	appLog "notedesk/internal/log"
	"notedesk/internal/mention"
	"notedesk/internal/session"
	"notedesk/internal/store"
)

// DefaultUser owns all data when basic auth is disabled.
const DefaultUser = "local"

const maxJSONBody = 1 << 20

// Options wires the server to its collaborators.
type Options struct {
	Config    *config.Config
	Store     *store.Store
	Syncer    *calsync.Syncer
	Completer chat.Completer
}

// Server routes HTTP requests to the stores, the sync service and the chat
// pipeline.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	syncer    *calsync.Syncer
	completer chat.Completer
	sessions  *session.Registry
	loc       *time.Location
	now       func() time.Time
	router    *mux.Router
}

// NewServer builds the router. cfg must be normalized.
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:       cfg,
		store:     opts.Store,
		syncer:    opts.Syncer,
		completer: opts.Completer,
		sessions:  session.NewRegistry(opts.Completer),
		loc:       cfg.Location(),
		now:       time.Now,
		router:    mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Sessions exposes the per-user session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Handler returns the root handler with authentication applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		h = s.basicAuthMiddleware(h)
	}
	return s.logRequests(h)
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/session/chat", s.handleSessionHistory).Methods(http.MethodGet)
	api.HandleFunc("/session/chat", s.handleSessionSend).Methods(http.MethodPost)
	api.HandleFunc("/session/chat", s.handleSessionReset).Methods(http.MethodDelete)

	api.HandleFunc("/context/documents", s.handleListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/context/documents", s.handleAddDocument).Methods(http.MethodPost)
	api.HandleFunc("/context/documents/recent", s.handleRecentDocuments).Methods(http.MethodGet)
	api.HandleFunc("/context/documents/{id}", s.handleRemoveDocument).Methods(http.MethodDelete)
	api.HandleFunc("/context/current", s.handleGetCurrent).Methods(http.MethodGet)
	api.HandleFunc("/context/current", s.handleSetCurrent).Methods(http.MethodPut)

	api.HandleFunc("/mentions", s.handleMentions).Methods(http.MethodGet)

	api.HandleFunc("/pages", s.handleListPages).Methods(http.MethodGet)
	api.HandleFunc("/pages", s.handleCreatePage).Methods(http.MethodPost)
	api.HandleFunc("/pages/recent", s.handleRecentPages).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}", s.handleGetPage).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}", s.handleUpdatePage).Methods(http.MethodPatch)
	api.HandleFunc("/pages/{id}", s.handleDeletePage).Methods(http.MethodDelete)
	api.HandleFunc("/pages/{id}/visit", s.handleVisitPage).Methods(http.MethodPost)
	api.HandleFunc("/pages/{id}/blocks", s.handleListBlocks).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}/blocks", s.handleCreateBlock).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id}", s.handleUpdateBlock).Methods(http.MethodPatch)
	api.HandleFunc("/blocks/{id}", s.handleDeleteBlock).Methods(http.MethodDelete)

	api.HandleFunc("/calendars", s.handleListCalendars).Methods(http.MethodGet)
	api.HandleFunc("/calendars", s.handleAddCalendar).Methods(http.MethodPost)
	api.HandleFunc("/calendars/{id}/sync", s.handleSyncCalendar).Methods(http.MethodPost)
	api.HandleFunc("/calendars/{id}/import", s.handleImportCalendar).Methods(http.MethodPost)
	api.HandleFunc("/calendars/{id}", s.handleDeleteCalendar).Methods(http.MethodDelete)

	api.HandleFunc("/events/day", s.handleDayEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/week", s.handleWeekEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/upcoming", s.handleUpcomingEvents).Methods(http.MethodGet)

	r.HandleFunc("/calendar", s.handleCalendarPage).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials leave it disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="NoteDesk", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// userID is the authenticated username, or DefaultUser without auth.
func (s *Server) userID(r *http.Request) string {
	if s.basicAuthEnabled() {
		if u, _, ok := r.BasicAuth(); ok && u != "" {
			return u
		}
	}
	return DefaultUser
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).String(),
		)
	})
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// resolver builds the mention resolver from config.
func (s *Server) resolver() *mention.Resolver {
	res := mention.NewResolver(s.loc, s.cfg.CalendarAccess)
	if wd, ok := config.ParseWeekday(s.cfg.Mentions.NextWeekday); ok {
		res.NextWeekday = wd
	}
	if h, m, err := config.ParseClock(s.cfg.Mentions.NextTime); err == nil {
		res.NextHour, res.NextMinute = h, m
	}
	res.Now = s.now
	return res
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// writeStoreError maps storage errors to responses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	appLog.Error("storage error", err, "resource", what)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
