// Package server exposes the replay pipeline over a small HTTP API:
// batch ingest plus session listing and timeline reads.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"replaylog/internal/event"
	"replaylog/internal/session"
	"replaylog/internal/store"

	"github.com/google/uuid"
)

// Batch is the ingest wire format: a user's events, possibly spanning
// multiple sessions.
type Batch struct {
	UserID string            `json:"user_id"`
	Events []event.RawRecord `json:"events"`
}

// EventSink accepts batches of raw records for storage.
type EventSink interface {
	InsertEvents(ctx context.Context, userID string, records []event.RawRecord) error
}

type Server struct {
	sink      EventSink
	assembler *session.Assembler
	address   string
	log       *slog.Logger
	server    *http.Server
}

func NewServer(sink EventSink, assembler *session.Assembler, address string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sink:      sink,
		assembler: assembler,
		address:   address,
		log:       logger,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var batch Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if batch.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if len(batch.Events) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.sink.InsertEvents(r.Context(), batch.UserID, batch.Events); err != nil {
		s.writeStoreError(w, r, "store events", err)
		return
	}
	w.WriteHeader(http.StatusNoContent) // success, no body
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	rows, err := s.assembler.ListSessions(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, "list sessions", err)
		return
	}
	if rows == nil {
		rows = []session.SummaryRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	userID := query.Get("user")
	sessionID := query.Get("session")
	if userID == "" || sessionID == "" {
		http.Error(w, "user and session are required", http.StatusBadRequest)
		return
	}

	timeline, err := s.assembler.BuildTimeline(r.Context(), userID, sessionID)
	if err != nil {
		s.writeStoreError(w, r, "build timeline", err)
		return
	}
	writeJSON(w, timeline)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, store.ErrStoreUnavailable) {
		s.log.Error(op, "error", err, "request_id", requestID(r))
		http.Error(w, "event store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.log.Warn(op, "error", err, "request_id", requestID(r))
	http.Error(w, fmt.Sprintf("%s: %v", op, err), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type ctxKey int

const requestIDKey ctxKey = 0

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		s.log.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// Handler returns the routed handler, usable directly in tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/timeline", s.handleTimeline)
	return s.logRequests(mux)
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	errChannel := make(chan error, 1)
	go func() {
		s.log.Info("replayd listening", "address", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChannel <- err
		}
	}()

	select {
	case err := <-errChannel:
		return fmt.Errorf("server failed to start: %w", err)
	case <-shutdownChannel:
	}

	s.log.Info("shutting down server")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.log.Info("server exited")
	return nil
}
