// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/treeshell/internal/commands"
	"github.com/jeranaias/treeshell/internal/session"
	"github.com/jeranaias/treeshell/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// MaxRequestBodySize caps request bodies (64KB).
	MaxRequestBodySize = 64 * 1024

	// MaxLineLength is the longest command line accepted.
	MaxLineLength = 4096

	// DefaultHistoryLimit is the number of transcript lines returned when
	// the client does not ask for a limit.
	DefaultHistoryLimit = 100

	// MaxHistoryLimit caps the limit query parameter.
	MaxHistoryLimit = 1000

	defaultShutdownTimeout = 5 * time.Second
	rateLimitCleanup       = time.Minute

	healthPath = "/health"
)

// Transcripts records executed lines. *storage.TranscriptStore implements it.
type Transcripts interface {
	Append(ctx context.Context, e storage.Entry) (storage.Entry, error)
	History(ctx context.Context, sessionID string, limit int) ([]storage.Entry, error)
}

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr        string
	AuthToken   string
	CORSOrigins []string

	// RateLimit is requests per second per client IP, 0 for no limit
	RateLimit float64
	RateBurst int

	ShutdownTimeout time.Duration

	// Version is reported by the health endpoint
	Version string
}

// Server is the HTTP API that hosts many shell sessions over one tree.
type Server struct {
	opts Options

	sessions    *session.Manager
	dispatcher  *commands.Dispatcher
	completer   *commands.Completer
	transcripts Transcripts
	logger      *zap.Logger

	limiter *RateLimiter
	handler http.Handler
	started time.Time
}

// New creates a Server. transcripts may be nil to disable recording, and a
// nil logger discards output.
func New(opts Options, sessions *session.Manager, dispatcher *commands.Dispatcher, transcripts Transcripts, logger *zap.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		opts:        opts,
		sessions:    sessions,
		dispatcher:  dispatcher,
		completer:   commands.NewCompleter(dispatcher.Registry()),
		transcripts: transcripts,
		logger:      logger,
		limiter:     NewRateLimiter(opts.RateLimit, opts.RateBurst),
		started:     time.Now(),
	}

	sessions.SetExpireCallback(func(id string) {
		logger.Info("session expired", zap.String("session", id))
	})

	s.handler = Chain(
		RecoveryMiddleware(logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(DefaultCORSConfig(opts.CORSOrigins...)),
		AuthMiddleware(opts.AuthToken, logger),
		RateLimitMiddleware(s.limiter, logger),
	)(s.routes())
	return s
}

// Handler returns the HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+healthPath, s.handleHealth)
	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/run", s.handleRun)
	mux.HandleFunc("POST /v1/sessions/{id}/complete", s.handleComplete)
	mux.HandleFunc("GET /v1/sessions/{id}/history", s.handleHistory)
	return mux
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run serves until ctx is cancelled, then shuts down gracefully. The session
// reaper and the rate limiter cleanup run alongside the listener. notify, if
// set, receives the bound address once the listener is active.
func (s *Server) Run(ctx context.Context, notify func(addr string)) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	addr := listener.Addr().String()
	s.logger.Info("server started", zap.String("addr", addr), zap.String("version", s.opts.Version))
	if notify != nil {
		notify(addr)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		s.sessions.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(rateLimitCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				s.limiter.Cleanup()
			}
		}
	})

	return group.Wait()
}

// ============================================================================
// REQUEST/RESPONSE TYPES
// ============================================================================

// LineRequest is the body of the run and complete endpoints.
type LineRequest struct {
	Line string `json:"line"`
}

// SessionResponse describes one session.
type SessionResponse struct {
	ID           string    `json:"id"`
	Cwd          string    `json:"cwd"`
	Prompt       string    `json:"prompt"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresIn    int       `json:"expires_in"`
}

// EntryResponse is one listed node.
type EntryResponse struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Target string `json:"target,omitempty"`
	Dir    bool   `json:"dir"`
}

// ResultResponse is the outcome of one sub-command.
type ResultResponse struct {
	Command  string          `json:"command"`
	Args     []string        `json:"args"`
	Lines    []string        `json:"lines"`
	Entries  []EntryResponse `json:"entries"`
	Navigate string          `json:"navigate,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// RunResponse is returned by the run endpoint.
type RunResponse struct {
	Results []ResultResponse `json:"results"`
	Cwd     string           `json:"cwd"`
	Prompt  string           `json:"prompt"`
}

// CompleteResponse is returned by the complete endpoint.
type CompleteResponse struct {
	Candidates []string `json:"candidates"`
	Suffix     string   `json:"suffix"`
}

// HistoryResponse is returned by the history endpoint.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Entries   []storage.Entry `json:"entries"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Sessions      int    `json:"sessions"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Transcripts   bool   `json:"transcripts"`
}

func newResultResponse(r commands.Result) ResultResponse {
	out := ResultResponse{
		Command:  r.Command,
		Args:     r.Args,
		Lines:    r.Lines(),
		Entries:  make([]EntryResponse, 0, len(r.Entries)),
		Navigate: r.Navigate,
	}
	if out.Args == nil {
		out.Args = []string{}
	}
	if out.Lines == nil {
		out.Lines = []string{}
	}
	for _, e := range r.Entries {
		out.Entries = append(out.Entries, EntryResponse{Name: e.Name, Path: e.Path, Target: e.Target, Dir: e.Dir})
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		Sessions:      s.sessions.Len(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Transcripts:   s.transcripts != nil,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("session created", zap.String("session", sess.ID()))

	status, err := s.sessions.GetStatus(sess.ID())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(status))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	status, err := s.sessions.GetStatus(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(status))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Delete(id) {
		writeError(w, http.StatusNotFound, session.ErrSessionNotFound.Error())
		return
	}
	s.logger.Info("session closed", zap.String("session", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, ok := decodeLine(w, r)
	if !ok {
		return
	}

	var resp RunResponse
	err := s.sessions.With(id, func(sess *session.Session) error {
		var (
			output []string
			failed bool
		)
		results := s.dispatcher.Run(sess, req.Line)
		resp.Results = make([]ResultResponse, 0, len(results))
		for _, res := range results {
			out := newResultResponse(res)
			resp.Results = append(resp.Results, out)
			output = append(output, out.Lines...)
			failed = failed || res.Failed()
		}
		resp.Cwd = sess.Tree().FullPath(sess.Cwd(), false)
		resp.Prompt = sess.Prompt()

		// recorded under the session lock so stored order is execution order
		s.record(r.Context(), storage.Entry{
			SessionID: id,
			Line:      req.Line,
			Output:    output,
			Cwd:       resp.Cwd,
			Failed:    failed,
		})
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) record(ctx context.Context, e storage.Entry) {
	if s.transcripts == nil {
		return
	}
	if _, err := s.transcripts.Append(ctx, e); err != nil {
		s.logger.Warn("failed to record transcript", zap.String("session", e.SessionID), zap.Error(err))
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLine(w, r)
	if !ok {
		return
	}

	var resp CompleteResponse
	err := s.sessions.With(r.PathValue("id"), func(sess *session.Session) error {
		resp.Candidates, resp.Suffix = s.completer.Complete(sess, req.Line)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if resp.Candidates == nil {
		resp.Candidates = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.transcripts == nil {
		writeError(w, http.StatusNotFound, "transcripts are disabled")
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	id := r.PathValue("id")
	entries, err := s.transcripts.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to read transcript", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, Entries: entries})
}

// ============================================================================
// HELPERS
// ============================================================================

func newSessionResponse(st session.Status) SessionResponse {
	return SessionResponse{
		ID:           st.SessionID,
		Cwd:          st.Cwd,
		Prompt:       st.Prompt,
		CreatedAt:    st.StartTime,
		LastActivity: st.LastActivity,
		ExpiresIn:    int(st.RemainingTime.Seconds()),
	}
}

// decodeLine reads a LineRequest, writing a 400 response on failure.
func decodeLine(w http.ResponseWriter, r *http.Request) (LineRequest, bool) {
	var req LineRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if len(req.Line) > MaxLineLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("line exceeds %d bytes", MaxLineLength))
		return req, false
	}
	return req, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Message: message, Code: status}})
}
