// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luoli0706/Ning-Prompt/internal/mcp"
	"github.com/luoli0706/Ning-Prompt/internal/metrics"
	"github.com/luoli0706/Ning-Prompt/internal/processor"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize bounds every request body (1MB).
	MaxRequestBodySize = 1 << 20

	// MaxPromptLength bounds the prompt text accepted on every route.
	MaxPromptLength = mcp.MaxPromptLength

	shutdownTimeout = 5 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Streamer runs a streamed transformation. *processor.Processor satisfies it.
type Streamer interface {
	Stream(ctx context.Context, params processor.Params) iter.Seq2[string, error]
}

// Config configures a Server.
type Config struct {
	Addr        string
	BearerToken string

	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit float64
	RateBurst int

	Version string
	Logger  *slog.Logger
}

// Server is the HTTP front end for the pipeline.
type Server struct {
	cfg      Config
	router   *http.ServeMux
	rpc      *mcp.Handler
	streamer Streamer
	logger   *slog.Logger
	server   *http.Server
}

// New builds a Server. rpc serves the one-shot and listing routes; streamer
// serves /v1/process/stream.
func New(cfg Config, rpc *mcp.Handler, streamer Streamer) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		router:   http.NewServeMux(),
		rpc:      rpc,
		streamer: streamer,
		logger:   cfg.Logger,
	}
	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /mcp", s.handleMCP)
	s.router.HandleFunc("POST /v1/process", s.handleProcess)
	s.router.HandleFunc("POST /v1/process/stream", s.handleProcessStream)
	s.router.HandleFunc("GET /v1/templates", s.handleTemplates)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
	}
	if s.cfg.RateLimit > 0 {
		chain = append(chain, RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)))
	}
	if s.cfg.BearerToken != "" {
		chain = append(chain, AuthMiddleware(s.cfg.BearerToken, s.logger, "/health", "/metrics"))
	}
	return Chain(chain...)(s.router)
}

// Start listens on the configured address and blocks until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No write timeout: streams are bounded by the upstream client.
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("server starting", "addr", s.cfg.Addr, "version", s.cfg.Version, "auth", s.cfg.BearerToken != "")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run starts the server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		return err
	}
	return <-errc
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleMCP serves the MCP envelope. Protocol errors travel in the body, so
// the status is 200 for anything that parsed as a request.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	req, errResp := mcp.Decode(body)
	if errResp != nil {
		s.writeJSON(w, http.StatusOK, errResp)
		return
	}
	s.writeJSON(w, http.StatusOK, s.rpc.Execute(r.Context(), req))
}

// handleProcess handles POST /v1/process. The body is a process_prompt
// params object.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.checkPromptLength(w, body) {
		return
	}
	resp := s.rpc.Execute(r.Context(), &mcp.Request{Method: mcp.MethodProcessPrompt, Params: body})
	if resp.Error != nil {
		s.writeError(w, statusFor(resp.Error.Code), resp.Error)
		return
	}
	s.writeJSON(w, http.StatusOK, resp.Result)
}

// streamEvent is one SSE payload of /v1/process/stream.
type streamEvent struct {
	Content string     `json:"content,omitempty"`
	Error   *mcp.Error `json:"error,omitempty"`
}

// handleProcessStream handles POST /v1/process/stream. Fragments are sent as
// `data: {"content":...}` events and the stream ends with `data: [DONE]`.
// Errors before the first byte get a JSON error response; errors after it
// arrive as a final `{"error":...}` event.
func (s *Server) handleProcessStream(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var p mcp.ProcessParams
	if err := json.Unmarshal(body, &p); err != nil {
		s.writeError(w, http.StatusBadRequest, &mcp.Error{Code: mcp.CodeInvalidParams, Message: "Invalid params: " + err.Error()})
		return
	}
	if len(p.Prompt) > MaxPromptLength {
		s.writeError(w, http.StatusRequestEntityTooLarge, &mcp.Error{Code: mcp.CodeInvalidParams, Message: fmt.Sprintf("prompt exceeds %d bytes", MaxPromptLength)})
		return
	}
	params, rpcErr := s.rpc.Prepare(p, nil)
	if rpcErr != nil {
		s.writeError(w, statusFor(rpcErr.Code), rpcErr)
		return
	}

	rc := http.NewResponseController(w)
	started := false
	start := func() {
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}

	for fragment, err := range s.streamer.Stream(r.Context(), params) {
		if err != nil {
			rpcErr := mcp.ErrorFor(err)
			if !started {
				s.writeError(w, statusFor(rpcErr.Code), rpcErr)
				return
			}
			s.writeEvent(w, streamEvent{Error: rpcErr})
			break
		}
		if !started {
			start()
		}
		s.writeEvent(w, streamEvent{Content: fragment})
		if err := rc.Flush(); err != nil {
			s.logger.Debug("stream flush failed", "error", err)
			return
		}
	}

	if !started {
		start()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	_ = rc.Flush()
}

func (s *Server) writeEvent(w io.Writer, ev streamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("stream event encode failed", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// handleTemplates handles GET /v1/templates. ?content=1 includes the
// template sources.
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	params, _ := json.Marshal(mcp.ListTemplatesParams{IncludeContent: r.URL.Query().Get("content") != ""})
	resp := s.rpc.Execute(r.Context(), &mcp.Request{Method: mcp.MethodListTemplates, Params: params})
	if resp.Error != nil {
		s.writeError(w, statusFor(resp.Error.Code), resp.Error)
		return
	}
	s.writeJSON(w, http.StatusOK, resp.Result)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.cfg.Version})
}

// ============================================================================
// HELPERS
// ============================================================================

// readBody reads a size-limited body, answering 413 or 400 itself on failure.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, &mcp.Error{
				Code:    mcp.CodeInvalidParams,
				Message: fmt.Sprintf("request body exceeds %d bytes", MaxRequestBodySize),
			})
			return nil, false
		}
		s.logger.Debug("request body unreadable", "error", err)
		s.writeError(w, http.StatusBadRequest, &mcp.Error{Code: mcp.CodeParseError, Message: "unreadable request body"})
		return nil, false
	}
	return body, true
}

func (s *Server) checkPromptLength(w http.ResponseWriter, body []byte) bool {
	var p struct {
		Prompt string `json:"prompt"`
	}
	if json.Unmarshal(body, &p) == nil && len(p.Prompt) > MaxPromptLength {
		s.writeError(w, http.StatusRequestEntityTooLarge, &mcp.Error{
			Code:    mcp.CodeInvalidParams,
			Message: fmt.Sprintf("prompt exceeds %d bytes", MaxPromptLength),
		})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response encode failed", "error", err)
	}
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error *mcp.Error `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, e *mcp.Error) {
	s.writeJSON(w, status, ErrorResponse{Error: e})
}

// statusFor maps MCP error codes onto HTTP statuses for the REST routes.
func statusFor(code int) int {
	switch code {
	case mcp.CodeParseError, mcp.CodeInvalidParams:
		return http.StatusBadRequest
	case mcp.CodeTemplateNotFound:
		return http.StatusNotFound
	case mcp.CodeMethodNotFound:
		return http.StatusNotImplemented
	case mcp.CodeGenerationFailed, mcp.CodeResponseParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// metricsPath labels requests by route pattern so unmatched paths do not
// explode the label set.
func metricsPath(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

func recordRequest(r *http.Request, status int) {
	metrics.RequestsTotal.WithLabelValues(r.Method, metricsPath(r), fmt.Sprint(status)).Inc()
}
