package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/tagbridge"
	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/aretw0/tagbridge/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
)

// Dispatcher is the part of the bridge the HTTP surface drives.
type Dispatcher interface {
	DispatchName(ctx context.Context, callbackID, name string, args []any, sink ports.ResponseSink)
	State() domain.LifecycleState
	Snapshot() *domain.Snapshot
	Commands() []domain.Command
}

// Server exposes a dispatcher over HTTP, server-sent events and a websocket bridge.
type Server struct {
	dispatcher Dispatcher
	streams    *StreamManager
	clients    *xsync.Map[string, *wsClient]
	upgrader   websocket.Upgrader
	metrics    http.Handler
	maxFrame   int64
	sanitizer  runner.Sanitizer
	anyOrigin  bool
	origins    map[string]struct{}
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager whose Hooks are wired into the dispatcher.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxFrameSize bounds request bodies and websocket messages.
func WithMaxFrameSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxFrame = n
		}
	}
}

// WithMaxInputSize bounds every string argument in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.sanitizer = runner.NewSanitizer(n)
	}
}

// WithAllowedOrigins lets browser pages from origins call the server. "*"
// allows any origin. Without it only same-origin requests and clients that
// send no Origin header are served.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			if o == "*" {
				s.anyOrigin = true
				continue
			}
			s.origins[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
}

// NewServer creates a Server for d.
func NewServer(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		clients:    xsync.NewMap[string, *wsClient](),
		maxFrame:   runner.DefaultMaxFrameSize,
		origins:    make(map[string]struct{}),
		logger:     logging.NewNop(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/commands", s.ListCommands)
		r.Post("/commands/{command}", s.PostCommand)
		r.Get("/session", s.GetSession)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/bridge", s.ServeBridge)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return s.enableCORS(r)
}

// originAllowed reports whether a request may be served. Requests without an
// Origin header come from non-browser clients and are always allowed.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.anyOrigin {
		return true
	}
	if _, ok := s.origins[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// enableCORS rejects foreign origins and advertises the allowed ones.
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !s.originAllowed(r) {
			s.logger.Warn("Rejected request from foreign origin", "origin", origin, "path", r.URL.Path)
			writeJSON(w, s.logger, http.StatusForbidden,
				domain.Failure(domain.InvalidArgument("origin %q is not allowed", origin)))
			return
		}
		if origin != "" {
			if s.anyOrigin {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(s.dispatcher.State()),
	})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":     "tagbridge-http",
		"version": strings.TrimSpace(tagbridge.Version),
	})
}

// ListCommands handles GET /v1/commands.
func (s *Server) ListCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.dispatcher.Commands())
}

// GetSession handles GET /v1/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap := s.dispatcher.Snapshot()
	if snap == nil {
		writeJSON(w, s.logger, http.StatusNotFound, domain.Failure(domain.ErrNoActiveSession))
		return
	}
	writeJSON(w, s.logger, http.StatusOK, snap)
}

type commandRequest struct {
	CallbackID string `json:"callbackId"`
	Args       []any  `json:"args"`
}

// PostCommand handles POST /v1/commands/{command}. The body is optional and
// carries the callback id and positional args. The call blocks until the
// dispatcher answers, including a pending container open.
func (s *Server) PostCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")

	req, err := s.decodeCommand(w, r)
	if err != nil {
		s.logger.Warn("Rejected command body", "command", name, "err", err)
		resp := domain.Failure(err)
		resp.CallbackID = req.CallbackID
		writeJSON(w, s.logger, statusFor(resp), resp)
		return
	}

	ch := make(chan domain.Response, 1)
	s.dispatcher.DispatchName(r.Context(), req.CallbackID, name, req.Args, ports.SinkFunc(func(id string, resp domain.Response) {
		resp.CallbackID = id
		ch <- resp
	}))

	select {
	case resp := <-ch:
		writeJSON(w, s.logger, statusFor(resp), resp)
	case <-r.Context().Done():
		s.logger.Info("Client left before the command completed", "command", name, "callback_id", req.CallbackID)
	}
}

func (s *Server) decodeCommand(w http.ResponseWriter, r *http.Request) (commandRequest, error) {
	var req commandRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxFrame))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, domain.InvalidArgument("request body exceeds %d bytes", tooLarge.Limit)
		}
		return req, domain.InvalidArgument("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, domain.InvalidArgument("malformed body: %v", err)
	}
	args, err := s.sanitizer.Args(req.Args)
	if err != nil {
		return req, domain.InvalidArgument("rejected argument: %v", err)
	}
	req.Args = args
	return req, nil
}

// statusFor maps a dispatcher response to an HTTP status code.
func statusFor(resp domain.Response) int {
	if resp.OK() {
		return http.StatusOK
	}
	switch resp.Kind {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindUnknownCommand:
		return http.StatusNotFound
	case domain.KindNoActiveSession, domain.KindCancelled:
		return http.StatusConflict
	case domain.KindTypeMismatch:
		return http.StatusUnprocessableEntity
	case domain.KindSessionOpenFailed:
		if resp.Reason == domain.ReasonTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
