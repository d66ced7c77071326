// Package server exposes agents over HTTP.
//
// POST / (or /reply) takes an exchange record and answers with the
// continuation fragment:
//
//	{"knowledgebase": "kb", "chat_history": [...]}  ->  {"chat_history": [...]}
//
// A well-formed request always yields 200, even when the agent is unknown or
// fails; the failure is the error text of the trailing Return. Malformed
// requests and other methods yield 400 with a plain-text body.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/hupe1980/knowledgenet/agent"
	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
	"github.com/hupe1980/knowledgenet/metrics"
	"github.com/hupe1980/knowledgenet/session"
)

// SessionHeader names the header that keys the transcript of an exchange.
const SessionHeader = "X-Session-ID"

// DefaultMaxBodyBytes bounds request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 16 << 20

// Options configures the HTTP surface.
type Options struct {
	Logger logging.Logger
	// Metrics enables request instrumentation and GET /metrics.
	Metrics *metrics.Collector
	// Sessions records every exchange when set.
	Sessions session.Store
	// RateLimit is the per-client request rate. Zero disables limiting.
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
}

// Server answers exchange records with the agents of a resolver.
type Server struct {
	resolver core.Resolver
	logger   logging.Logger
	metrics  *metrics.Collector
	sessions session.Store
	maxBody  int64
	handler  http.Handler
}

// New creates the HTTP surface for the agents resolver can find, usually a
// registry.Registry holding the public agents.
func New(resolver core.Resolver, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		resolver: resolver,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		sessions: opts.Sessions,
		maxBody:  opts.MaxBodyBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.handleReply)
	mux.HandleFunc("/reply", s.handleReply)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	middlewares := []Middleware{
		RequestID(),
		Recovery(s.logger),
		RequestLogger(s.logger),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.metrics))
	}
	if opts.RateLimit > 0 {
		middlewares = append(middlewares, RateLimiter(opts.RateLimit, opts.RateBurst))
	}
	s.handler = Chain(mux, middlewares...)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusBadRequest)
		return
	}

	x, err := core.DecodeExchange(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	if s.sessions != nil && sessionID == "" {
		sessionID = uuid.NewString()
	}
	if sessionID != "" {
		w.Header().Set(SessionHeader, sessionID)
	}

	cont := s.Reply(r.Context(), x, sessionID)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(core.Exchange{ChatHistory: cont}); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("write response", "error", err)
	}
}

// Reply answers one decoded exchange. It is shared by the HTTP and websocket
// endpoints. A non-empty sessionID records the exchange when a session store
// is configured.
func (s *Server) Reply(ctx context.Context, x *core.Exchange, sessionID string) *core.ChatHistory {
	logger := logging.FromContext(ctx, s.logger)
	log, caller := callFrame(x.ChatHistory)
	cont := agent.ReplyTo(ctx, s.resolver, x.Knowledgebase, log, caller)

	if called, errText, failed := cont.Error(); failed {
		logger.Info("reply returned error", "knowledgebase", called, "error", errText)
	}

	if s.sessions != nil && sessionID != "" {
		transcript := log.Copy()
		transcript.Extend(cont)
		if err := s.sessions.Append(ctx, sessionID, transcript); err != nil {
			logger.Error("record session", "session", sessionID, "error", err)
		}
	}
	return cont
}

// callFrame strips the trailing call a remote proxy appended before sending
// and returns its caller, so the served agent brackets the call only once.
// Without one the end user is the caller.
func callFrame(log *core.ChatHistory) (*core.ChatHistory, string) {
	events := log.Events()
	if n := len(events); n > 0 {
		if call, ok := events[n-1].(core.CallEvent); ok {
			return core.NewChatHistory(events[:n-1]...), call.Caller
		}
	}
	return log, core.UserOriginator
}
