// Package api provides the HTTP surface of SGGuide: a server-rendered chat
// page, a JSON API over the same sessions, and the Twilio webhook.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server timeouts. The write timeout bounds the completion call.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	maxRequestBodySize = 64 << 10
)

// SessionCookie carries the session ID between requests.
const SessionCookie = "sgguide_session"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	WriteTimeout  time.Duration
	SecureCookies bool
	Webhook       http.Handler
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWriteTimeout bounds how long one request, including the completion call, may take.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Opts) { o.WriteTimeout = d }
}

// WithSecureCookies marks the session cookie Secure, for deployments behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(o *Opts) { o.SecureCookies = secure }
}

// WithTwilioWebhook mounts h at POST /twilio/webhook.
func WithTwilioWebhook(h http.Handler) Option {
	return func(o *Opts) { o.Webhook = h }
}

// Server serves the chat page and the session API.
type Server struct {
	sessions *flow.SessionManager
	driver   *flow.ChatDriver
	cfg      Opts
	page     *pageRenderer
}

// NewServer creates a server over sessions, answering chat messages with driver.
func NewServer(sessions *flow.SessionManager, driver *flow.ChatDriver, opts ...Option) (*Server, error) {
	cfg := Opts{
		Addr:         DefaultAddr,
		WriteTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	page, err := newPageRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &Server{sessions: sessions, driver: driver, cfg: cfg, page: page}, nil
}

// Handler returns the routed handler of s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(limitBody)

	r.Get("/healthz", s.healthHandler)

	r.Get("/", s.pageHandler)
	r.Post("/name", s.nameFormHandler)
	r.Post("/onboarding", s.onboardingFormHandler)
	r.Post("/chat", s.chatFormHandler)

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.getSessionHandler)
		r.Delete("/", s.endSessionHandler)
		r.Post("/name", s.submitNameHandler)
		r.Post("/answers", s.submitAnswerHandler)
		r.Post("/messages", s.captureMessageHandler)
		r.Post("/messages/pending", s.resolvePendingHandler)
	})

	if s.cfg.Webhook != nil {
		r.Method(http.MethodPost, "/twilio/webhook", s.cfg.Webhook)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.cfg.Addr, "variant", s.sessions.Variant().Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
