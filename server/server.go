// Package server exposes the chat endpoint over HTTP. A turn is streamed as
// newline delimited JSON events; failures detected before streaming starts
// are reported with a JSON error envelope.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/mode"
	"github.com/hupe1980/searchmesh/orchestrator"
)

// DefaultMaxBodyBytes caps the size of a chat request body.
const DefaultMaxBodyBytes = 1 << 20

// Runner starts turns.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (<-chan core.Event, error)
}

// ModeLister lists the available modes.
type ModeLister interface {
	List() []mode.Mode
}

// Options holds configuration overrides passed to New.
type Options struct {
	MaxBodyBytes int64
	Logger       logging.Logger
	// Now is the clock used for envelope timestamps.
	Now func() time.Time
}

// Server serves the chat API.
type Server struct {
	runner   Runner
	modes    ModeLister
	validate *validator.Validate
	opts     Options
}

// New constructs a Server.
func New(runner Runner, modes ModeLister, optFns ...func(o *Options)) *Server {
	opts := Options{
		MaxBodyBytes: DefaultMaxBodyBytes,
		Logger:       logging.NoOpLogger{},
		Now:          time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Server{
		runner:   runner,
		modes:    modes,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /modes", s.handleModes)
	return s.withRequestID(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("server.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.opts.Logger.Info("server.shutdown", "timeout", shutdownTimeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modesResponse struct {
	Modes []mode.Mode `json:"modes"`
}

func (s *Server) handleModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modesResponse{Modes: s.modes.List()})
}
