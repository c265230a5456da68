// Package server is the development HTTP server. It serves the generated
// document with the live-reload client injected, the rest of the output
// directory as static files, and the reload event stream.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/conneroisu/shtml/internal/config"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
	"github.com/conneroisu/shtml/internal/logging"
	"github.com/conneroisu/shtml/internal/monitoring"
	"github.com/conneroisu/shtml/internal/reload"
	"github.com/conneroisu/shtml/internal/state"
)

const (
	// DefaultKeepAlive is how long an idle event stream waits before
	// writing a comment frame.
	DefaultKeepAlive = 30 * time.Second
	// DefaultWriteTimeout bounds each frame written to a stream.
	DefaultWriteTimeout = 5 * time.Second

	requestTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Options configures a Server. Config, Store and Hub are required.
type Options struct {
	Config *config.Config
	Store  *state.Store
	Hub    *reload.Hub
	Health *monitoring.HealthMonitor
	// Fs defaults to the OS filesystem.
	Fs     afero.Fs
	Logger logging.Logger

	KeepAlive    time.Duration
	WriteTimeout time.Duration
}

// Server serves the project output with live reload.
type Server struct {
	cfg    *config.Config
	store  *state.Store
	hub    *reload.Hub
	health *monitoring.HealthMonitor
	fs     afero.Fs
	logger logging.Logger

	keepAlive    time.Duration
	writeTimeout time.Duration

	router chi.Router
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	s := &Server{
		cfg:          opts.Config,
		store:        opts.Store,
		hub:          opts.Hub,
		health:       opts.Health,
		fs:           opts.Fs,
		logger:       opts.Logger,
		keepAlive:    opts.KeepAlive,
		writeTimeout: opts.WriteTimeout,
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	s.logger = s.logger.WithComponent("server")
	if s.keepAlive <= 0 {
		s.keepAlive = DefaultKeepAlive
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = DefaultWriteTimeout
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Use(closeConnection)
	r.Use(s.instrument)

	r.Get("/", s.handleArtifact)
	r.Get("/events", s.handleEvents)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/build-status", s.handleBuildStatus)
	r.Get("/live-reload.js", s.handleScript(liveReloadScript))
	r.Get("/status-bar.js", s.handleScript(statusBarScript))
	r.Handle("/metrics", promhttp.Handler())
	if s.health != nil {
		r.Handle("/healthz", s.health)
	}
	r.NotFound(s.handleFallback)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. A failure here is fatal.
func (s *Server) Listen() (net.Listener, error) {
	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, shtmlerrors.NewBindError(addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: requestTimeout,
		ReadTimeout:       requestTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.SetKeepAlivesEnabled(false)

	s.logger.Info(ctx, "Serving", "addr", ln.Addr().String(), "output", s.cfg.OutputPath())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
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

	err := srv.Shutdown(shutdownCtx)
	<-errCh
	if err != nil {
		s.logger.Warn(shutdownCtx, err, "Shutdown did not complete cleanly")
		return err
	}
	s.logger.Info(shutdownCtx, "Server stopped")
	return nil
}

// ListenAndServe binds and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func closeConnection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Connection") == "" {
			w.Header().Set("Connection", "close")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "fallback"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		monitoring.RecordRequest(route, status)

		s.logger.Debug(r.Context(), "Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeBody writes a complete response with an explicit Content-Length.
func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeBody(w, http.StatusOK, "text/plain; charset=utf-8", []byte(s.store.State().Tag()))
}

func (s *Server) handleScript(script []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeBody(w, http.StatusOK, "application/javascript; charset=utf-8", script)
	}
}
