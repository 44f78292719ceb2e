package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"qiandao/internal/history"
	"qiandao/internal/progress"
	"qiandao/internal/runner"
)

// Runner starts and reports on sign-in runs.
type Runner interface {
	Submit(src runner.Source) (string, error)
	Status() runner.Status
}

// History lists past runs, newest first.
type History interface {
	List(n int) ([]history.Entry, error)
}

// Feed streams progress events.
type Feed interface {
	Subscribe(buffer int) (<-chan progress.Event, func())
}

// Deps are the components the server exposes.
type Deps struct {
	Runner   Runner
	History  History
	Feed     Feed
	Schedule func() *ScheduleStatus // optional
}

// HTTPServer represents the HTTP API server
type HTTPServer struct {
	mux     *http.ServeMux
	deps    Deps
	tokens  []string
	version string
}

// NewHTTPServer creates a new HTTP server instance. With no tokens the API
// is open, which only makes sense on a loopback address.
func NewHTTPServer(deps Deps, tokens []string, version string) *HTTPServer {
	s := &HTTPServer{
		mux:     http.NewServeMux(),
		deps:    deps,
		tokens:  tokens,
		version: version,
	}

	// Register routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes with middleware
func (s *HTTPServer) registerRoutes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/health", loggingMiddleware(s.handleHealth))

	// Authenticated endpoints
	s.mux.HandleFunc("/api/status", loggingMiddleware(originMiddleware(s.authMiddleware(s.handleStatus))))
	s.mux.HandleFunc("/api/run", loggingMiddleware(originMiddleware(s.authMiddleware(jsonContentTypeMiddleware(s.handleRun)))))
	s.mux.HandleFunc("/api/history", loggingMiddleware(originMiddleware(s.authMiddleware(s.handleHistory))))
	s.mux.HandleFunc("/ws/events", loggingMiddleware(originMiddleware(s.authMiddleware(s.handleEvents))))
}

// Handler exposes the routes, for embedding and tests.
func (s *HTTPServer) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. With advertise set the server is announced over mDNS.
func (s *HTTPServer) ListenAndServe(ctx context.Context, addr string, advertise bool) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[HTTP] Starting server on %s", addr)
	if len(s.tokens) == 0 {
		log.Printf("[HTTP] No tokens configured; API is unauthenticated")
	} else {
		log.Printf("[HTTP] Registered %d valid tokens", len(s.tokens))
	}
	if advertise {
		if port := parsePort(addr); port > 0 {
			defer startMDNS(port, s.version)()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Printf("[HTTP] Server stopped")
		return nil
	}
}
