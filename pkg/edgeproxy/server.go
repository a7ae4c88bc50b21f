package edgeproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"xhstoolbox/pkg/config"
	"xhstoolbox/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server runs the edge proxy in front of an optional static site
type Server struct {
	cfg    *config.ProxyConfig
	proxy  *Proxy
	router chi.Router
	logger logger.Logger
}

// NewServer builds the router: request id, real ip and panic recovery, then
// the proxy, then a health check and static files (or 404) for everything
// it does not match.
func NewServer(cfg *config.ProxyConfig, log logger.Logger) (*Server, error) {
	log = logger.OrGlobal(log)

	p, err := New(Config{
		BackendOrigin: cfg.BackendOrigin,
		PathPrefix:    cfg.PathPrefix,
	}, log)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(p.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.StaticDir != "" {
		info, err := os.Stat(cfg.StaticDir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir %s is not a directory", cfg.StaticDir)
		}
		r.NotFound(spaHandler(cfg.StaticDir))
	}

	return &Server{
		cfg:    cfg,
		proxy:  p,
		router: r,
		logger: log,
	}, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	logger.LogComponentStart(s.logger, "edgeproxy", map[string]interface{}{
		"listen":         ln.Addr().String(),
		"backend_origin": s.proxy.origin.String(),
		"path_prefix":    s.proxy.prefix,
		"static_dir":     s.cfg.StaticDir,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
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
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("HTTP server shutdown error")
		return err
	}
	logger.LogComponentStop(s.logger, "edgeproxy", "context cancelled")
	return nil
}

// spaHandler serves files from dir and falls back to index.html for
// unknown paths so client-side routes resolve.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(path); err != nil {
			if _, ierr := os.Stat(index); ierr == nil {
				http.ServeFile(w, r, index)
				return
			}
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	}
}
