// Package server serves the built site for local preview along with health
// and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
)

const shutdownTimeout = 5 * time.Second

// Server is the preview HTTP server.
type Server struct {
	addr        string
	siteDir     string
	status      *BuildStatus
	metricsPath string
	metrics     http.Handler
	logger      *slog.Logger
	adapter     *derrors.HTTPErrorAdapter
	router      chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server for siteDir. status feeds /healthz and may be shared
// with the rebuild loop.
func New(addr, siteDir string, status *BuildStatus, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		siteDir: siteDir,
		status:  status,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.status == nil {
		s.status = &BuildStatus{}
	}
	s.adapter = derrors.NewHTTPErrorAdapter(s.logger)
	s.router = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(recoverer(s.logger, s.adapter))
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metrics)
	}
	r.Get("/*", s.handleSite)
	r.Head("/*", s.handleSite)
	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	BuildID  string `json:"build_id,omitempty"`
	Pages    int    `json:"pages"`
	Rendered int    `json:"rendered"`
	Failed   int    `json:"failed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, _, err := s.status.Snapshot()
	if err != nil {
		if _, ok := derrors.AsClassified(err); !ok {
			err = derrors.WrapError(err, derrors.CategoryRuntime, "last build failed").Build()
		}
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}

	resp := healthResponse{Status: "ok"}
	if report == nil {
		resp.Status = "starting"
	} else {
		resp.BuildID = report.BuildID
		resp.Pages = report.Pages
		resp.Rendered = report.Rendered
		resp.Failed = report.Failed
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleSite serves files from the site directory. Markdown is served as
// text, and a directory without index.html falls back to its index.md.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + chi.URLParam(r, "*"))
	target := filepath.Join(s.siteDir, filepath.FromSlash(clean))

	if st, err := os.Stat(target); err == nil && st.IsDir() {
		if !fileExists(filepath.Join(target, "index.html")) && fileExists(filepath.Join(target, "index.md")) {
			target = filepath.Join(target, "index.md")
		}
	}

	if strings.EqualFold(filepath.Ext(target), ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if !fileExists(target) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, target)
		return
	}

	http.FileServer(http.Dir(s.siteDir)).ServeHTTP(w, r)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// Run listens on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to listen").
			WithContext("addr", s.addr).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Preview server listening", logfields.Addr(ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return derrors.WrapError(err, derrors.CategoryNetwork, "preview server failed").Build()
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "preview server shutdown failed").Build()
	}
	return nil
}
