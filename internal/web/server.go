// Package web serves the upload, review and download pages for cleaning unit
// files in a browser.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nconklindev/unitclean/internal/batch"
	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/config"
	"github.com/nconklindev/unitclean/internal/logging"
	"github.com/nconklindev/unitclean/internal/review"
	"github.com/nconklindev/unitclean/internal/types"
)

//go:embed templates
var templateFiles embed.FS

// Options configure a Server.
type Options struct {
	Server config.ServerConfig
	Clean  config.CleanConfig
	Logger *slog.Logger
}

// Server is the HTTP front end. Reviews wait on a Board until the operator
// answers the form or the review TTL passes.
type Server struct {
	cfg     config.ServerConfig
	clean   config.CleanConfig
	logger  *slog.Logger
	board   *review.Board
	gate    cleaner.Gate
	jobs    *jobStore
	workDir string
	pages   map[string]*template.Template
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates the server. When no work directory is configured a
// temporary one is created.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workDir := opts.Server.WorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "unitclean-")
		if err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		workDir = dir
	} else if err := os.MkdirAll(workDir, 0o750); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     opts.Server,
		clean:   opts.Clean,
		logger:  logger,
		board:   review.NewBoard(opts.Server.ReviewTTL),
		jobs:    newJobStore(),
		workDir: workDir,
		pages:   pages,
		router:  chi.NewRouter(),
	}
	s.board.Logger = logger
	s.board.OnExpire = s.expire

	s.gate = s.board
	if d, fixed := opts.Clean.FixedDecision(); fixed {
		s.gate = review.Fixed(d)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              opts.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/upload", s.handleUpload)

	s.router.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", s.handleJob)
		r.Get("/files/{name}", s.handleDownload)
		r.Get("/archive.zip", s.handleArchive)
	})

	s.router.Get("/review/{runID}", s.handleReviewForm)
	s.router.Post("/review/{runID}", s.handleReviewSubmit)
}

// Start sweeps expired reviews until ctx is done and serves HTTP until
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.ReviewTTL > 0 {
		go s.board.Janitor(ctx, sweepInterval(s.cfg.ReviewTTL))
	}

	s.logger.Info("starting server", "addr", s.server.Addr, "work_dir", s.workDir)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// WorkDir is where uploaded files are cleaned.
func (s *Server) WorkDir() string {
	return s.workDir
}

func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}

// runner builds a batch runner writing into dir.
func (s *Server) runner(dir string) *batch.Runner {
	return &batch.Runner{
		Pipeline:     &cleaner.Pipeline{Gate: s.gate, Logger: s.logger},
		Read:         s.clean.ReadOptions(),
		OutputDir:    dir,
		WriteRemoved: s.clean.WriteRemoved,
		Logger:       s.logger,
	}
}

// expire cancels a run whose review was swept off the board.
func (s *Server) expire(runID string) {
	j, run, ok := s.jobs.claim(runID)
	if !ok {
		return
	}
	if err := run.Decide(types.DecisionCancel); err != nil {
		s.logger.Error("cancel expired review", "run_id", runID, "error", err)
	}
	entry := s.runner(j.Dir).Resume(context.Background(), run)
	s.jobs.settle(j.ID, runID, entry)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		)
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// respondError logs err with the request id and sends message to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	logger := logging.FromContext(r.Context())
	if err != nil {
		logger.Warn("request error", "path", r.URL.Path, "status", status, "error", err)
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"base": filepath.Base,
		// spreadsheet row number: 1-based, after the header line
		"rowNumber": func(i int) int { return i + 2 },
	}

	pages := make(map[string]*template.Template)
	for _, page := range []string{"index.html", "job.html", "review.html"} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		pages[page] = t
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		logging.FromContext(r.Context()).Error("render template", "page", page, "error", err)
	}
}
