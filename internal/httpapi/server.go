// ABOUTME: Read-only HTTP API over the project store, with health and Prometheus endpoints
// ABOUTME: Routes are served by chi; every request is counted and timed by route pattern
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sisyph/mcoder/internal/errs"
	"github.com/sisyph/mcoder/internal/metrics"
	"github.com/sisyph/mcoder/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Store is the read side of the project store
type Store interface {
	Ping(ctx context.Context) error
	Path() string
	ListProjects() ([]models.Project, error)
	GetProjectStatus(id int64) (*models.ProjectStatus, error)
	BuildProgress(projectID int64) (float64, error)
	History(projectID int64, limit int) ([]models.Message, error)
	SearchMessages(query string, projectID int64) ([]models.Message, error)
	ListFiles(projectID int64) ([]models.FileRecord, error)
	ListModules(projectID int64) ([]models.ModuleStatus, error)
	ListSystemModules() ([]models.SystemModuleStatus, error)
	SystemStatusHistory(moduleName string, limit int) ([]models.SystemStatusHistoryEntry, error)
	RecentSecurityEvents(limit int) ([]models.SecurityEvent, error)
}

// Server serves the HTTP API
type Server struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates an API server. m may be nil to disable /metrics and request accounting.
func NewServer(store Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{store: store, metrics: m, logger: logger}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", s.listProjects)
		r.Route("/projects/{id:[0-9]+}", func(r chi.Router) {
			r.Get("/", s.projectStatus)
			r.Get("/progress", s.buildProgress)
			r.Get("/messages", s.projectHistory)
			r.Get("/files", s.listFiles)
			r.Get("/modules", s.listModules)
		})
		r.Get("/search", s.search)
		r.Get("/system/modules", s.systemModules)
		r.Get("/system/history", s.systemHistory)
		r.Get("/security/events", s.securityEvents)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("http api shutting down")
		return s.server.Shutdown(shutdownCtx)
	}
}

// observe logs each request and feeds the request metrics, keyed by route pattern
// so path parameters do not explode label cardinality
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		s.logger.Debug("http request", "method", r.Method, "route", route, "status", status,
			"duration", elapsed, "request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.Is(err, errs.CodeNotFound):
		status = http.StatusNotFound
	case errs.Is(err, errs.CodePolicyViolation), errs.Is(err, errs.CodeSizeLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errs.Is(err, errs.CodeStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.logger.Error("http request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func projectID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// limitParam reads ?limit=, falling back to def and clamping to maxListLimit
func limitParam(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
