package api

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odvcencio/pmrhub/internal/database"
	"github.com/odvcencio/pmrhub/internal/service"
	"github.com/odvcencio/pmrhub/internal/web"
)

type middlewareFunc func(http.Handler) http.Handler

// chainMiddleware wraps h so that the first middleware runs outermost.
func chainMiddleware(h http.Handler, middleware ...middlewareFunc) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

type ServerOptions struct {
	// MetricsRegisterer and MetricsGatherer default to the prometheus
	// default registry.
	MetricsRegisterer prometheus.Registerer
	MetricsGatherer   prometheus.Gatherer
}

type Server struct {
	db         database.DB
	workspaces *service.WorkspaceService
	pages      *web.Renderer
	metrics    *httpMetrics
	gatherer   prometheus.Gatherer
	mux        *http.ServeMux
	handler    http.Handler
}

func NewServer(db database.DB, workspaces *service.WorkspaceService, pages *web.Renderer, opts ServerOptions) *Server {
	metrics := getDefaultHTTPMetrics()
	if opts.MetricsRegisterer != nil {
		metrics = newHTTPMetrics(opts.MetricsRegisterer)
	}
	s := &Server{
		db:         db,
		workspaces: workspaces,
		pages:      pages,
		metrics:    metrics,
		gatherer:   opts.MetricsGatherer,
		mux:        http.NewServeMux(),
	}
	s.routes()
	s.handler = chainMiddleware(s.mux,
		requestTracingMiddleware,
		func(next http.Handler) http.Handler { return requestMetricsMiddleware(s.metrics, next) },
		requestLoggingMiddleware,
		gzhttp.GzipHandler,
	)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metricsHandler(s.gatherer))
	s.mux.Handle("GET /style/main.css", s.pages.StyleHandler())

	// JSON API
	s.mux.HandleFunc("GET /api/workspace/{$}", s.handleListWorkspaces)
	s.mux.HandleFunc("GET /api/workspace/{id}/{$}", s.handleWorkspaceTop)
	s.mux.HandleFunc("GET /api/workspace/{id}/file/{$}", s.handlePathInfo)
	s.mux.HandleFunc("GET /api/workspace/{id}/file/{commit}/{path...}", s.handlePathInfo)
	s.mux.HandleFunc("GET /api/workspace/{id}/object/{$}", s.handleObjectInfo)
	s.mux.HandleFunc("GET /api/workspace/{id}/object/{commit}/{path...}", s.handleObjectInfo)
	s.mux.HandleFunc("GET /api/workspace/{id}/raw/{commit}/{path...}", s.handleRaw)

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleHomePage)
	s.mux.HandleFunc("GET /workspace/{$}", s.handleListingPage)
	s.mux.HandleFunc("GET /workspace/{id}/{$}", s.handleTopPage)
	s.mux.HandleFunc("GET /workspace/{id}/file/{commit}/{path...}", s.handlePathPage)
	s.mux.HandleFunc("GET /workspace/{id}/raw/{commit}/{path...}", s.handleRaw)
}
