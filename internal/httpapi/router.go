// Package httpapi serves the pidvault HTTP surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pidvault/internal/analysis"
	"pidvault/internal/docs"
	"pidvault/internal/metrics"
)

// Options configures a Handler. Docs and Metrics are required.
type Options struct {
	Docs     *docs.DocService
	Analysis *analysis.Client
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   docs.Logger
	Clock    docs.Clock

	// MaxUploadBytes caps a POST /upload body; 0 means unlimited.
	MaxUploadBytes int64
	// Location is used to render dates in document projections.
	Location *time.Location
}

// Handler implements the HTTP routes on top of a DocService.
type Handler struct {
	docs      *docs.DocService
	analysis  *analysis.Client
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    docs.Logger
	clock     docs.Clock
	maxUpload int64
	loc       *time.Location
}

// New creates a Handler, filling unset optional fields with defaults.
func New(opts Options) *Handler {
	h := &Handler{
		docs:      opts.Docs,
		analysis:  opts.Analysis,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		logger:    opts.Logger,
		clock:     opts.Clock,
		maxUpload: opts.MaxUploadBytes,
		loc:       opts.Location,
	}
	if h.analysis == nil {
		h.analysis = analysis.NewClient("", 0, nil)
	}
	if h.gatherer == nil {
		h.gatherer = prometheus.DefaultGatherer
	}
	if h.logger == nil {
		h.logger = docs.NewNopLogger()
	}
	if h.clock == nil {
		h.clock = docs.RealClock{}
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	return h
}

// Routes returns the root router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Post("/upload", h.handleUpload)
	r.Get("/files", h.handleListFiles)
	r.Delete("/files/{id}", h.handleDeleteFile)
	r.Get("/files/{id}/issues", h.handleAnalyze)
	r.Get("/uploads/{id}", h.handleContent)
	r.Get("/projects/{projectID}/documents", h.handleProjectDocuments)
	r.Post("/issues/export", h.handleExportIssues)
	r.Get("/annotation/categories", h.handleAnnotationCategories)
	r.Post("/annotation/validate", h.handleValidateLabel)

	return r
}
