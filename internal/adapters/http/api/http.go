// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/okian/perfboard/internal/adapters/archive"
	"github.com/okian/perfboard/internal/adapters/repository"
	service "github.com/okian/perfboard/internal/app"
	"github.com/okian/perfboard/internal/domain/model"
	"github.com/okian/perfboard/internal/domain/types"
	"github.com/okian/perfboard/internal/validation"
	"github.com/okian/perfboard/pkg/logger"
)

const (
	defaultMaxUploadMB   = 10
	defaultMaxBatchFiles = 20
	multipartMemory      = 32 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Upload(ctx context.Context, req service.UploadRequest) (*types.UploadResult, error)
	UploadBatch(ctx context.Context, files []service.UploadRequest, uploadedBy string) (*types.BatchResult, error)

	Summary(ctx context.Context, referenceDate string, f types.Filter) (*types.DashboardSummary, error)
	Departments(ctx context.Context, referenceDate string) ([]string, error)

	ListData(ctx context.Context, q repository.PerformanceQuery) (*service.Listing[model.PerformanceData], error)
	GetData(ctx context.Context, id uint) (*model.PerformanceData, error)
	ListStudents(ctx context.Context, q repository.StudentQuery) (*service.Listing[model.StudentRoster], error)
	GetStudent(ctx context.Context, id uint) (*model.StudentRoster, error)
	ListLogs(ctx context.Context, q repository.LogQuery) (*service.Listing[model.UploadLog], error)
	GetLog(ctx context.Context, id uint) (*model.UploadLog, error)
	UploadFile(ctx context.Context, id uint) (*archive.Entry, []byte, error)

	GetStats(ctx context.Context) (*service.Stats, error)
}

// Server wires HTTP routes for the reporting API.
type Server struct {
	deps     Dependencies
	log      logger.Logger
	uploads  *RateLimiter
	maxBytes int64

	uploadRPS   float64
	uploadBurst int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used by handlers and middleware.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithUploadRateLimit throttles upload endpoints to rps requests per second
// with the given burst. rps <= 0 disables throttling.
func WithUploadRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.uploadRPS, s.uploadBurst = rps, burst
	}
}

// WithUploadLimits bounds request bodies on upload endpoints to what a
// full batch of maximum-size files needs.
func WithUploadLimits(maxUploadMB, maxBatchFiles int) Option {
	return func(s *Server) {
		if maxUploadMB > 0 && maxBatchFiles > 0 {
			s.maxBytes = int64(maxUploadMB*maxBatchFiles+1) << 20
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		log:      logger.NewNop(),
		maxBytes: int64(defaultMaxUploadMB*defaultMaxBatchFiles+1) << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.uploadRPS > 0 {
		s.uploads = NewRateLimiter(s.uploadRPS, s.uploadBurst, s.log)
	}
	return s
}

// NewRouter returns a chi router carrying the common middleware stack.
func NewRouter(l logger.Logger) *chi.Mux {
	if l == nil {
		l = logger.NewNop()
	}
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(StructuredLogger(l))
	r.Use(Recoverer(l))
	r.Use(Metrics)
	r.Use(middleware.StripSlashes)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", metricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusNotFound, service.MsgNotFound)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		})

		r.Group(func(r chi.Router) {
			if s.uploads != nil {
				r.Use(s.uploads.Handler)
			}
			r.Use(middleware.RequestSize(s.maxBytes))
			r.Post("/upload", s.handleUpload)
			r.Post("/upload/batch", s.handleUploadBatch)
		})

		r.Get("/summary", s.handleSummary)
		r.Get("/summary/departments", s.handleDepartments)

		r.Get("/data", s.handleListData)
		r.Get("/data/{id}", s.handleGetData)
		r.Get("/students", s.handleListStudents)
		r.Get("/students/{id}", s.handleGetStudent)
		r.Get("/logs", s.handleListLogs)
		r.Get("/logs/{id}", s.handleGetLog)
		r.Get("/logs/{id}/file", s.handleGetLogFile)
	})
}

var validate = validation.New() //nolint:gochecknoglobals // validator caches struct metadata
