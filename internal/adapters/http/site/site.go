// Package site hosts the signup page over HTTP. Every request gets its own
// page: the document is built, loaded from the activities API, optionally
// submitted, then rendered back as HTML.
package site

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/signupdesk/internal/app"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

const (
	defaultCloseTimeout = 2 * time.Second
	maxFormBytes        = 16 << 10
)

// Error constants
var (
	ErrNewPage = errors.New("page creation failed")
	ErrRender  = errors.New("page render failed")
)

// PageFactory opens a fresh page.
type PageFactory func(ctx context.Context) (*app.Page, error)

// Server routes requests to pages.
type Server struct {
	newPage      PageFactory
	closeTimeout time.Duration
	logger       logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCloseTimeout bounds how long a finished page may take to drain.
func WithCloseTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.closeTimeout = d
		}
	}
}

// New creates a Server that opens pages with newPage.
func New(newPage PageFactory, opts ...Option) *Server {
	s := &Server{
		newPage:      newPage,
		closeTimeout: defaultCloseTimeout,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler for the site.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(s.accessLog)
	r.Use(metricsMiddleware)

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleSignup)
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(FS())))
	return r
}
