package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MimeLyc/subtitle-trans/internal/browser"
	"github.com/MimeLyc/subtitle-trans/internal/jobs"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

const maxBodyBytes = 1 << 20

// Translator translates one piece of text
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// PoolStats exposes the state of the browser pool
type PoolStats interface {
	Stats() browser.Stats
}

type Server struct {
	queue      *jobs.Queue
	translator Translator
	pool       PoolStats
	language   string
	origins    []string
	gatherer   prometheus.Gatherer
	interval   time.Duration

	router *chi.Mux
	server *http.Server
	logger *log.Logger
}

type Option func(*Server)

// WithTranslator enables POST /api/translate
func WithTranslator(tr Translator) Option {
	return func(s *Server) {
		s.translator = tr
	}
}

// WithPoolStats adds the pool state to /healthz
func WithPoolStats(p PoolStats) Option {
	return func(s *Server) {
		s.pool = p
	}
}

// WithLanguage sets the language of jobs created without one
func WithLanguage(lang string) Option {
	return func(s *Server) {
		s.language = lang
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithGatherer serves g on /metrics instead of the default registry
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreamInterval sets how often the job stream sends a snapshot
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

func NewServer(queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		queue:    queue,
		language: "zh-CN",
		gatherer: prometheus.DefaultGatherer,
		interval: time.Second,
		logger:   log.GetLogger().With("component", "http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("Listening on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(corsOptions(s.origins)))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.With(maxBodySize(maxBodyBytes)).Post("/translate", s.handleTranslate)

		r.Get("/jobs", s.handleListJobs)
		r.With(maxBodySize(maxBodyBytes)).Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/stream", s.handleJobStream)
		r.Get("/jobs/{id}", s.handleGetJob)
	})

	s.router = r
}
