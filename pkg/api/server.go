// Package api terminates HTTP: webhook ingestion, synchronous review
// triggers, and the read-only query surface over the Store, built on
// gin the way the teacher's own handlers.go builds its API — not the
// echo-based rewrite that lives alongside it but was never added to
// go.mod.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acme/codereviewd/pkg/metrics"
	"github.com/acme/codereviewd/pkg/queue"
	"github.com/acme/codereviewd/pkg/review"
	"github.com/acme/codereviewd/pkg/store"
)

// Server holds the capabilities every handler needs.
type Server struct {
	engine        *review.Engine
	queue         *queue.WorkerPool
	store         store.Store
	webhookSecret []byte
	logger        *slog.Logger
	metrics       *metrics.Collector
}

func NewServer(engine *review.Engine, wp *queue.WorkerPool, st store.Store, webhookSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	var secret []byte
	if webhookSecret != "" {
		secret = []byte(webhookSecret)
	}
	return &Server{
		engine:        engine,
		queue:         wp,
		store:         st,
		webhookSecret: secret,
		logger:        logger.With("component", "api"),
	}
}

// WithMetrics attaches a Collector served at GET /metrics. Optional.
func (s *Server) WithMetrics(c *metrics.Collector) *Server {
	s.metrics = c
	return s
}

// Router builds the gin engine and registers every route from the HTTP
// surface table.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestIDMiddleware)

	r.POST("/webhook/code-review", s.Webhook)
	r.POST("/manual-review", s.ManualReview)
	r.POST("/review-diff", s.ReviewDiff)

	r.GET("/reviews", s.ListReviews)
	r.GET("/reviews/latest", s.LatestReviews)
	r.GET("/reviews/:id", s.GetReview)
	r.GET("/reviews/project/:project_key", s.ReviewsByProject)
	r.GET("/reviews/author/:email", s.ReviewsByAuthor)
	r.GET("/reviews/commit/:commit_id", s.ReviewsByCommit)
	r.GET("/reviews/pr/:mr_id", s.ReviewsByMR)

	r.GET("/failures", s.ListFailures)
	r.GET("/failures/:id", s.GetFailure)

	r.GET("/health", s.Health)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler(s)))
	}

	return r
}

func metricsHandler(s *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.queue.ReportMetrics(s.metrics)
		s.metrics.Handler().ServeHTTP(w, r)
	})
}
