// codereviewd is the review-pipeline server: it terminates webhooks and
// synchronous review requests, drives Jobs through the Engine, and
// serves the read-only query surface over the Store.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/acme/codereviewd/pkg/api"
	"github.com/acme/codereviewd/pkg/config"
	"github.com/acme/codereviewd/pkg/llmclient"
	"github.com/acme/codereviewd/pkg/logging"
	"github.com/acme/codereviewd/pkg/metrics"
	"github.com/acme/codereviewd/pkg/notifier"
	"github.com/acme/codereviewd/pkg/queue"
	"github.com/acme/codereviewd/pkg/review"
	"github.com/acme/codereviewd/pkg/scm"
	"github.com/acme/codereviewd/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	if !cfg.SCM.SSLVerify {
		logger.Warn("scm.ssl_verify is false, TLS certificate verification is disabled for the SCM client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scmClient, err := scm.New(cfg.SCM)
	if err != nil {
		logger.Error("failed to construct SCM client", "error", err)
		os.Exit(1)
	}

	llmProvider, err := llmclient.NewProvider(cfg.LLM)
	if err != nil {
		logger.Error("failed to construct LLM provider", "error", err)
		os.Exit(1)
	}

	notifySvc := notifier.New(cfg.Notifier, logger)

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	collector := metrics.New()
	engine := review.New(scmClient, llmProvider, notifySvc, st, cfg.LLM, logger).WithMetrics(collector)

	wp := queue.New(cfg.Queue, engine, logger)
	wp.Start(ctx)

	if cfg.Log.Format != "text" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(engine, wp, st, cfg.Webhook.Secret, logger).WithMetrics(collector)

	httpServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ShutdownGraceTime)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := wp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("worker pool did not drain within grace period", "error", err)
	}

	logger.Info("shutdown complete")
}
