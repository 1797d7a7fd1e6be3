package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabworks/partquote/internal/bootstrap"
	"github.com/fabworks/partquote/internal/config"
	"github.com/fabworks/partquote/internal/observability/logging"
	"github.com/fabworks/partquote/internal/observability/metrics"
)

const analysisTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Observer: workerMetrics,
	})
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribePartUploaded(ctx, func(handlerCtx context.Context, partID string) error {
		analyzeCtx, cancel := context.WithTimeout(handlerCtx, analysisTimeout)
		defer cancel()

		workerMetrics.StartPart()
		start := time.Now()
		analyzeErr := app.AnalyzeUC.AnalyzeByID(analyzeCtx, partID)
		workerMetrics.FinishPart(time.Since(start), analyzeErr)

		if analyzeErr != nil {
			logger.Error("part analysis failed", "part_id", partID, "error", analyzeErr)
		} else {
			logger.Info("part analyzed", "part_id", partID, "duration_ms", time.Since(start).Milliseconds())
		}
		return analyzeErr
	})
	if err != nil {
		logger.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
