package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"transitadmin/internal/app"
	"transitadmin/internal/config"
	"transitadmin/internal/log"
	"transitadmin/internal/queue"
	"transitadmin/internal/server"
	"transitadmin/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level, "worker")
	if !cfg.RedisEnabled() {
		logger.Fatal().Msg("worker needs redis.addr for the task stream")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, "transit-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise")
	}
	defer a.Close()

	consumerName := cfg.Worker.Consumer
	if consumerName == "" {
		consumerName, _ = os.Hostname()
	}

	processor := tasks.NewProcessor(a.Verifications, cfg.Verification.RevalidationInterval, a.Metrics, logger)
	consumer := queue.NewConsumer(
		a.Redis,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		consumerName,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("stream", cfg.Worker.Stream).Str("consumer", consumerName).Msg("worker started")
		return consumer.Start(gctx)
	})
	if cfg.Worker.MetricsAddr != "" {
		metricsServer := server.NewMetricsServer(cfg.Worker.MetricsAddr, logger, a.Metrics)
		g.Go(metricsServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped unexpectedly")
		return
	}
	logger.Info().Msg("worker exited cleanly")
}
