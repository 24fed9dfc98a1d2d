package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/vetclinic-api/internal/app"
	"github.com/jwalitptl/vetclinic-api/internal/config"
	"github.com/jwalitptl/vetclinic-api/internal/handler/health"
	prometheusHandler "github.com/jwalitptl/vetclinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/vetclinic-api/pkg/logger"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, "vetclinic-worker")

	if cfg.Database.Driver == "memory" {
		log.Fatal().Msg("the worker needs shared storage; use server.run_workers with the memory driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics("vetclinic", "worker", prometheus.DefaultRegisterer)

	a, err := app.New(ctx, cfg, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dependencies")
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	health.NewHandler(a.Checks).RegisterRoutes(engine)
	prometheusHandler.New(m, prometheus.DefaultGatherer).RegisterRoutes(engine)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HealthPort),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.RunWorkers(gctx) })

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
		return
	}
	log.Info().Msg("worker exited properly")
}
