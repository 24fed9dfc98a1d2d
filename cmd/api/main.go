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
	"golang.org/x/time/rate"

	"github.com/jwalitptl/vetclinic-api/internal/app"
	"github.com/jwalitptl/vetclinic-api/internal/config"
	discountHandler "github.com/jwalitptl/vetclinic-api/internal/handler/discount"
	"github.com/jwalitptl/vetclinic-api/internal/handler/health"
	prometheusHandler "github.com/jwalitptl/vetclinic-api/internal/handler/prometheus"
	shiftHandler "github.com/jwalitptl/vetclinic-api/internal/handler/shift"
	transferHandler "github.com/jwalitptl/vetclinic-api/internal/handler/transfer"
	"github.com/jwalitptl/vetclinic-api/internal/middleware"
	"github.com/jwalitptl/vetclinic-api/internal/router"
	"github.com/jwalitptl/vetclinic-api/pkg/auth"
	"github.com/jwalitptl/vetclinic-api/pkg/logger"
	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, "vetclinic-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics("vetclinic", "api", prometheus.DefaultRegisterer)

	a, err := app.New(ctx, cfg, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dependencies")
	}
	defer a.Close()

	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwt),
		shiftHandler.NewHandler(a.Services.Shifts),
		transferHandler.NewHandler(a.Services.Transfers),
		discountHandler.NewHandler(a.Services.Discounts),
		health.NewHandler(a.Checks),
		prometheusHandler.New(m, prometheus.DefaultGatherer),
		router.RouterConfig{
			RateLimit:    rate.Limit(cfg.Server.RateLimit),
			RateBurst:    cfg.Server.RateBurst,
			AllowOrigins: cfg.Server.AllowOrigins,
			Timeout:      cfg.ServerTimeout(),
			MaxBodySize:  cfg.Server.MaxBodyBytes,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Server.RunWorkers {
		g.Go(func() error { return a.RunWorkers(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server exited properly")
}
