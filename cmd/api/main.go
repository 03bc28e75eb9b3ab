package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rahuliitk/interiorai-sub000/internal/adapter/repo"
	"github.com/rahuliitk/interiorai-sub000/internal/db"
	"github.com/rahuliitk/interiorai-sub000/internal/dispatch"
	"github.com/rahuliitk/interiorai-sub000/internal/http/handlers"
	httpapi "github.com/rahuliitk/interiorai-sub000/internal/http/httpapi"
	"github.com/rahuliitk/interiorai-sub000/internal/infra"
	"github.com/rahuliitk/interiorai-sub000/internal/jobs"
	"github.com/rahuliitk/interiorai-sub000/internal/metrics"
	"github.com/rahuliitk/interiorai-sub000/internal/procurement"
	"github.com/rahuliitk/interiorai-sub000/internal/sweep"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	metrics.MustRegister()

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	table, err := dispatch.LoadTable(cfg.WorkersConfigPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load workers config")
	}
	dispatcher := dispatch.NewDispatcher(table, cfg.DispatchTimeout, logger)

	jobRepo := repo.NewJobRepository(dbpool)
	orderRepo := repo.NewOrderRepository(dbpool)
	jobService := jobs.NewService(jobRepo, dispatcher, logger)
	synchronizer := procurement.NewSynchronizer(jobRepo, orderRepo, logger)

	app := handlers.NewApp(jobService, synchronizer, logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	if cfg.SweepEnabled {
		sweeper := sweep.NewSweeper(jobService, jobRepo, cfg.SweepPendingMax, logger)
		if err := sweeper.Start(cfg.SweepSchedule); err != nil {
			logger.Fatal().Err(err).Msg("failed to start pending sweep")
		}
		defer sweeper.Stop()
	}

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
