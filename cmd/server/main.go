package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atlekbai/filter_engine/internal/config"
	"github.com/atlekbai/filter_engine/internal/db"
	"github.com/atlekbai/filter_engine/internal/logging"
	"github.com/atlekbai/filter_engine/internal/middleware"
	"github.com/atlekbai/filter_engine/internal/schema"
	"github.com/atlekbai/filter_engine/internal/server"
	"github.com/atlekbai/filter_engine/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Startup errors are logged at info level until the configured logger exists.
	bootLogger, _ := logging.New(os.Stderr, "info", "")
	logging.SetGlobalLogger(bootLogger)

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create logger")
	}
	logging.SetGlobalLogger(logger)

	cache := schema.NewCache()
	filterService := service.NewFilterService(cache, cfg.Dialect)

	if cfg.SchemaFile != "" {
		s, err := schema.LoadTemplateFile(cfg.SchemaFile)
		if err != nil {
			logging.Fatal().Err(err).Str("file", cfg.SchemaFile).Msg("failed to load schema file")
		}
		cache.Swap(s)
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := db.RegisterMetrics(prometheus.DefaultRegisterer, pool, cfg.SchemaName); err != nil {
			logging.Fatal().Err(err).Msg("failed to register pool metrics")
		}

		if err := cache.Load(ctx, pool, cfg.SchemaName); err != nil {
			logging.Fatal().Err(err).Msg("failed to load schema cache")
		}
		filterService.WithCatalogSource(pool, cfg.SchemaName)
	}
	logging.Info().Int("models", cache.ModelCount()).Str("dialect", string(cfg.Dialect)).Msg("schema cache loaded")

	validator, err := protovalidate.New()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create validator")
	}

	requestTypes, err := filterService.RequestTypes()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to describe requests")
	}

	interceptors := []connect.Interceptor{
		server.LoggingInterceptor(logger),
		server.MetricsInterceptor(),
		server.ValidationInterceptor(validator, requestTypes),
	}

	services := []server.ConnectService{
		filterService,
	}

	mux := server.NewMux(services, interceptors...)
	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.Chain(
		mux,
		middleware.Recovery(logger),
		middleware.Logging(logger),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logging.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info().Str("addr", cfg.Addr()).Msg("listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("server error")
	}
}
