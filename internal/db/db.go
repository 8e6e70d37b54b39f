package db

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/cenkalti/backoff/v4"
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// ConnectTimeout bounds how long NewPool keeps retrying the first ping.
const ConnectTimeout = 30 * time.Second

// NewPool connects to Postgres and verifies the connection, retrying the
// ping with exponential backoff while the database comes up.
func NewPool(ctx context.Context, url string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	ConfigureLogger(cfg, logger)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = ConnectTimeout
	ping := func() error { return pool.Ping(ctx) }
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", next).Msg("database not ready")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ConfigureLogger routes pgx query tracing into logger. pgx logs every
// query at info, which is demoted to debug here.
func ConfigureLogger(cfg *pgxpool.Config, logger zerolog.Logger) {
	l := zerologadapter.NewLogger(logger, zerologadapter.WithoutPGXModule(), zerologadapter.WithSubDictionary("pgx"),
		zerologadapter.WithContextFunc(func(ctx context.Context, z zerolog.Context) zerolog.Context {
			if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
				return ctxLogger.With()
			}
			return z
		}))
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{Logger: demoteInfo(l), LogLevel: tracelog.LogLevelInfo}
}

func demoteInfo(logger tracelog.Logger) tracelog.LoggerFunc {
	return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		if level == tracelog.LogLevelInfo {
			level = tracelog.LogLevelDebug
		}
		logger.Log(ctx, level, msg, data)
	}
}

// RegisterMetrics exports pool statistics to reg.
func RegisterMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, dbName string) error {
	collector := pgxpoolprometheus.NewCollector(pool, map[string]string{"db_name": dbName})
	if err := reg.Register(collector); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}
	return nil
}
