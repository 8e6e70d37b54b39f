package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLog struct {
	level tracelog.LogLevel
	msg   string
}

type recorder struct{ logs []recordedLog }

func (r *recorder) Log(_ context.Context, level tracelog.LogLevel, msg string, _ map[string]any) {
	r.logs = append(r.logs, recordedLog{level, msg})
}

func TestDemoteInfo(t *testing.T) {
	rec := &recorder{}
	log := demoteInfo(rec)

	log(context.Background(), tracelog.LogLevelInfo, "Query", nil)
	log(context.Background(), tracelog.LogLevelError, "Query", nil)

	assert.Equal(t, []recordedLog{
		{tracelog.LogLevelDebug, "Query"},
		{tracelog.LogLevelError, "Query"},
	}, rec.logs)
}

func TestConfigureLogger(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://postgres@localhost:5432/main")
	require.NoError(t, err)

	ConfigureLogger(cfg, zerolog.Nop())
	tracer, ok := cfg.ConnConfig.Tracer.(*tracelog.TraceLog)
	require.True(t, ok)
	assert.Equal(t, tracelog.LogLevelInfo, tracer.LogLevel)
}

func TestNewPoolInvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}

func TestNewPoolStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPool(ctx, "postgres://postgres@127.0.0.1:1/main", zerolog.Nop())
	assert.Error(t, err)
}
