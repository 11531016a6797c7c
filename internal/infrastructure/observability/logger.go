package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger sets the global zerolog logger. Development gets a console
// writer; every other env logs JSON with caller info. An unknown level
// falls back to info.
func InitLogger(serviceName, env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var base zerolog.Logger
	if env == "development" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		base = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Caller().
			Logger()
	}

	log.Logger = base.With().
		Str("service", serviceName).
		Str("env", env).
		Logger()

	if err != nil && level != "" {
		log.Warn().Str("level", level).Msg("Unknown LOG_LEVEL, using info")
	}
}

// LoggerFromContext returns the global logger tagged with the active span's
// trace and span ids, if any
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.Logger

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		logger = logger.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}

	return &logger
}
