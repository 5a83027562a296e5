// Package logger builds the process-wide zerolog logger and carries
// request-scoped children through a context.Context.
//
// Call Init once at startup. Middleware derives a child per request with
// WithContext; code deeper in the stack recovers it with FromContext so
// every line of a request shares its request_id and user_id fields.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Anything else falls back to info.
	Level string
	// Pretty switches to the coloured console writer for local runs.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is attached to every entry as the "service" field.
	Service string
}

var (
	instance    zerolog.Logger
	once        sync.Once
	initialized bool
)

// Init builds the process logger. Only the first call has any effect.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		if opts.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		}

		lvl := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		fields := zerolog.New(out).Level(lvl).With().Timestamp()
		if opts.Service != "" {
			fields = fields.Str("service", opts.Service)
		}
		if lvl <= zerolog.DebugLevel {
			fields = fields.Caller()
		}
		instance = fields.Logger()
		initialized = true
	})
	return instance
}

// Get returns the process logger. It panics before Init.
func Get() zerolog.Logger {
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset forgets the process logger. Tests only.
func Reset() {
	once = sync.Once{}
	instance = zerolog.Logger{}
	initialized = false
}

type ctxKey struct{}

// WithContext stores l as the request-scoped logger of ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger of ctx, or fallback when
// none was stored.
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return fallback
}

// With adds one string field to the request-scoped logger of ctx.
func With(ctx context.Context, fallback zerolog.Logger, key, value string) context.Context {
	l := FromContext(ctx, fallback).With().Str(key, value).Logger()
	return WithContext(ctx, l)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
