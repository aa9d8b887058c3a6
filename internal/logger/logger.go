// internal/logger/logger.go - Structured logging setup
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level, encoding and destination
type Config struct {
	Level     string
	Console   bool
	Output    string // stdout, stderr or a file path
	Component string
}

type ctxKey string

const (
	ctxReqIDKey ctxKey = "request_id"
	ctxTileKey  ctxKey = "tile"
	ctxCacheKey ctxKey = "cache"
)

// WithRequestID tags ctx with a request id, generating one when reqID is empty
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return context.WithValue(ctx, ctxReqIDKey, reqID)
}

// WithTile tags ctx with the z/x/y of the tile being handled
func WithTile(ctx context.Context, tile string) context.Context {
	if tile == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxTileKey, tile)
}

// WithCache tags ctx with the cache outcome (hit or miss)
func WithCache(ctx context.Context, result string) context.Context {
	if result == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxCacheKey, result)
}

// NewID returns a random 16 character hex id
func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Open resolves the configured output to a writer. The returned closer is a no-op for
// the standard streams.
func Open(output string) (io.Writer, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}
	return f, f.Close, nil
}

// ParseLevel maps a level name to a zerolog level; unknown names give info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Build creates the root logger writing to out
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return ctx.Logger()
}

// FromContext returns a child logger with the context fields applied
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	var base zerolog.Logger
	if parent == nil {
		base = zerolog.New(io.Discard)
	} else {
		base = *parent
	}
	w := base.With()
	for _, key := range []ctxKey{ctxReqIDKey, ctxTileKey, ctxCacheKey} {
		if s, ok := ctx.Value(key).(string); ok && s != "" {
			w = w.Str(string(key), s)
		}
	}
	l := w.Logger()
	return &l
}
