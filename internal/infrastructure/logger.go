package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xalekter/charts-edit/internal/config"
)

// Records written through loggers from this package carry the trace id, the
// editing session id and the dataset revision found on their context.

type ctxKey int

const (
	traceIDKey ctxKey = iota
	sessionIDKey
	revisionKey
)

var process struct {
	mu     sync.Mutex
	logger *slog.Logger
	file   *os.File
}

// InitializeLogger builds the process logger from cfg and makes it the slog
// default. A later call replaces it and closes the previous log file.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	out, file, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}
	logger := slog.New(editorHandler{slog.NewJSONHandler(out, &slog.HandlerOptions{
		AddSource: cfg.Development,
		Level:     parseLogLevel(cfg.Level),
	})})

	process.mu.Lock()
	previous := process.file
	process.logger, process.file = logger, file
	process.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	slog.SetDefault(logger)
	return logger, nil
}

// GetLogger returns the process logger, or slog's default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.logger == nil {
		return slog.Default()
	}
	return process.logger
}

// NewLogger builds a JSON logger writing to w without touching process
// state. tracectl and tests use it.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(editorHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)})})
}

// CloseLogFile closes the file opened by InitializeLogger, if any.
func CloseLogFile() error {
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.file == nil {
		return nil
	}
	err := process.file.Close()
	process.file = nil
	return err
}

// logOutput resolves cfg.Output to a writer. The file, when one is opened,
// is returned so it can be closed on shutdown.
func logOutput(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	output := strings.ToLower(cfg.Output)
	if output == "" || output == "console" {
		return os.Stdout, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if output == "both" {
		return io.MultiWriter(os.Stdout, file), file, nil
	}
	return file, file, nil
}

type editorHandler struct {
	slog.Handler
}

func (h editorHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if id := GetSessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	if rev, ok := GetRevision(ctx); ok {
		r.AddAttrs(slog.Uint64("revision", rev))
	}
	return h.Handler.Handle(ctx, r)
}

func (h editorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return editorHandler{h.Handler.WithAttrs(attrs)}
}

func (h editorHandler) WithGroup(name string) slog.Handler {
	return editorHandler{h.Handler.WithGroup(name)}
}

// parseLogLevel accepts slog's level names plus "warning"; anything else is
// info.
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// WithSessionID adds an editing session id to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID retrieves the editing session id from context
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// WithRevision records the dataset revision a log line refers to.
func WithRevision(ctx context.Context, revision uint64) context.Context {
	return context.WithValue(ctx, revisionKey, revision)
}

// GetRevision returns the dataset revision carried by ctx.
func GetRevision(ctx context.Context) (uint64, bool) {
	rev, ok := ctx.Value(revisionKey).(uint64)
	return rev, ok
}
