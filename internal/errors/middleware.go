package errors

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xalekter/charts-edit/internal/infrastructure"
	api "github.com/xalekter/charts-edit/pkg/contracts/api/v1"
)

type outcomeKey struct{}

// outcome collects the failure of one request so it lands on the request's
// single log line.
type outcome struct {
	code string
	err  error
}

func (o *outcome) fail(code string, err error) {
	o.code, o.err = code, err
}

func outcomeFrom(ctx context.Context) *outcome {
	o, _ := ctx.Value(outcomeKey{}).(*outcome)
	return o
}

// ErrorMiddleware recovers panics and writes one log line per API request
// with its session, the dataset revision it produced and any error code.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "api")),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &outcome{}
		r = r.WithContext(context.WithValue(r.Context(), outcomeKey{}, rec))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				m.handler.HandlePanic(ww, r, p)
			}
			m.log(ww, r, rec, time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) log(ww middleware.WrapResponseWriter, r *http.Request, rec *outcome, elapsed time.Duration) {
	ctx := r.Context()
	route := r.URL.Path
	if rctx := chi.RouteContext(ctx); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			route = pattern
		}
		if id := rctx.URLParam("sessionID"); id != "" {
			ctx = infrastructure.WithSessionID(ctx, id)
		}
	}
	if rev, err := strconv.ParseUint(ww.Header().Get(api.RevisionHeader), 10, 64); err == nil {
		ctx = infrastructure.WithRevision(ctx, rev)
	}

	status := ww.Status()
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("route", route),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("request_id", middleware.GetReqID(ctx)),
	}
	if rec.err != nil {
		attrs = append(attrs,
			slog.String("error_code", rec.code),
			slog.String("error", rec.err.Error()))
	}
	m.logger.LogAttrs(ctx, level, "api request", attrs...)
}

// RecoveryMiddleware provides panic recovery with proper error responses
func RecoveryMiddleware(handler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					handler.HandlePanic(w, r, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
