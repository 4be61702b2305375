package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records logged with a request
// context carry that request's id, user and trace.
var Logger = NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

// NewLogger builds a JSON logger for production and a text logger otherwise.
func NewLogger(env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	switch strings.ToLower(env) {
	case "production", "prod", "staging":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(requestHandler{h})
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type logFieldsKey struct{}

type logFields struct {
	requestID string
	userID    string
	traceID   string
}

func fieldsFrom(ctx context.Context) logFields {
	f, _ := ctx.Value(logFieldsKey{}).(logFields)
	return f
}

func withFields(ctx context.Context, update func(*logFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, logFieldsKey{}, f)
}

// WithUserID tags ctx so log records carry the acting user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withFields(ctx, func(f *logFields) { f.userID = userID })
}

func withTraceID(ctx context.Context, traceID string) context.Context {
	return withFields(ctx, func(f *logFields) { f.traceID = traceID })
}

// UserIDFromContext returns the user set by WithUserID, if any.
func UserIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).userID
}

type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	f := fieldsFrom(ctx)
	if f.requestID != "" {
		r.AddAttrs(slog.String("request_id", f.requestID))
	}
	if f.userID != "" {
		r.AddAttrs(slog.String("user_id", f.userID))
	}
	if f.traceID != "" {
		r.AddAttrs(slog.String("trace_id", f.traceID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

// ContextMiddleware copies the request id assigned by the requestid middleware
// into the user context.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(withFields(c.UserContext(), func(f *logFields) { f.requestID = rid }))
		}
		return c.Next()
	}
}

// StructuredLogger writes one access record per request. Server errors log at
// error level, client errors at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Int("bytes", len(c.Response().Body())),
			slog.Duration("latency", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, "http request", attrs...)
		return err
	}
}
