// Package logger builds the JSON slog loggers used across the storefront and
// carries request identifiers through context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	fieldsKey ctxKey = iota
	loggerKey
)

// fields are the request identifiers attached to every log line written
// with a *Context method.
type fields struct {
	correlationID string
	sessionID     string
	userID        string
}

// New creates a JSON logger on stdout tagged with the service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Unknown levels fall back
// to info. Debug loggers also record the source location.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(contextHandler{Handler: h}).With(slog.String("service", serviceName))
}

// ParseLevel maps "debug", "info", "warn" or "error" (any case, with
// optional offsets such as "warn+2") to a slog level.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// contextHandler adds the request identifiers and the active trace to
// records logged through the *Context methods. Keys already bound with
// With or present on the record are not repeated.
type contextHandler struct {
	slog.Handler
	bound []string
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}
	extra := Attrs(ctx)
	if len(extra) == 0 {
		return h.Handler.Handle(ctx, r)
	}
	seen := make(map[string]struct{}, len(h.bound)+r.NumAttrs())
	for _, k := range h.bound {
		seen[k] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = struct{}{}
		return true
	})
	for _, a := range extra {
		if _, ok := seen[a.Key]; !ok {
			r.AddAttrs(a)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]string, len(h.bound), len(h.bound)+len(attrs))
	copy(bound, h.bound)
	for _, a := range attrs {
		bound = append(bound, a.Key)
	}
	return contextHandler{Handler: h.Handler.WithAttrs(attrs), bound: bound}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name), bound: h.bound}
}

// Attrs returns the identifiers carried by ctx: correlation, session and user
// ids plus trace and span ids when a valid span is present.
func Attrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	f := fieldsFrom(ctx)
	if f.correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", f.correlationID))
	}
	if f.sessionID != "" {
		attrs = append(attrs, slog.String("session_id", f.sessionID))
	}
	if f.userID != "" {
		attrs = append(attrs, slog.String("user_id", f.userID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

func fieldsFrom(ctx context.Context) fields {
	f, _ := ctx.Value(fieldsKey).(fields)
	return f
}

func withFields(ctx context.Context, update func(*fields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey, f)
}

// WithCorrelationID returns a copy of ctx carrying the correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *fields) { f.correlationID = id })
}

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *fields) { f.userID = id })
}

func UserIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).userID
}

// WithSessionID returns a copy of ctx carrying the storefront session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *fields) { f.sessionID = id })
}

func SessionIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).sessionID
}

// NewContext stores l in ctx for FromContext.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext binds the identifiers in ctx to l, for loggers that are used
// without the *Context methods.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return l.With(args...)
}
