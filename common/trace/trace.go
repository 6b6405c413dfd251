// Package trace tags each inbound chat event with an ID that follows it
// through dispatch, the completion call, and delivery, so log lines for one
// event can be grepped together.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// traceKey is the unexported context key used to store the trace ID.
type traceKey struct{}

// GenerateID returns a fresh trace ID of the form "t_<32 hex chars>".
func GenerateID() string {
	id := uuid.New()
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2+32)
	buf[0], buf[1] = 't', '_'
	for i, b := range id {
		buf[2+i*2] = hextable[b>>4]
		buf[3+i*2] = hextable[b&0x0f]
	}
	return string(buf)
}

// WithTraceID returns a child context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}

// Ensure returns ctx unchanged when it already carries a trace ID, otherwise
// a child context with a new one.
func Ensure(ctx context.Context) context.Context {
	if FromContext(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateID())
}
