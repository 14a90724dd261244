// Package tracer provides a small tracing abstraction over OpenTelemetry.
//
// Store calls, remote DWN exchanges and grant decisions open spans through the
// Tracer interface so packages never import OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording err when non-nil. Call exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span. The returned context carries it to child operations.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanRemoteProcess,
	//       tracer.String(tracer.AttrEndpoint, endpoint),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanProtocolReconcile = "protocol.reconcile"
	SpanGrantAuthorize    = "grant.authorize"
	SpanNodeProcess       = "dwn.node.process"
	SpanRemoteProcess     = "dwn.remote.process_message"
	SpanRemoteRegister    = "dwn.remote.register"
)

// Attribute keys.
const (
	AttrTenant      = "dwn.tenant"
	AttrTarget      = "dwn.target"
	AttrEndpoint    = "dwn.endpoint"
	AttrInterface   = "dwn.interface"
	AttrMethod      = "dwn.method"
	AttrStatusCode  = "dwn.status_code"
	AttrAttempt     = "dwn.attempt"
	AttrProtocol    = "dwn.protocol"
	AttrRequester   = "grant.requester"
	AttrOutcome     = "outcome"
	AttrBreakerOpen = "breaker.open"
)

// Event names.
const (
	EventRetry        = "retry"
	EventBreakerState = "breaker.state_change"
)
