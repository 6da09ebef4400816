// Package tracer provides a small tracing abstraction for the credential
// lifecycle. Services depend on the Tracer interface; the OpenTelemetry
// adapter and provider setup live beside it so nothing else imports otel.
package tracer

import (
	"context"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
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

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Span names.
const (
	SpanIssue  = "credential.issue"
	SpanRevoke = "credential.revoke"
	SpanVerify = "credential.verify"
	SpanAudit  = "credential.audit"
)

// Attribute keys.
const (
	AttrCode      = "credential.code"
	AttrStatus    = "credential.status"
	AttrRequestID = "request_id"
	AttrChanged   = "credential.changed"
)

// Event names.
const (
	EventAuditWritten = "audit.written"
	EventAuditFailed  = "audit.failed"
)
