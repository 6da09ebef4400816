package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vcregistry/internal/credential/models"
	"vcregistry/internal/kvstore"
	"vcregistry/internal/platform/kafka/producer"
	"vcregistry/pkg/platform/circuit"
)

// ErrCircuitOpen is returned by StreamSink while its breaker skips writes.
var ErrCircuitOpen = errors.New("audit stream circuit open")

// Sink persists one audit entry.
type Sink interface {
	Name() string
	Write(ctx context.Context, entry models.AuditEntry) error
}

// KVSink appends entries to the key-value store under the audit namespace.
// Keys are unique per entry, so nothing is ever overwritten.
type KVSink struct {
	kv kvstore.Store
}

func NewKVSink(kv kvstore.Store) *KVSink {
	return &KVSink{kv: kv}
}

func (s *KVSink) Name() string { return "kv" }

func (s *KVSink) Write(ctx context.Context, entry models.AuditEntry) error {
	value, err := models.EncodeAuditEntry(entry)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, models.AuditKey(entry), string(value)); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Producer publishes a message to the audit topic.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// StreamSink mirrors entries to a Kafka topic keyed by credential code, so
// all entries for one code stay ordered within a partition.
type StreamSink struct {
	producer  Producer
	topic     string
	breaker   *circuit.Breaker
	logger    *slog.Logger
	onBreaker func(open bool)
}

// StreamOption configures a StreamSink.
type StreamOption func(*StreamSink)

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) StreamOption {
	return func(s *StreamSink) {
		if b != nil {
			s.breaker = b
		}
	}
}

// WithStreamLogger sets the logger used for breaker transitions.
func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(s *StreamSink) {
		s.logger = logger
	}
}

// WithBreakerObserver is called with the breaker state after every transition.
func WithBreakerObserver(fn func(open bool)) StreamOption {
	return func(s *StreamSink) {
		s.onBreaker = fn
	}
}

func NewStreamSink(p Producer, topic string, opts ...StreamOption) *StreamSink {
	s := &StreamSink{
		producer: p,
		topic:    topic,
		breaker:  circuit.New("audit-stream"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StreamSink) Name() string { return "stream" }

func (s *StreamSink) Write(ctx context.Context, entry models.AuditEntry) error {
	if !s.breaker.Allow() {
		return ErrCircuitOpen
	}
	value, err := models.EncodeAuditEntry(entry)
	if err != nil {
		return err
	}
	err = s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(entry.Code),
		Value: value,
		Headers: map[string]string{
			"action":         string(entry.Action),
			"schema_version": fmt.Sprint(entry.Version),
		},
	})
	if err != nil {
		s.observe(ctx, s.breaker.RecordFailure())
		return fmt.Errorf("publish audit entry: %w", err)
	}
	s.observe(ctx, s.breaker.RecordSuccess())
	return nil
}

func (s *StreamSink) observe(ctx context.Context, change circuit.StateChange) {
	if !change.Opened && !change.Closed {
		return
	}
	if s.logger != nil {
		if change.Opened {
			s.logger.WarnContext(ctx, "audit stream circuit opened", "breaker", s.breaker.Name())
		} else {
			s.logger.InfoContext(ctx, "audit stream circuit closed", "breaker", s.breaker.Name())
		}
	}
	if s.onBreaker != nil {
		s.onBreaker(change.Opened)
	}
}
