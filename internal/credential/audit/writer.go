// Package audit appends credential lifecycle entries. The primary sink is
// written synchronously; mirrors are best effort and never block a request.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vcregistry/internal/credential/models"
)

// FailureRecorder counts sink failures and dropped entries.
type FailureRecorder interface {
	IncrementAuditFailure(sink string)
	IncrementAuditDropped(reason string)
}

// Writer appends audit entries to a primary sink and fans them out to
// optional mirrors.
type Writer struct {
	primary       Sink
	mirrors       []Sink
	events        chan models.AuditEntry
	wg            sync.WaitGroup
	closeOnce     sync.Once
	async         bool
	mirrorTimeout time.Duration
	logger        *slog.Logger
	metrics       FailureRecorder
}

// Option configures the Writer.
type Option func(*Writer)

// WithMirror adds a best-effort sink.
func WithMirror(s Sink) Option {
	return func(w *Writer) {
		if s != nil {
			w.mirrors = append(w.mirrors, s)
		}
	}
}

// WithAsyncBuffer queues mirror writes and drains them in a background
// goroutine. When the queue is full the entry is dropped for the mirrors;
// the primary sink still has it.
func WithAsyncBuffer(size int) Option {
	return func(w *Writer) {
		if size > 0 {
			w.events = make(chan models.AuditEntry, size)
			w.async = true
		}
	}
}

// WithMirrorTimeout bounds each mirror write. Default is ten seconds.
func WithMirrorTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.mirrorTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

func WithMetrics(m FailureRecorder) Option {
	return func(w *Writer) {
		w.metrics = m
	}
}

// NewWriter builds a writer around primary.
func NewWriter(primary Sink, opts ...Option) *Writer {
	w := &Writer{
		primary:       primary,
		mirrorTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.async && len(w.mirrors) > 0 {
		w.wg.Add(1)
		go w.drain()
	}
	return w
}

// Append writes entry to the primary sink and hands it to the mirrors.
// Only a primary failure is returned.
func (w *Writer) Append(ctx context.Context, entry models.AuditEntry) error {
	if err := w.primary.Write(ctx, entry); err != nil {
		w.recordFailure(w.primary.Name())
		return err
	}
	if len(w.mirrors) == 0 {
		return nil
	}
	if !w.async {
		w.mirror(context.WithoutCancel(ctx), entry)
		return nil
	}
	select {
	case w.events <- entry:
	default:
		if w.metrics != nil {
			w.metrics.IncrementAuditDropped("buffer_full")
		}
		if w.logger != nil {
			w.logger.WarnContext(ctx, "audit mirror buffer full, entry dropped",
				"action", entry.Action,
				"code", entry.Code,
			)
		}
	}
	return nil
}

func (w *Writer) drain() {
	defer w.wg.Done()
	for entry := range w.events {
		w.mirror(context.Background(), entry)
	}
}

func (w *Writer) mirror(ctx context.Context, entry models.AuditEntry) {
	for _, sink := range w.mirrors {
		mctx, cancel := context.WithTimeout(ctx, w.mirrorTimeout)
		err := sink.Write(mctx, entry)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrCircuitOpen) {
			if w.metrics != nil {
				w.metrics.IncrementAuditDropped("circuit_open")
			}
			continue
		}
		w.recordFailure(sink.Name())
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "failed to mirror audit entry",
				"error", err,
				"sink", sink.Name(),
				"action", entry.Action,
				"code", entry.Code,
			)
		}
	}
}

func (w *Writer) recordFailure(sink string) {
	if w.metrics != nil {
		w.metrics.IncrementAuditFailure(sink)
	}
}

// Close stops the async mirror and waits for queued entries to drain.
// Append must not be called after Close.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		if w.async && len(w.mirrors) > 0 {
			close(w.events)
			w.wg.Wait()
		}
	})
}
