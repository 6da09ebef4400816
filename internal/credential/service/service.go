package service

import (
	"context"
	"log/slog"
	"strings"

	"vcregistry/internal/credential/metrics"
	"vcregistry/internal/credential/models"
	"vcregistry/internal/platform/tracer"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
	"vcregistry/pkg/secrets"
)

// Store persists credential records. Find reports a missing code as
// CodeNotFound and an undecodable value as CodeCorruptRecord; Create
// reports an existing code as CodeConflict.
type Store interface {
	Find(ctx context.Context, code string) (*models.CredentialRecord, error)
	Create(ctx context.Context, record *models.CredentialRecord) error
	Save(ctx context.Context, record *models.CredentialRecord) error
}

// AuditWriter appends lifecycle entries.
type AuditWriter interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// Config holds the process-wide settings the lifecycle depends on.
type Config struct {
	IssueSecret string
	IssuerName  string
}

// Option configures the credential service.
type Option func(*Service)

// Service issues, revokes, and verifies credentials.
type Service struct {
	store      Store
	verifier   secrets.Verifier
	issuerName string
	auditor    AuditWriter
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
}

// New creates the credential service. A blank IssueSecret leaves the
// service unable to issue or revoke until restarted with one, unless
// WithSecretVerifier supplies another way to check secrets.
func New(store Store, cfg Config, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		issuerName: models.NormalizeText(cfg.IssuerName),
		tracer:     tracer.NewNoop(),
		logger:     slog.Default(),
	}
	if d := secrets.NewDigest(cfg.IssueSecret); d != nil {
		svc.verifier = d
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithAuditor configures the audit writer for lifecycle actions.
func WithAuditor(auditor AuditWriter) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithSecretVerifier replaces the plaintext IssueSecret check, for example
// with a bcrypt hash.
func WithSecretVerifier(v secrets.Verifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// CheckConfigured reports CodeMisconfigured when no issuing secret is set.
// Handlers call it before reading a request body.
func (s *Service) CheckConfigured() error {
	if s.verifier == nil {
		return dErrors.New(dErrors.CodeMisconfigured, "issuing secret is not configured")
	}
	return nil
}

func (s *Service) authorize(secret string) error {
	if err := s.CheckConfigured(); err != nil {
		return err
	}
	if strings.TrimSpace(secret) == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "secret is required")
	}
	return s.verifier.Verify(secret)
}

func (s *Service) emitAudit(ctx context.Context, span tracer.Span, action models.AuditAction, record *models.CredentialRecord) {
	if s.auditor == nil {
		return
	}
	entry := models.NewAuditEntry(action, record, requestcontext.Now(ctx))
	if err := s.auditor.Append(ctx, entry); err != nil {
		span.AddEvent(tracer.EventAuditFailed, tracer.String("action", string(action)))
		s.logger.ErrorContext(ctx, "failed to append audit entry",
			"error", err,
			"action", action,
			"code", record.Code,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	span.AddEvent(tracer.EventAuditWritten, tracer.String("action", string(action)))
}
