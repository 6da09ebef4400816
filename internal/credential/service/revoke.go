package service

import (
	"context"

	"vcregistry/internal/credential/models"
	"vcregistry/internal/platform/tracer"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
)

// Revocation outcomes used as metric labels.
const (
	revokeOutcomeRevoked        = "revoked"
	revokeOutcomeAlreadyRevoked = "already_revoked"
	revokeOutcomeNotFound       = "not_found"
)

// Revoke stamps today's UTC date on a credential. Revoking an unknown code
// is not an error. Revoking twice keeps the first date and writes nothing.
func (s *Service) Revoke(ctx context.Context, req models.RevokeRequest) (result *models.RevokeResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke, tracer.String(tracer.AttrRequestID, requestcontext.RequestID(ctx)))
	defer func() { span.End(err) }()

	if err := s.authorize(req.Secret); err != nil {
		return nil, err
	}

	code := models.NormalizeCode(req.Code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "code is required")
	}
	span.SetAttributes(tracer.String(tracer.AttrCode, code))

	record, err := s.store.Find(ctx, code)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.countRevoke(revokeOutcomeNotFound)
			span.SetAttributes(tracer.String(tracer.AttrStatus, models.StatusNotFound.String()))
			return &models.RevokeResult{Status: models.StatusNotFound, Code: code}, nil
		}
		s.logger.ErrorContext(ctx, "failed to load credential for revocation",
			"error", err,
			"code", code,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	changed := record.Revoke(requestcontext.Now(ctx))
	span.SetAttributes(tracer.Bool(tracer.AttrChanged, changed))
	if changed {
		if err := s.store.Save(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist revocation",
				"error", err,
				"code", code,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, err
		}
		s.emitAudit(ctx, span, models.AuditActionRevoke, record)
		s.countRevoke(revokeOutcomeRevoked)
		s.logger.InfoContext(ctx, "credential revoked",
			"code", code,
			"revoked_at", *record.RevokedAt,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		s.countRevoke(revokeOutcomeAlreadyRevoked)
	}

	view := models.ToPublicView(record)
	return &models.RevokeResult{
		Status:    models.StatusRevoked,
		Code:      code,
		Record:    &view,
		RevokedAt: record.RevokedAt,
		Changed:   changed,
	}, nil
}

func (s *Service) countRevoke(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementRevoked(outcome)
	}
}
