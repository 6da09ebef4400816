package service

import (
	"context"

	"vcregistry/internal/credential/models"
	"vcregistry/internal/platform/tracer"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
)

// Verify reports the current status of a code. It needs no secret and
// never writes. Expiry is judged against the request clock.
func (s *Service) Verify(ctx context.Context, code string) (result *models.VerifyResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify, tracer.String(tracer.AttrRequestID, requestcontext.RequestID(ctx)))
	defer func() { span.End(err) }()

	code = models.NormalizeCode(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "code is required")
	}
	span.SetAttributes(tracer.String(tracer.AttrCode, code))

	record, err := s.store.Find(ctx, code)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.countVerification(ctx, models.StatusNotFound)
			span.SetAttributes(tracer.String(tracer.AttrStatus, models.StatusNotFound.String()))
			return &models.VerifyResult{Status: models.StatusNotFound, Code: code}, nil
		}
		s.logger.ErrorContext(ctx, "failed to load credential for verification",
			"error", err,
			"code", code,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	status := models.DeriveStatus(record, requestcontext.Now(ctx))
	s.countVerification(ctx, status)
	span.SetAttributes(tracer.String(tracer.AttrStatus, status.String()))

	view := models.ToPublicView(record)
	return &models.VerifyResult{
		Status:    status,
		Code:      code,
		Record:    &view,
		RevokedAt: record.RevokedAt,
	}, nil
}

func (s *Service) countVerification(ctx context.Context, status models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementVerification(status.String(), requestcontext.UserAgent(ctx))
	}
}
