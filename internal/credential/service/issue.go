package service

import (
	"context"

	"vcregistry/internal/credential/models"
	"vcregistry/internal/platform/tracer"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
	"vcregistry/pkg/validation"
)

// Issue stores a new credential. The code must be unused; the stored record
// is never overwritten by a later issue.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (result *models.IssueResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrRequestID, requestcontext.RequestID(ctx)))
	defer func() { span.End(err) }()

	if err := s.authorize(req.Secret); err != nil {
		s.rejectIssue(dErrors.CodeOf(err))
		return nil, err
	}

	normalized := normalizeIssue(req, s.issuerName)
	span.SetAttributes(tracer.String(tracer.AttrCode, normalized.Code))

	if normalized.Code == "" || normalized.Name == "" || normalized.Issuer == "" || normalized.IssuedAt == "" {
		s.rejectIssue(dErrors.CodeInvalidInput)
		return nil, dErrors.New(dErrors.CodeInvalidInput, "code, name, issuer and issuedAt are required")
	}
	if err := validation.Validate(&normalized); err != nil {
		s.rejectIssue(dErrors.CodeValidation)
		return nil, err
	}

	record := &models.CredentialRecord{
		Code:      normalized.Code,
		Name:      normalized.Name,
		Issuer:    normalized.Issuer,
		IssuedAt:  normalized.IssuedAt,
		ExpiresAt: normalized.ExpiresAt,
		Note:      normalized.Note,
	}
	if err := s.store.Create(ctx, record); err != nil {
		s.rejectIssue(dErrors.CodeOf(err))
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			s.logger.ErrorContext(ctx, "failed to store credential",
				"error", err,
				"code", record.Code,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}

	s.emitAudit(ctx, span, models.AuditActionIssue, record)
	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}
	s.logger.InfoContext(ctx, "credential issued",
		"code", record.Code,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.IssueResult{
		Code:   record.Code,
		Record: models.ToPublicView(record),
	}, nil
}

func normalizeIssue(req models.IssueRequest, defaultIssuer string) models.IssueRequest {
	out := models.IssueRequest{
		Code:      models.NormalizeCode(req.Code),
		Name:      models.NormalizeText(req.Name),
		Issuer:    models.NormalizeText(req.Issuer),
		IssuedAt:  models.NormalizeText(req.IssuedAt),
		ExpiresAt: models.NormalizeOptional(req.ExpiresAt),
		Note:      models.NormalizeOptional(req.Note),
	}
	if out.Issuer == "" {
		out.Issuer = defaultIssuer
	}
	return out
}

func (s *Service) rejectIssue(code dErrors.Code) {
	if s.metrics != nil {
		s.metrics.IncrementIssueRejected(string(code))
	}
}
