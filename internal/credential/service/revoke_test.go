package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"vcregistry/internal/credential/models"
	dErrors "vcregistry/pkg/domain-errors"
)

func (s *ServiceSuite) TestRevoke() {
	s.Run("stamps today's date, saves and audits", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-2026-0005").Return(s.storedRecord("VC-2026-0005"), nil)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *models.CredentialRecord) error {
				s.Require().NotNil(r.RevokedAt)
				s.Equal("2026-03-10", *r.RevokedAt)
				s.Equal("Lê Văn C", r.Name)
				return nil
			})
		s.mockAuditor.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e models.AuditEntry) error {
				s.Equal(models.AuditActionRevoke, e.Action)
				s.Require().NotNil(e.RevokedAt)
				s.Equal("2026-03-10", *e.RevokedAt)
				return nil
			})

		result, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "vc-2026-0005"})

		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, result.Status)
		s.True(result.Changed)
		s.Equal("VC-2026-0005", result.Record.Code)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.CredentialsRevoked.WithLabelValues("revoked")))
	})

	s.Run("already revoked keeps the first date and writes nothing", func() {
		rec := s.storedRecord("VC-2026-0006")
		rec.RevokedAt = ptr("2026-02-01")
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-2026-0006").Return(rec, nil)

		result, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "VC-2026-0006"})

		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, result.Status)
		s.False(result.Changed)
		s.Equal("2026-02-01", *result.RevokedAt)
	})

	s.Run("unknown code is reported as not found, not as an error", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-NONE").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "credential not found"))

		result, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "vc-none"})

		s.Require().NoError(err)
		s.Equal(models.StatusNotFound, result.Status)
		s.Equal("VC-NONE", result.Code)
		s.Nil(result.Record)
	})

	s.Run("audit failure after save is not fatal", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-2026-0007").Return(s.storedRecord("VC-2026-0007"), nil)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAuditor.EXPECT().Append(gomock.Any(), gomock.Any()).Return(dErrors.New(dErrors.CodeUnavailable, "down"))

		result, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "VC-2026-0007"})

		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, result.Status)
	})
}

func (s *ServiceSuite) TestRevokeRejections() {
	s.Run("misconfigured", func() {
		svc := New(s.mockStore, Config{})
		_, err := svc.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "VC-1"})
		s.True(dErrors.HasCode(err, dErrors.CodeMisconfigured))
	})

	s.Run("wrong secret never touches the store", func() {
		_, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: "nope", Code: "VC-1"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("blank code is invalid input", func() {
		_, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "  "})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("corrupt record", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-BAD").
			Return(nil, dErrors.New(dErrors.CodeCorruptRecord, "stored credential is corrupt"))

		_, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "VC-BAD"})

		s.True(dErrors.HasCode(err, dErrors.CodeCorruptRecord))
	})

	s.Run("save failure is returned", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-1").Return(s.storedRecord("VC-1"), nil)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeUnavailable, "store unavailable"))

		_, err := s.service.Revoke(s.ctx, models.RevokeRequest{Secret: testSecret, Code: "VC-1"})

		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
