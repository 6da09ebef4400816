package service

import (
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"vcregistry/internal/credential/models"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
)

func (s *ServiceSuite) TestVerify() {
	s.Run("valid record", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-2026-0001").Return(s.storedRecord("VC-2026-0001"), nil)

		result, err := s.service.Verify(s.ctx, " vc-2026-0001")

		s.Require().NoError(err)
		s.Equal(models.StatusValid, result.Status)
		s.Equal("VC-2026-0001", result.Code)
		s.Equal("Lê Văn C", result.Record.Name)
		s.Nil(result.RevokedAt)
	})

	s.Run("expired record", func() {
		rec := s.storedRecord("VC-OLD")
		rec.ExpiresAt = ptr("2026-03-09")
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-OLD").Return(rec, nil)

		result, err := s.service.Verify(s.ctx, "VC-OLD")

		s.Require().NoError(err)
		s.Equal(models.StatusExpired, result.Status)
	})

	s.Run("revoked wins over expired and carries the date", func() {
		rec := s.storedRecord("VC-REV")
		rec.ExpiresAt = ptr("2020-01-01")
		rec.RevokedAt = ptr("2026-01-05")
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-REV").Return(rec, nil)

		result, err := s.service.Verify(s.ctx, "VC-REV")

		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, result.Status)
		s.Equal("2026-01-05", *result.RevokedAt)
	})

	s.Run("never issued code is not found", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-NONE").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "credential not found"))

		result, err := s.service.Verify(s.ctx, "VC-NONE")

		s.Require().NoError(err)
		s.Equal(models.StatusNotFound, result.Status)
		s.Nil(result.Record)
	})

	s.Run("counts verifications by client class", func() {
		ctx := requestcontext.WithClientMetadata(s.ctx, "203.0.113.9",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-2026-0001").Return(s.storedRecord("VC-2026-0001"), nil)

		_, err := s.service.Verify(ctx, "VC-2026-0001")

		s.Require().NoError(err)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Verifications.WithLabelValues("valid", "mobile")))
	})
}

func (s *ServiceSuite) TestVerifyErrors() {
	s.Run("blank code is invalid input", func() {
		_, err := s.service.Verify(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("corrupt record", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-BAD").
			Return(nil, dErrors.New(dErrors.CodeCorruptRecord, "corrupt"))

		_, err := s.service.Verify(s.ctx, "VC-BAD")

		s.True(dErrors.HasCode(err, dErrors.CodeCorruptRecord))
	})

	s.Run("store outage", func() {
		s.mockStore.EXPECT().Find(gomock.Any(), "VC-1").
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "down"))

		_, err := s.service.Verify(s.ctx, "VC-1")

		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
