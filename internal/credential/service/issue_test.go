package service

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"vcregistry/internal/credential/models"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/secrets"
)

func (s *ServiceSuite) validIssueRequest() models.IssueRequest {
	return models.IssueRequest{
		Secret:   testSecret,
		Code:     " vc-2026-0001 ",
		Name:     "  Nguyễn Văn A ",
		IssuedAt: "2026-03-10",
		Note:     ptr("   "),
	}
}

func (s *ServiceSuite) TestIssue() {
	s.Run("stores normalized record and appends issue entry", func() {
		var stored *models.CredentialRecord
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *models.CredentialRecord) error {
				stored = r
				return nil
			})
		s.mockAuditor.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e models.AuditEntry) error {
				s.Equal(models.AuditActionIssue, e.Action)
				s.Equal("VC-2026-0001", e.Code)
				s.Equal("2026-03-10T04:30:00.000Z", e.At)
				s.Nil(e.RevokedAt)
				return nil
			})

		result, err := s.service.Issue(s.ctx, s.validIssueRequest())

		s.Require().NoError(err)
		s.Equal("VC-2026-0001", result.Code)
		s.Equal("Nguyễn Văn A", result.Record.Name)
		s.Equal("Về Tương Lai", result.Record.Issuer, "issuer falls back to the configured name")
		s.Nil(result.Record.ExpiresAt)
		s.Nil(result.Record.Note, "blank note becomes null")
		s.Require().NotNil(stored)
		s.Nil(stored.RevokedAt)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.CredentialsIssued))
	})

	s.Run("explicit issuer wins over the default", func() {
		req := s.validIssueRequest()
		req.Issuer = " Trung tâm ABC "
		req.ExpiresAt = ptr("2027-03-10")
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAuditor.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.service.Issue(s.ctx, req)

		s.Require().NoError(err)
		s.Equal("Trung tâm ABC", result.Record.Issuer)
		s.Equal("2027-03-10", *result.Record.ExpiresAt)
	})

	s.Run("audit failure is not fatal", func() {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAuditor.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("kv down"))

		result, err := s.service.Issue(s.ctx, s.validIssueRequest())

		s.Require().NoError(err)
		s.Equal("VC-2026-0001", result.Code)
	})
}

func (s *ServiceSuite) TestIssueRejections() {
	s.Run("missing configured secret is misconfigured", func() {
		svc := New(s.mockStore, Config{IssueSecret: "   "})

		_, err := svc.Issue(s.ctx, s.validIssueRequest())

		s.True(dErrors.HasCode(err, dErrors.CodeMisconfigured))
		s.True(dErrors.HasCode(svc.CheckConfigured(), dErrors.CodeMisconfigured))
	})

	s.Run("bcrypt verifier replaces the plaintext secret", func() {
		hash, err := secrets.Hash("hashed-only")
		s.Require().NoError(err)
		verifier, err := secrets.NewBcrypt(hash)
		s.Require().NoError(err)
		svc := New(s.mockStore, Config{}, WithSecretVerifier(verifier))
		s.Require().NoError(svc.CheckConfigured())

		req := s.validIssueRequest()
		_, err = svc.Issue(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		req.Secret = "hashed-only"
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		_, err = svc.Issue(s.ctx, req)
		s.Require().NoError(err)
	})

	s.Run("empty secret is unauthorized", func() {
		req := s.validIssueRequest()
		req.Secret = "   "

		_, err := s.service.Issue(s.ctx, req)

		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("wrong secret is unauthorized and never touches the store", func() {
		req := s.validIssueRequest()
		req.Secret = testSecret + "x"

		_, err := s.service.Issue(s.ctx, req)

		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.IssueRejected.WithLabelValues(string(dErrors.CodeUnauthorized))))
	})

	s.Run("secret is compared after trimming", func() {
		req := s.validIssueRequest()
		req.Secret = "\t" + testSecret + " "
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAuditor.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Issue(s.ctx, req)

		s.NoError(err)
	})

	for name, mutate := range map[string]func(*models.IssueRequest){
		"blank code":      func(r *models.IssueRequest) { r.Code = "  " },
		"blank name":      func(r *models.IssueRequest) { r.Name = "" },
		"blank issued at": func(r *models.IssueRequest) { r.IssuedAt = " " },
	} {
		s.Run(name+" is invalid input", func() {
			req := s.validIssueRequest()
			mutate(&req)

			_, err := s.service.Issue(s.ctx, req)

			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}

	s.Run("blank issuer without a default is invalid input", func() {
		svc := New(s.mockStore, Config{IssueSecret: testSecret})

		_, err := svc.Issue(s.ctx, s.validIssueRequest())

		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("oversized note fails validation", func() {
		req := s.validIssueRequest()
		req.Note = ptr(strings.Repeat("ô", 2001))

		_, err := s.service.Issue(s.ctx, req)

		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("existing code is a conflict", func() {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeConflict, "credential already exists"))

		_, err := s.service.Issue(s.ctx, s.validIssueRequest())

		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store outage is unavailable", func() {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeUnavailable, "store unavailable"))

		_, err := s.service.Issue(s.ctx, s.validIssueRequest())

		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
