package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vcregistry/internal/credential/handler/mocks"
	"vcregistry/internal/credential/models"
	dErrors "vcregistry/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), WithPublicOrigin("https://vc.example.vn/"))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func ptr(v string) *string { return &v }

func sampleView() models.PublicView {
	return models.PublicView{
		Code:     "VC-2026-0001",
		Name:     "Nguyễn Văn A",
		Issuer:   "Về Tương Lai",
		IssuedAt: "2026-01-15",
		Note:     ptr("<b>Khóa Go</b>"),
	}
}

func (s *HandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *HandlerSuite) assertError(w *httptest.ResponseRecorder, status int, tag string) {
	s.Equal(status, w.Code)
	body := s.decode(w)
	s.Equal(false, body["ok"])
	s.Equal(tag, body["error"])
	s.NotEmpty(body["message_vi"])
}

func (s *HandlerSuite) TestIssue() {
	for _, path := range []string{"/issue", "/api/issue"} {
		s.Run("success on "+path, func() {
			s.service.EXPECT().CheckConfigured().Return(nil)
			s.service.EXPECT().Issue(gomock.Any(), models.IssueRequest{
				Secret:   "k",
				Code:     "vc-2026-0001",
				Name:     "Nguyễn Văn A",
				IssuedAt: "2026-01-15",
				Note:     ptr("x"),
			}).Return(&models.IssueResult{Code: "VC-2026-0001", Record: sampleView()}, nil)

			w := s.do(http.MethodPost, path, map[string]any{
				"secret": " k ", "code": "vc-2026-0001", "name": "Nguyễn Văn A",
				"issuedAt": "2026-01-15", "expiresAt": "  ", "note": " x ",
			})

			s.Equal(http.StatusOK, w.Code)
			s.Equal("no-store", w.Header().Get("Cache-Control"))
			body := s.decode(w)
			s.Equal(true, body["ok"])
			s.Equal("issued", body["status"])
			s.Equal("VC-2026-0001", body["code"])
			s.Equal("Đã phát hành chứng chỉ.", body["message_vi"])
			s.Equal("Credential issued.", body["message_en"])
			record := body["record"].(map[string]any)
			s.Contains(record, "expiresAt")
			s.Nil(record["expiresAt"])
			s.NotContains(record, "revokedAt")
		})
	}
}

func (s *HandlerSuite) TestIssueErrorMapping() {
	s.Run("missing secret config comes before body parsing", func() {
		s.service.EXPECT().CheckConfigured().Return(dErrors.New(dErrors.CodeMisconfigured, "no secret"))

		w := s.do(http.MethodPost, "/issue", "{not json")

		s.assertError(w, http.StatusInternalServerError, "missing_env")
	})

	s.Run("bad json", func() {
		s.service.EXPECT().CheckConfigured().Return(nil)

		w := s.do(http.MethodPost, "/issue", "{not json")

		s.assertError(w, http.StatusBadRequest, "bad_json")
	})

	cases := []struct {
		code   dErrors.Code
		status int
		tag    string
	}{
		{dErrors.CodeUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{dErrors.CodeInvalidInput, http.StatusBadRequest, "missing_fields"},
		{dErrors.CodeValidation, http.StatusBadRequest, "invalid_input"},
		{dErrors.CodeConflict, http.StatusConflict, "already_exists"},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	}
	for _, tc := range cases {
		s.Run(string(tc.code), func() {
			s.service.EXPECT().CheckConfigured().Return(nil)
			s.service.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(tc.code, "x"))

			w := s.do(http.MethodPost, "/issue", map[string]string{"secret": "k"})

			s.assertError(w, tc.status, tc.tag)
		})
	}
}

func (s *HandlerSuite) TestRevoke() {
	s.Run("revoked", func() {
		view := sampleView()
		s.service.EXPECT().CheckConfigured().Return(nil)
		s.service.EXPECT().Revoke(gomock.Any(), models.RevokeRequest{Secret: "k", Code: "VC-2026-0001"}).
			Return(&models.RevokeResult{Status: models.StatusRevoked, Code: "VC-2026-0001", Record: &view, RevokedAt: ptr("2026-03-01"), Changed: true}, nil)

		w := s.do(http.MethodPost, "/api/revoke", map[string]string{"secret": "k", "code": " VC-2026-0001 "})

		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal("revoked", body["status"])
		s.Equal("Đã thu hồi chứng chỉ.", body["message_vi"])
		s.Equal("Credential revoked.", body["message_en"])
		s.NotContains(body, "revokedAt")
		s.NotContains(body["record"], "revokedAt")
	})

	s.Run("not found is a success envelope", func() {
		s.service.EXPECT().CheckConfigured().Return(nil)
		s.service.EXPECT().Revoke(gomock.Any(), gomock.Any()).
			Return(&models.RevokeResult{Status: models.StatusNotFound, Code: "VC-NONE"}, nil)

		w := s.do(http.MethodPost, "/revoke", map[string]string{"secret": "k", "code": "VC-NONE"})

		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal(true, body["ok"])
		s.Equal("not_found", body["status"])
		s.Equal("Không tìm thấy chứng chỉ.", body["message_vi"])
		s.NotContains(body, "record")
	})

	s.Run("blank code is missing_code", func() {
		s.service.EXPECT().CheckConfigured().Return(nil)
		s.service.EXPECT().Revoke(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidInput, "code is required"))

		w := s.do(http.MethodPost, "/revoke", map[string]string{"secret": "k"})

		s.assertError(w, http.StatusBadRequest, "missing_code")
	})

	s.Run("corrupt record", func() {
		s.service.EXPECT().CheckConfigured().Return(nil)
		s.service.EXPECT().Revoke(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeCorruptRecord, "corrupt"))

		w := s.do(http.MethodPost, "/revoke", map[string]string{"secret": "k", "code": "VC-BAD"})

		s.assertError(w, http.StatusInternalServerError, "bad_record")
	})

	s.Run("missing env", func() {
		s.service.EXPECT().CheckConfigured().Return(dErrors.New(dErrors.CodeMisconfigured, "no secret"))

		w := s.do(http.MethodPost, "/revoke", map[string]string{"secret": "k", "code": "VC-1"})

		s.assertError(w, http.StatusInternalServerError, "missing_env")
	})
}

func (s *HandlerSuite) TestVerify() {
	s.Run("valid", func() {
		view := sampleView()
		s.service.EXPECT().Verify(gomock.Any(), "vc-2026-0001").
			Return(&models.VerifyResult{Status: models.StatusValid, Code: "VC-2026-0001", Record: &view}, nil)

		w := s.do(http.MethodGet, "/api/verify?code=vc-2026-0001", nil)

		s.Equal(http.StatusOK, w.Code)
		s.True(strings.HasPrefix(w.Body.String(), "{\n  \"ok\": true"))
		body := s.decode(w)
		s.Equal("valid", body["status"])
		s.Equal("Chứng chỉ hợp lệ.", body["message_vi"])
		s.Equal("Credential is valid.", body["message_en"])
		s.NotContains(body, "revokedAt")
	})

	s.Run("revoked keeps the revocation date out of the envelope", func() {
		view := sampleView()
		s.service.EXPECT().Verify(gomock.Any(), "VC-2026-0001").
			Return(&models.VerifyResult{Status: models.StatusRevoked, Code: "VC-2026-0001", Record: &view, RevokedAt: ptr("2026-03-01")}, nil)

		w := s.do(http.MethodGet, "/verify?code=VC-2026-0001", nil)

		s.Equal(http.StatusOK, w.Code)
		s.NotContains(w.Body.String(), "2026-03-01")
		body := s.decode(w)
		s.Equal("revoked", body["status"])
		s.NotContains(body, "revokedAt")
	})

	s.Run("missing code", func() {
		s.service.EXPECT().Verify(gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeInvalidInput, "code is required"))

		w := s.do(http.MethodGet, "/verify", nil)

		s.assertError(w, http.StatusBadRequest, "missing_code")
	})

	s.Run("store down", func() {
		s.service.EXPECT().Verify(gomock.Any(), "VC-1").
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "down"))

		w := s.do(http.MethodGet, "/verify?code=VC-1", nil)

		s.assertError(w, http.StatusServiceUnavailable, "store_unavailable")
	})
}

func (s *HandlerSuite) TestPage() {
	s.Run("valid credential page", func() {
		view := sampleView()
		s.service.EXPECT().Verify(gomock.Any(), "vc-2026-0001").
			Return(&models.VerifyResult{Status: models.StatusValid, Code: "VC-2026-0001", Record: &view}, nil)

		w := s.do(http.MethodGet, "/v/vc-2026-0001", nil)

		s.Equal(http.StatusOK, w.Code)
		s.Equal("text/html; charset=utf-8", w.Header().Get("Content-Type"))
		s.Equal("no-store", w.Header().Get("Cache-Control"))
		body := w.Body.String()
		s.Contains(body, "<title>VC-2026-0001 | Nguyễn Văn A</title>")
		s.Contains(body, `class="b ok">HỢP LỆ`)
		s.Contains(body, "Không</div>", "absent expiry renders as Không")
		s.Contains(body, "&lt;b&gt;Khóa Go&lt;/b&gt;", "note is escaped")
		s.Contains(body, "https://vc.example.vn/v/VC-2026-0001")
		s.Contains(body, "https://vc.example.vn/verify/?code=VC-2026-0001")
		s.NotContains(body, "Ngày thu hồi")
	})

	s.Run("revoked page shows the revocation date", func() {
		view := sampleView()
		s.service.EXPECT().Verify(gomock.Any(), "VC-2026-0001").
			Return(&models.VerifyResult{Status: models.StatusRevoked, Code: "VC-2026-0001", Record: &view, RevokedAt: ptr("2026-03-01")}, nil)

		w := s.do(http.MethodGet, "/credential/VC-2026-0001", nil)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `class="b bad">THU HỒI`)
		s.Contains(w.Body.String(), "2026-03-01")
	})

	s.Run("expired badge", func() {
		view := sampleView()
		view.ExpiresAt = ptr("2026-02-01")
		s.service.EXPECT().Verify(gomock.Any(), "VC-2026-0001").
			Return(&models.VerifyResult{Status: models.StatusExpired, Code: "VC-2026-0001", Record: &view}, nil)

		w := s.do(http.MethodGet, "/v/VC-2026-0001", nil)

		s.Contains(w.Body.String(), `class="b warn">HẾT HẠN`)
		s.Contains(w.Body.String(), "2026-02-01")
	})

	s.Run("unknown code renders 404 page", func() {
		s.service.EXPECT().Verify(gomock.Any(), "vc-none").
			Return(&models.VerifyResult{Status: models.StatusNotFound, Code: "VC-NONE"}, nil)

		w := s.do(http.MethodGet, "/v/vc-none", nil)

		s.Equal(http.StatusNotFound, w.Code)
		s.Contains(w.Body.String(), "Không tìm thấy chứng chỉ")
		s.Contains(w.Body.String(), "Mã: <b>VC-NONE</b>")
	})

	s.Run("corrupt record renders 500 page", func() {
		s.service.EXPECT().Verify(gomock.Any(), "VC-BAD").
			Return(nil, dErrors.New(dErrors.CodeCorruptRecord, "corrupt"))

		w := s.do(http.MethodGet, "/credential/VC-BAD", nil)

		s.Equal(http.StatusInternalServerError, w.Code)
		s.Contains(w.Body.String(), "Dữ liệu chứng chỉ bị lỗi")
	})

	s.Run("store down renders 503 page", func() {
		s.service.EXPECT().Verify(gomock.Any(), "VC-1").
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "down"))

		w := s.do(http.MethodGet, "/v/VC-1", nil)

		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.Equal("no-store", w.Header().Get("Cache-Control"))
	})
}

func TestOriginFromRequest(t *testing.T) {
	h := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "http://vc.local:8080/v/VC-1", nil)
	if got := h.origin(req); got != "http://vc.local:8080" {
		t.Fatalf("origin = %q", got)
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	if got := h.origin(req); got != "https://vc.local:8080" {
		t.Fatalf("origin = %q", got)
	}
}
