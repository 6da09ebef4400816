package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vcregistry/internal/credential/models"
	credentialservice "vcregistry/internal/credential/service"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/platform/httputil"
	"vcregistry/pkg/requestcontext"
	s "vcregistry/pkg/string"
)

// Service defines the credential operations used by the handler.
type Service interface {
	CheckConfigured() error
	Issue(ctx context.Context, req models.IssueRequest) (*models.IssueResult, error)
	Revoke(ctx context.Context, req models.RevokeRequest) (*models.RevokeResult, error)
	Verify(ctx context.Context, code string) (*models.VerifyResult, error)
}

// Handler wires the credential API and pages to the credential service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	publicOrigin string
	writeGuards  []func(http.Handler) http.Handler
}

// Option configures the Handler.
type Option func(*Handler)

// WithPublicOrigin fixes the origin used in share links. Without it the
// origin is taken from the request.
func WithPublicOrigin(origin string) Option {
	return func(h *Handler) {
		h.publicOrigin = origin
	}
}

// WithWriteGuard wraps the secret-guarded routes (issue and revoke) with mw.
func WithWriteGuard(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.writeGuards = append(h.writeGuards, mw)
		}
	}
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API at the root and under /api, plus the public pages.
func (h *Handler) Register(r chi.Router) {
	writes := r.With(h.writeGuards...)
	for _, prefix := range []string{"", "/api"} {
		writes.Post(prefix+"/issue", h.HandleIssue)
		writes.Post(prefix+"/revoke", h.HandleRevoke)
		r.Get(prefix+"/verify", h.HandleVerify)
	}
	r.Get("/credential/{code}", h.HandlePage)
	r.Get("/v/{code}", h.HandlePage)
}

// IssueRequest is the request body for credential issuance.
type IssueRequest struct {
	Secret    string  `json:"secret"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Issuer    string  `json:"issuer"`
	IssuedAt  string  `json:"issuedAt"`
	ExpiresAt *string `json:"expiresAt"`
	Note      *string `json:"note"`
}

// Normalize trims surrounding whitespace. Field rules live in the service.
func (r *IssueRequest) Normalize() {
	s.TrimStrings(&r.Secret, &r.Code, &r.Name, &r.Issuer, &r.IssuedAt)
	r.ExpiresAt = s.NilIfBlank(r.ExpiresAt)
	r.Note = s.NilIfBlank(r.Note)
}

// RevokeRequest is the request body for credential revocation.
type RevokeRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

func (r *RevokeRequest) Normalize() {
	s.TrimStrings(&r.Secret, &r.Code)
}

// IssueResponse is the response body for a successful issuance.
type IssueResponse struct {
	OK        bool              `json:"ok"`
	Status    string            `json:"status"`
	Code      string            `json:"code"`
	Record    models.PublicView `json:"record"`
	MessageVI string            `json:"message_vi"`
	MessageEN string            `json:"message_en"`
}

// StatusResponse is the response body for revocation and verification.
// Record is absent for unknown codes. The revocation date stays internal;
// only the credential page shows it.
type StatusResponse struct {
	OK        bool               `json:"ok"`
	Status    string             `json:"status"`
	Code      string             `json:"code"`
	Record    *models.PublicView `json:"record,omitempty"`
	MessageVI string             `json:"message_vi"`
	MessageEN string             `json:"message_en"`
}

// HandleIssue handles POST /issue requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.service.CheckConfigured(); err != nil {
		h.logger.ErrorContext(ctx, "issuing secret not configured", "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeBody[IssueRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Issue(ctx, models.IssueRequest{
		Secret:    req.Secret,
		Code:      req.Code,
		Name:      req.Name,
		Issuer:    req.Issuer,
		IssuedAt:  req.IssuedAt,
		ExpiresAt: req.ExpiresAt,
		Note:      req.Note,
	})
	if err != nil {
		h.logFailure(ctx, "failed to issue credential", err)
		httputil.WriteError(w, err)
		return
	}

	msg := statusMessages[models.StatusIssued]
	httputil.WriteJSON(w, http.StatusOK, IssueResponse{
		OK:        true,
		Status:    models.StatusIssued.String(),
		Code:      result.Code,
		Record:    result.Record,
		MessageVI: msg.vi,
		MessageEN: msg.en,
	})
}

// HandleRevoke handles POST /revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.service.CheckConfigured(); err != nil {
		h.logger.ErrorContext(ctx, "issuing secret not configured", "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeBody[RevokeRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Revoke(ctx, models.RevokeRequest{Secret: req.Secret, Code: req.Code})
	if err != nil {
		h.logFailure(ctx, "failed to revoke credential", err)
		writeLookupError(w, err)
		return
	}

	msg := revokeMessages[result.Status]
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		OK:        true,
		Status:    result.Status.String(),
		Code:      result.Code,
		Record:    result.Record,
		MessageVI: msg.vi,
		MessageEN: msg.en,
	})
}

// HandleVerify handles GET /verify?code= requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.Verify(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.logFailure(ctx, "failed to verify credential", err)
		writeLookupError(w, err)
		return
	}

	msg := statusMessages[result.Status]
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		OK:        true,
		Status:    result.Status.String(),
		Code:      result.Code,
		Record:    result.Record,
		MessageVI: msg.vi,
		MessageEN: msg.en,
	})
}

// writeLookupError reports a missing code as missing_code rather than the
// issuance-oriented missing_fields.
func writeLookupError(w http.ResponseWriter, err error) {
	if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
		httputil.WriteErrorAs(w, err, httputil.TagMissingCode)
		return
	}
	httputil.WriteError(w, err)
}

// logFailure logs client mistakes at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
		"error_code", dErrors.CodeOf(err),
	}
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}

var _ Service = (*credentialservice.Service)(nil)
