package handler

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"vcregistry/internal/credential/models"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type badge struct {
	Label string
	Class string
}

var badges = map[models.Status]badge{
	models.StatusValid:   {Label: "HỢP LỆ", Class: "ok"},
	models.StatusRevoked: {Label: "THU HỒI", Class: "bad"},
	models.StatusExpired: {Label: "HẾT HẠN", Class: "warn"},
}

var unknownBadge = badge{Label: "KHÔNG RÕ", Class: "muted"}

type credentialView struct {
	Title      string
	Badge      badge
	Record     models.PublicView
	ExpiresAt  string
	Note       string
	RevokedAt  string
	Origin     string
	ShareLink  string
	VerifyLink string
}

type codeView struct {
	Code string
}

// HandlePage renders the human-readable credential page for
// GET /credential/{code} and the short share link GET /v/{code}.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawCode := chi.URLParam(r, "code")

	result, err := h.service.Verify(ctx, rawCode)
	if err != nil {
		h.logFailure(ctx, "failed to render credential page", err)
		switch dErrors.CodeOf(err) {
		case dErrors.CodeInvalidInput:
			h.render(w, r, http.StatusNotFound, "not_found.html", codeView{Code: models.NormalizeCode(rawCode)})
		case dErrors.CodeCorruptRecord:
			h.render(w, r, http.StatusInternalServerError, "corrupt.html", codeView{Code: models.NormalizeCode(rawCode)})
		case dErrors.CodeUnavailable:
			h.render(w, r, http.StatusServiceUnavailable, "unavailable.html", codeView{Code: models.NormalizeCode(rawCode)})
		default:
			h.render(w, r, http.StatusInternalServerError, "unavailable.html", codeView{Code: models.NormalizeCode(rawCode)})
		}
		return
	}

	if result.Status == models.StatusNotFound || result.Record == nil {
		h.render(w, r, http.StatusNotFound, "not_found.html", codeView{Code: result.Code})
		return
	}

	origin := h.origin(r)
	view := credentialView{
		Title:      result.Record.Code + " | " + result.Record.Name,
		Badge:      unknownBadge,
		Record:     *result.Record,
		ExpiresAt:  "Không",
		Origin:     origin,
		ShareLink:  origin + "/v/" + url.PathEscape(result.Record.Code),
		VerifyLink: origin + "/verify/?code=" + url.QueryEscape(result.Record.Code),
	}
	if b, ok := badges[result.Status]; ok {
		view.Badge = b
	}
	if result.Record.ExpiresAt != nil {
		view.ExpiresAt = *result.Record.ExpiresAt
	}
	if result.Record.Note != nil {
		view.Note = *result.Record.Note
	}
	if result.RevokedAt != nil {
		view.RevokedAt = *result.RevokedAt
	}
	h.render(w, r, http.StatusOK, "credential.html", view)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			"template", name,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
}

// origin returns the configured public origin, or the one the request was
// addressed to.
func (h *Handler) origin(r *http.Request) string {
	if h.publicOrigin != "" {
		return strings.TrimRight(h.publicOrigin, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
