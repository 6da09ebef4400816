package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "vcregistry/pkg/domain-errors"
)

// ErrorResponse is the failure envelope shared by every JSON endpoint.
type ErrorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	MessageVI string `json:"message_vi,omitempty"`
	MessageEN string `json:"message_en,omitempty"`
}

// WriteJSON writes an indented JSON body. Credential responses must never be
// cached by intermediaries, so every JSON response carries no-store.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	// Errors after WriteHeader cannot change the status code.
	_ = enc.Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorAs(w, err, "")
}

// WriteErrorAs writes err like WriteError but replaces the wire tag. Handlers
// use it where one domain code maps to an endpoint-specific tag (for example
// InvalidInput becomes missing_code on lookups by code).
func WriteErrorAs(w http.ResponseWriter, err error, tag string) {
	code := dErrors.CodeInternal
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}
	if tag == "" {
		tag = DomainCodeToHTTPCode(code)
	}
	msg := messageFor(tag)
	WriteJSON(w, DomainCodeToHTTPStatus(code), ErrorResponse{
		OK:        false,
		Error:     tag,
		MessageVI: msg.vi,
		MessageEN: msg.en,
	})
}

// WriteTagged writes the error envelope for a transport-level tag that has no
// domain error behind it.
func WriteTagged(w http.ResponseWriter, status int, tag string) {
	msg := messageFor(tag)
	WriteJSON(w, status, ErrorResponse{
		OK:        false,
		Error:     tag,
		MessageVI: msg.vi,
		MessageEN: msg.en,
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeMisconfigured, dErrors.CodeCorruptRecord, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the machine-readable
// tags of the public API.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeMisconfigured:
		return TagMissingEnv
	case dErrors.CodeBadRequest:
		return TagBadJSON
	case dErrors.CodeUnauthorized:
		return TagUnauthorized
	case dErrors.CodeInvalidInput:
		return TagMissingFields
	case dErrors.CodeValidation:
		return TagInvalidInput
	case dErrors.CodeConflict:
		return TagAlreadyExists
	case dErrors.CodeNotFound:
		return TagNotFound
	case dErrors.CodeCorruptRecord:
		return TagBadRecord
	case dErrors.CodeUnavailable:
		return TagStoreUnavailable
	default:
		return TagInternal
	}
}
