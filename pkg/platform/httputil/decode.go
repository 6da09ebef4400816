package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "vcregistry/pkg/domain-errors"
)

// Normalizer is implemented by request bodies that clean up their own fields
// after decoding.
type Normalizer interface {
	Normalize()
}

var errTrailingData = errors.New("unexpected data after JSON value")

// DecodeBody reads exactly one JSON value from the request body into T and
// normalizes it. An empty, truncated, oversized or trailing-garbage body is
// answered with bad_json and ok=false; field rules are left to the service.
//
//	req, ok := httputil.DecodeBody[IssueRequest](ctx, w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeBody[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := decodeSingle(r.Body, &req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body", "error", err)
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if n, ok := any(&req).(Normalizer); ok {
		n.Normalize()
	}
	return &req, true
}

func decodeSingle(body io.Reader, dst any) error {
	if body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return err
	}
	return nil
}
