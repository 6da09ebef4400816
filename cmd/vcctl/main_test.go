package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcregistry/pkg/secrets"
)

type captured struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func fakeServer(t *testing.T, ok bool, seen *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.method = r.Method
		seen.path = r.URL.Path
		seen.query = r.URL.RawQuery
		if r.Body != nil && r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&seen.body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": ok, "status": "valid"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func envWith(vars map[string]string) env {
	return func(k string) string { return vars[k] }
}

func TestIssueSendsSecretFromEnvironment(t *testing.T) {
	var seen captured
	srv := fakeServer(t, true, &seen)
	var stdout, stderr bytes.Buffer

	code := run([]string{"issue", "-code", "VC-1", "-name", "Trần B", "-issued-at", "2026-01-15", "-note", "khóa 3"},
		&stdout, &stderr,
		envWith(map[string]string{"ISSUE_SECRET": "s3cret", "VCCTL_SERVER": srv.URL}),
		srv.Client())

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, http.MethodPost, seen.method)
	assert.Equal(t, "/api/issue", seen.path)
	assert.Equal(t, "s3cret", seen.body["secret"])
	assert.Equal(t, "VC-1", seen.body["code"])
	assert.Equal(t, "khóa 3", seen.body["note"])
	assert.NotContains(t, seen.body, "expiresAt")
	assert.NotContains(t, seen.body, "issuer")
	assert.Contains(t, stdout.String(), `"ok":true`)
}

func TestRevokeWithoutSecretFailsBeforeSending(t *testing.T) {
	var seen captured
	srv := fakeServer(t, true, &seen)
	var stdout, stderr bytes.Buffer

	code := run([]string{"revoke", "-code", "VC-1"}, &stdout, &stderr,
		envWith(map[string]string{"VCCTL_SERVER": srv.URL}), srv.Client())

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "ISSUE_SECRET")
	assert.Empty(t, seen.path)
}

func TestVerifyEscapesCode(t *testing.T) {
	var seen captured
	srv := fakeServer(t, false, &seen)
	var stdout, stderr bytes.Buffer

	code := run([]string{"verify", "-code", "VC 1&x"}, &stdout, &stderr,
		envWith(map[string]string{"VCCTL_SERVER": srv.URL}), srv.Client())

	assert.Equal(t, 1, code)
	assert.Equal(t, http.MethodGet, seen.method)
	assert.Equal(t, "/api/verify", seen.path)
	assert.Equal(t, "code=VC+1%26x", seen.query)
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"mint"}, &stdout, &stderr, envWith(nil), http.DefaultClient)

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Unknown command: mint")
}

func TestHashSecretPrintsUsableHash(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"hash-secret"}, &stdout, &stderr,
		envWith(map[string]string{"ISSUE_SECRET": "s3cret"}), http.DefaultClient)

	require.Equal(t, 0, code, stderr.String())
	verifier, err := secrets.NewBcrypt(stdout.String())
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify("s3cret"))
}
