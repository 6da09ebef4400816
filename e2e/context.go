package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	Secret           string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	// suffix keeps codes unique when scenarios share a long-lived server.
	suffix string
}

// NewTestContext creates a test context against baseURL. A non-empty
// suffix is appended to every credential code the scenario uses.
func NewTestContext(baseURL, secret string, uniqueCodes bool) *TestContext {
	tc := &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  secret,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	if uniqueCodes {
		tc.suffix = "-" + strings.ToUpper(uuid.NewString()[:8])
	}
	return tc
}

// Code maps a code written in a feature file to the one sent to the server.
func (tc *TestContext) Code(raw string) string {
	if raw == "" {
		return raw
	}
	return raw + tc.suffix
}

func (tc *TestContext) IssueSecret() string {
	return tc.Secret
}

// POST makes a POST request with a JSON body and stores the response
func (tc *TestContext) POST(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.POSTRaw(path, data)
}

// POSTRaw sends body unmodified, for malformed-input scenarios
func (tc *TestContext) POSTRaw(path string, body []byte) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response. Nested fields
// use dots, for example "record.revokedAt".
func (tc *TestContext) GetResponseField(path string) (any, bool, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		data, ok = obj[part]
		if !ok {
			return nil, false, nil
		}
	}
	return data, true, nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.LastResponse == nil {
		return ""
	}
	return tc.LastResponse.Header.Get(name)
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
