package credential

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	Code(raw string) string
	IssueSecret() string
	GetResponseField(path string) (any, bool, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers credential lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &credentialSteps{tc: tc}

	// Setup steps
	ctx.Step(`^a credential "([^"]*)" has been issued to "([^"]*)"$`, steps.credentialIssued)
	ctx.Step(`^a credential "([^"]*)" has been issued to "([^"]*)" expiring "([^"]*)"$`, steps.credentialIssuedExpiring)
	ctx.Step(`^the credential "([^"]*)" has been revoked$`, steps.credentialRevoked)

	// Action steps
	ctx.Step(`^I issue a credential with:$`, steps.issueWithTable)
	ctx.Step(`^I revoke "([^"]*)"$`, steps.revoke)
	ctx.Step(`^I revoke "([^"]*)" with secret "([^"]*)"$`, steps.revokeWithSecret)
	ctx.Step(`^I verify "([^"]*)"$`, steps.verify)
	ctx.Step(`^I verify without a code$`, steps.verifyWithoutCode)
	ctx.Step(`^I open the credential page for "([^"]*)"$`, steps.openPage)
	ctx.Step(`^I open the share link for "([^"]*)"$`, steps.openShareLink)

	// Assertion steps
	ctx.Step(`^the returned code should be "([^"]*)"$`, steps.returnedCodeShouldBe)
	ctx.Step(`^the credential "([^"]*)" should have status "([^"]*)"$`, steps.credentialShouldHaveStatus)
}

type credentialSteps struct {
	tc TestContext
}

func (s *credentialSteps) issue(body map[string]any) error {
	if _, ok := body["secret"]; !ok {
		body["secret"] = s.tc.IssueSecret()
	}
	if code, ok := body["code"].(string); ok {
		body["code"] = s.tc.Code(code)
	}
	return s.tc.POST("/api/issue", body)
}

func (s *credentialSteps) expectOK() error {
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("expected status 200 but got %d\nResponse: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *credentialSteps) credentialIssued(ctx context.Context, code, name string) error {
	if err := s.issue(map[string]any{
		"code":     code,
		"name":     name,
		"issuer":   "Trung tâm Kiểm thử",
		"issuedAt": "2026-01-15",
	}); err != nil {
		return err
	}
	return s.expectOK()
}

func (s *credentialSteps) credentialIssuedExpiring(ctx context.Context, code, name, expiresAt string) error {
	if err := s.issue(map[string]any{
		"code":      code,
		"name":      name,
		"issuer":    "Trung tâm Kiểm thử",
		"issuedAt":  "2026-01-15",
		"expiresAt": expiresAt,
	}); err != nil {
		return err
	}
	return s.expectOK()
}

func (s *credentialSteps) credentialRevoked(ctx context.Context, code string) error {
	if err := s.revoke(ctx, code); err != nil {
		return err
	}
	return s.expectOK()
}

// issueWithTable reads a two-column field/value table. Fields left out are
// not sent at all.
func (s *credentialSteps) issueWithTable(ctx context.Context, table *godog.Table) error {
	body := make(map[string]any, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected field | value rows")
		}
		body[row.Cells[0].Value] = row.Cells[1].Value
	}
	return s.issue(body)
}

func (s *credentialSteps) revoke(ctx context.Context, code string) error {
	return s.revokeWithSecret(ctx, code, s.tc.IssueSecret())
}

func (s *credentialSteps) revokeWithSecret(ctx context.Context, code, secret string) error {
	return s.tc.POST("/api/revoke", map[string]any{
		"secret": secret,
		"code":   s.tc.Code(code),
	})
}

func (s *credentialSteps) verify(ctx context.Context, code string) error {
	return s.tc.GET("/api/verify?code=" + url.QueryEscape(s.tc.Code(code)))
}

func (s *credentialSteps) verifyWithoutCode(ctx context.Context) error {
	return s.tc.GET("/api/verify")
}

func (s *credentialSteps) openPage(ctx context.Context, code string) error {
	return s.tc.GET("/credential/" + url.PathEscape(s.tc.Code(code)))
}

func (s *credentialSteps) openShareLink(ctx context.Context, code string) error {
	return s.tc.GET("/v/" + url.PathEscape(s.tc.Code(code)))
}

func (s *credentialSteps) returnedCodeShouldBe(ctx context.Context, code string) error {
	actual, ok, err := s.tc.GetResponseField("code")
	if err != nil {
		return err
	}
	expected := strings.ToUpper(s.tc.Code(code))
	if !ok || fmt.Sprint(actual) != expected {
		return fmt.Errorf("expected code %s but got %v", expected, actual)
	}
	return nil
}

func (s *credentialSteps) credentialShouldHaveStatus(ctx context.Context, code, status string) error {
	if err := s.verify(ctx, code); err != nil {
		return err
	}
	actual, ok, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if !ok || fmt.Sprint(actual) != status {
		return fmt.Errorf("credential %s: expected status %s but got %v", code, status, actual)
	}
	return nil
}
