package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POSTRaw(path string, body []byte) error
	GetResponseField(path string) (any, bool, error)
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the registry is running$`, steps.registryIsRunning)

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, steps.postWithEmptyBody)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, steps.responseShouldNotContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be null$`, steps.responseFieldShouldBeNull)
	ctx.Step(`^the response field "([^"]*)" should be absent$`, steps.responseFieldShouldBeAbsent)
	ctx.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, steps.responseHeaderShouldContain)
	ctx.Step(`^log "([^"]*)"$`, steps.logMessage)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) registryIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/live"); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) postWithEmptyBody(ctx context.Context, path string) error {
	return s.tc.POSTRaw(path, nil)
}

func (s *commonSteps) postWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.POSTRaw(path, []byte(body.Content))
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, text string) error {
	if !strings.Contains(string(s.tc.GetLastResponseBody()), text) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", text, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseShouldNotContain(ctx context.Context, text string) error {
	if strings.Contains(string(s.tc.GetLastResponseBody()), text) {
		return fmt.Errorf("response unexpectedly contains %q", text)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, ok, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("field %s not found in response", field)
	}
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeNull(ctx context.Context, field string) error {
	actualValue, ok, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("field %s not found in response", field)
	}
	if actualValue != nil {
		return fmt.Errorf("field %s: expected null but got %v", field, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeAbsent(ctx context.Context, field string) error {
	_, ok, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("field %s unexpectedly present", field)
	}
	return nil
}

func (s *commonSteps) responseHeaderShouldContain(ctx context.Context, name, expected string) error {
	actual := s.tc.GetLastResponseHeader(name)
	if !strings.Contains(actual, expected) {
		return fmt.Errorf("header %s: expected to contain %q but got %q", name, expected, actual)
	}
	return nil
}

func (s *commonSteps) logMessage(ctx context.Context, message string) error {
	fmt.Println(message)
	return nil
}
