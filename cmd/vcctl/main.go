// Package main provides a small operator CLI for the vcregistry API. The
// issuing secret is read from ISSUE_SECRET and never accepted as a flag, so it
// does not end up in shell history.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"vcregistry/pkg/secrets"
)

const defaultServer = "http://localhost:8080"

type env func(string) string

func main() {
	client := &http.Client{Timeout: 15 * time.Second}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv, client))
}

// run executes one subcommand and returns the process exit code: 0 when the
// API answered ok, 1 when it answered with an error envelope, 2 on usage or
// transport errors.
func run(args []string, stdout, stderr io.Writer, getenv env, client *http.Client) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	server := getenv("VCCTL_SERVER")
	if server == "" {
		server = defaultServer
	}

	var (
		req *http.Request
		err error
	)
	switch args[0] {
	case "issue":
		req, err = issueRequest(args[1:], server, getenv, stderr)
	case "revoke":
		req, err = revokeRequest(args[1:], server, getenv, stderr)
	case "verify":
		req, err = verifyRequest(args[1:], server, stderr)
	case "hash-secret":
		return hashSecret(stdout, stderr, getenv)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ok, err := send(client, req, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !ok {
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `vcctl - Issue, revoke and verify credentials against a vcregistry server

Usage:
  vcctl <command> [flags]

Commands:
  issue     Issue a new credential (needs ISSUE_SECRET)
  revoke    Revoke a credential (needs ISSUE_SECRET)
  verify    Look up the current status of a credential
  hash-secret
            Print a bcrypt hash of ISSUE_SECRET for ISSUE_SECRET_HASH

Environment:
  ISSUE_SECRET   Shared issuing secret
  VCCTL_SERVER   Base URL of the server (default http://localhost:8080)

Examples:
  vcctl issue -code VC-2026-0001 -name "Nguyễn Văn A" -issued-at 2026-01-15
  vcctl revoke -code VC-2026-0001
  vcctl verify -code VC-2026-0001

Use "vcctl <command> -h" for more information about a command.`)
}

type issueBody struct {
	Secret    string  `json:"secret"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Issuer    string  `json:"issuer,omitempty"`
	IssuedAt  string  `json:"issuedAt"`
	ExpiresAt *string `json:"expiresAt,omitempty"`
	Note      *string `json:"note,omitempty"`
}

type revokeBody struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

func issueRequest(args []string, server string, getenv env, stderr io.Writer) (*http.Request, error) {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	code := fs.String("code", "", "Credential code")
	name := fs.String("name", "", "Holder name")
	issuer := fs.String("issuer", "", "Issuing organization (server default when empty)")
	issuedAt := fs.String("issued-at", time.Now().UTC().Format(time.DateOnly), "Issue date")
	expiresAt := fs.String("expires-at", "", "Expiry date (optional)")
	note := fs.String("note", "", "Free-form note (optional)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	secret, err := requireSecret(getenv)
	if err != nil {
		return nil, err
	}
	body := issueBody{
		Secret:    secret,
		Code:      *code,
		Name:      *name,
		Issuer:    *issuer,
		IssuedAt:  *issuedAt,
		ExpiresAt: optional(*expiresAt),
		Note:      optional(*note),
	}
	return jsonRequest(server+"/api/issue", body)
}

func revokeRequest(args []string, server string, getenv env, stderr io.Writer) (*http.Request, error) {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(stderr)
	code := fs.String("code", "", "Credential code")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	secret, err := requireSecret(getenv)
	if err != nil {
		return nil, err
	}
	return jsonRequest(server+"/api/revoke", revokeBody{Secret: secret, Code: *code})
}

func verifyRequest(args []string, server string, stderr io.Writer) (*http.Request, error) {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	code := fs.String("code", "", "Credential code")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return http.NewRequest(http.MethodGet, server+"/api/verify?code="+url.QueryEscape(*code), nil)
}

func hashSecret(stdout, stderr io.Writer, getenv env) int {
	secret, err := requireSecret(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintln(stdout, hash)
	return 0
}

func requireSecret(getenv env) (string, error) {
	secret := strings.TrimSpace(getenv("ISSUE_SECRET"))
	if secret == "" {
		return "", errors.New("ISSUE_SECRET is not set")
	}
	return secret, nil
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func jsonRequest(target string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// send copies the response envelope to out and reports its ok flag.
func send(client *http.Client, req *http.Request, out io.Writer) (bool, error) {
	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	var envelope struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false, fmt.Errorf("unexpected response (HTTP %d): %w", resp.StatusCode, err)
	}
	if _, err := out.Write(raw); err != nil {
		return false, err
	}
	return envelope.OK, nil
}
