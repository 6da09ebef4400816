package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Status is the outcome reported for a credential lookup or lifecycle action.
type Status string

const (
	StatusValid    Status = "valid"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
	StatusNotFound Status = "not_found"
	StatusIssued   Status = "issued"
)

// String returns the wire form of the status.
func (s Status) String() string {
	return string(s)
}

// CredentialRecord is the stored form of a credential, one per code.
// Everything except RevokedAt is immutable once written.
type CredentialRecord struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Issuer    string  `json:"issuer"`
	IssuedAt  string  `json:"issuedAt"`
	ExpiresAt *string `json:"expiresAt"`
	RevokedAt *string `json:"revokedAt"`
	Note      *string `json:"note"`
}

// IsRevoked reports whether the record carries a revocation date.
func (r *CredentialRecord) IsRevoked() bool {
	return r.RevokedAt != nil
}

// Revoke stamps the revocation date on an unrevoked record. It reports false
// and leaves the record untouched when a date is already present.
func (r *CredentialRecord) Revoke(now time.Time) bool {
	if r.IsRevoked() {
		return false
	}
	date := RevocationDate(now)
	r.RevokedAt = &date
	return true
}

// RevocationDate formats now as the UTC calendar date stored in revokedAt.
func RevocationDate(now time.Time) string {
	return now.UTC().Format(time.DateOnly)
}

// PublicView is the projection of a record shown to verifiers. It never
// exposes revokedAt; callers that need it read it from the record.
type PublicView struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Issuer    string  `json:"issuer"`
	IssuedAt  string  `json:"issuedAt"`
	ExpiresAt *string `json:"expiresAt"`
	Note      *string `json:"note"`
}

// ToPublicView projects a record for API responses and pages.
func ToPublicView(r *CredentialRecord) PublicView {
	return PublicView{
		Code:      r.Code,
		Name:      r.Name,
		Issuer:    r.Issuer,
		IssuedAt:  r.IssuedAt,
		ExpiresAt: r.ExpiresAt,
		Note:      r.Note,
	}
}

// NormalizeCode trims and uppercases a credential code so lookups are
// case-insensitive.
func NormalizeCode(code string) string {
	// Casers keep state and are not safe to share across goroutines.
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}

// NormalizeText trims s and converts it to Unicode NFC, so a name typed with
// combining marks matches the same name typed precomposed.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeOptional applies NormalizeText and maps blank values to nil.
func NormalizeOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := NormalizeText(*p)
	if v == "" {
		return nil
	}
	return &v
}
