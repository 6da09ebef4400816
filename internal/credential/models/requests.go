package models

// IssueRequest carries the issuance input as received. Size limits are
// checked after normalization; the limits count characters, not bytes.
type IssueRequest struct {
	Secret    string
	Code      string  `validate:"maxrunes=64"`
	Name      string  `validate:"maxrunes=200"`
	Issuer    string  `validate:"maxrunes=200"`
	IssuedAt  string  `validate:"maxrunes=64"`
	ExpiresAt *string `validate:"omitempty,maxrunes=64"`
	Note      *string `validate:"omitempty,maxrunes=2000"`
}

// RevokeRequest carries the revocation input as received.
type RevokeRequest struct {
	Secret string
	Code   string
}

// IssueResult is returned for a newly stored credential.
type IssueResult struct {
	Code   string
	Record PublicView
}

// RevokeResult reports a revocation. Record is nil when Status is
// StatusNotFound. Changed is false for a repeated revocation.
type RevokeResult struct {
	Status    Status
	Code      string
	Record    *PublicView
	RevokedAt *string
	Changed   bool
}

// VerifyResult reports the derived status of a code. Record is nil when
// Status is StatusNotFound.
type VerifyResult struct {
	Status    Status
	Code      string
	Record    *PublicView
	RevokedAt *string
}
