package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned by DecodeRecord when a stored value is not
// a credential record.
var ErrMalformedRecord = errors.New("malformed credential record")

// EncodeRecord serializes a record with its stable key order. Absent
// optional fields are written as null.
func EncodeRecord(r *CredentialRecord) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode credential %s: %w", r.Code, err)
	}
	return string(b), nil
}

// DecodeRecord parses a stored value. Anything that is not a JSON object
// with a code is malformed.
func DecodeRecord(raw string) (*CredentialRecord, error) {
	var r CredentialRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if r.Code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrMalformedRecord)
	}
	return &r, nil
}
