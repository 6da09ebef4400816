package models

import "time"

// expiryLayouts lists the accepted expiresAt formats in match order.
// Layouts without a zone are read as UTC. Parsing accepts a fractional
// second after the seconds field even when the layout omits it.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// DeriveStatus computes the verification status of a record at now.
// Revocation wins over expiry. An absent or unparseable expiry never expires.
func DeriveStatus(r *CredentialRecord, now time.Time) Status {
	if r.IsRevoked() {
		return StatusRevoked
	}
	if r.ExpiresAt != nil {
		if expiry, ok := ParseTimestamp(*r.ExpiresAt); ok && expiry.Before(now) {
			return StatusExpired
		}
	}
	return StatusValid
}

// ParseTimestamp parses a stored date or timestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
