package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction names the lifecycle action an audit entry records.
type AuditAction string

const (
	AuditActionIssue  AuditAction = "issue"
	AuditActionRevoke AuditAction = "revoke"
)

// AuditSchemaVersion tags every entry so readers can evolve the format.
const AuditSchemaVersion = 1

// auditTimeLayout matches the millisecond ISO-8601 form used by the existing
// audit trail.
const auditTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// AuditEntry is an append-only record of one lifecycle action.
type AuditEntry struct {
	Version   int         `json:"version"`
	At        string      `json:"at"`
	Action    AuditAction `json:"action"`
	Code      string      `json:"code"`
	Issuer    string      `json:"issuer"`
	IssuedAt  string      `json:"issuedAt"`
	RevokedAt *string     `json:"revokedAt,omitempty"`
}

// NewAuditEntry captures the record fields relevant to action at time at.
// Only revoke entries carry revokedAt.
func NewAuditEntry(action AuditAction, r *CredentialRecord, at time.Time) AuditEntry {
	entry := AuditEntry{
		Version:  AuditSchemaVersion,
		At:       at.UTC().Format(auditTimeLayout),
		Action:   action,
		Code:     r.Code,
		Issuer:   r.Issuer,
		IssuedAt: r.IssuedAt,
	}
	if action == AuditActionRevoke {
		entry.RevokedAt = r.RevokedAt
	}
	return entry
}

// AuditKey builds a collision-free key in the audit namespace.
func AuditKey(e AuditEntry) string {
	return fmt.Sprintf("audit:%s:%s:%s", e.Code, e.At, uuid.NewString())
}

// EncodeAuditEntry serializes an entry for a sink.
func EncodeAuditEntry(e AuditEntry) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode audit entry for %s: %w", e.Code, err)
	}
	return b, nil
}
