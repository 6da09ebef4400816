package service_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcregistry/internal/credential/audit"
	"vcregistry/internal/credential/models"
	"vcregistry/internal/credential/service"
	"vcregistry/internal/credential/store"
	"vcregistry/internal/kvstore"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/requestcontext"
)

const secret = "lifecycle-secret"

type harness struct {
	kv  *kvstore.Memory
	svc *service.Service
}

func newHarness() *harness {
	kv := kvstore.NewMemory()
	svc := service.New(store.New(kv),
		service.Config{IssueSecret: secret, IssuerName: "Về Tương Lai"},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithAuditor(audit.NewWriter(audit.NewKVSink(kv))),
	)
	return &harness{kv: kv, svc: svc}
}

func (h *harness) records() map[string]string {
	out := map[string]string{}
	for k, v := range h.kv.Snapshot() {
		if !strings.HasPrefix(k, "audit:") {
			out[k] = v
		}
	}
	return out
}

func (h *harness) auditEntries() int {
	n := 0
	for k := range h.kv.Snapshot() {
		if strings.HasPrefix(k, "audit:") {
			n++
		}
	}
	return n
}

func at(day int) context.Context {
	return requestcontext.WithTime(context.Background(), time.Date(2026, 4, day, 10, 0, 0, 0, time.UTC))
}

func issueReq(code string) models.IssueRequest {
	expires := "2026-12-31"
	note := "Khóa Go nâng cao"
	return models.IssueRequest{
		Secret:    secret,
		Code:      code,
		Name:      "Phạm Thị D",
		IssuedAt:  "2026-04-01",
		ExpiresAt: &expires,
		Note:      &note,
	}
}

func TestIssueThenVerifyIsValid(t *testing.T) {
	h := newHarness()

	issued, err := h.svc.Issue(at(1), issueReq("VC-2026-0001"))
	require.NoError(t, err)

	verified, err := h.svc.Verify(at(2), "VC-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, verified.Status)
	assert.Equal(t, issued.Record, *verified.Record)
	assert.Equal(t, 1, h.auditEntries())
}

func TestVerifyIsCaseInsensitive(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Issue(at(1), issueReq("VC-2026-0001"))
	require.NoError(t, err)

	verified, err := h.svc.Verify(at(2), "vc-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, verified.Status)
}

func TestSecondIssueIsConflictAndKeepsFirst(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Issue(at(1), issueReq("VC-2026-0002"))
	require.NoError(t, err)
	before := h.records()

	second := issueReq("vc-2026-0002")
	second.Name = "Impostor"
	_, err = h.svc.Issue(at(2), second)

	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, before, h.records())
	assert.Equal(t, 1, h.auditEntries())
}

func TestRevokeThenVerify(t *testing.T) {
	h := newHarness()
	issued, err := h.svc.Issue(at(1), issueReq("VC-2026-0003"))
	require.NoError(t, err)

	revoked, err := h.svc.Revoke(at(5), models.RevokeRequest{Secret: secret, Code: "VC-2026-0003"})
	require.NoError(t, err)
	assert.Equal(t, "2026-04-05", *revoked.RevokedAt)

	again, err := h.svc.Revoke(at(6), models.RevokeRequest{Secret: secret, Code: "VC-2026-0003"})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, "2026-04-05", *again.RevokedAt)

	verified, err := h.svc.Verify(at(7), "VC-2026-0003")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, verified.Status)
	assert.Equal(t, issued.Record, *verified.Record)
	assert.Equal(t, 2, h.auditEntries(), "one issue entry and one revoke entry")
}

func TestExpiredAndRevokedExpired(t *testing.T) {
	h := newHarness()
	req := issueReq("VC-2026-0004")
	past := "2026-04-03"
	req.ExpiresAt = &past
	_, err := h.svc.Issue(at(1), req)
	require.NoError(t, err)

	verified, err := h.svc.Verify(at(4), "VC-2026-0004")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, verified.Status)

	_, err = h.svc.Revoke(at(4), models.RevokeRequest{Secret: secret, Code: "VC-2026-0004"})
	require.NoError(t, err)

	verified, err = h.svc.Verify(at(4), "VC-2026-0004")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, verified.Status)
}

func TestVerifyNeverIssued(t *testing.T) {
	h := newHarness()

	verified, err := h.svc.Verify(at(1), "VC-NEVER")

	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, verified.Status)
}

func TestWrongSecretDoesNotMutate(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Issue(at(1), issueReq("VC-2026-0005"))
	require.NoError(t, err)
	before := h.kv.Snapshot()

	bad := issueReq("VC-2026-0006")
	bad.Secret = "wrong"
	_, err = h.svc.Issue(at(2), bad)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = h.svc.Revoke(at(2), models.RevokeRequest{Secret: "wrong", Code: "VC-2026-0005"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	assert.Equal(t, before, h.kv.Snapshot())
}

func TestStoredRecordRoundTrips(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Issue(at(1), issueReq("VC-2026-0007"))
	require.NoError(t, err)

	raw := h.records()["VC-2026-0007"]
	decoded, err := models.DecodeRecord(raw)
	require.NoError(t, err)
	encoded, err := models.EncodeRecord(decoded)
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)
	assert.Nil(t, decoded.RevokedAt)
}

func TestCorruptRecordIsReported(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.kv.Put(context.Background(), "VC-BAD", "not-json"))

	_, err := h.svc.Verify(at(1), "VC-BAD")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCorruptRecord))

	_, err = h.svc.Revoke(at(1), models.RevokeRequest{Secret: secret, Code: "VC-BAD"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCorruptRecord))
}

func TestRevokeNeverWritesThroughToAnotherCode(t *testing.T) {
	h := newHarness()
	victim := issueReq("VC-B")
	victim.Name = "Nạn nhân"
	_, err := h.svc.Issue(at(1), victim)
	require.NoError(t, err)

	planted, err := models.EncodeRecord(&models.CredentialRecord{Code: "VC-B", Name: "Other", Issuer: "X", IssuedAt: "2026-04-01"})
	require.NoError(t, err)
	require.NoError(t, h.kv.Put(context.Background(), "VC-A", planted))

	_, err = h.svc.Revoke(at(2), models.RevokeRequest{Secret: secret, Code: "VC-A"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCorruptRecord))

	_, err = h.svc.Verify(at(2), "VC-A")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCorruptRecord))

	verified, err := h.svc.Verify(at(3), "VC-B")
	require.NoError(t, err)
	assert.Equal(t, models.StatusValid, verified.Status)
	assert.Equal(t, "Nạn nhân", verified.Record.Name)
	assert.Equal(t, 1, h.auditEntries())
}
