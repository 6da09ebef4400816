// Package store persists credential records in a key-value backend, keyed by
// code. It is the one place where backend sentinels become domain errors.
package store

import (
	"context"
	"errors"

	"vcregistry/internal/credential/models"
	"vcregistry/internal/kvstore"
	dErrors "vcregistry/pkg/domain-errors"
	"vcregistry/pkg/platform/keylock"
	"vcregistry/pkg/platform/sentinel"
)

// Store persists credential records.
type Store struct {
	kv    kvstore.Store
	locks *keylock.Striped
}

// New wraps a key-value backend. Backends implementing
// kvstore.ConditionalStore get an atomic Create.
func New(kv kvstore.Store) *Store {
	return &Store{kv: kv, locks: keylock.New(0)}
}

// ErrCodeMismatch marks a stored record whose code differs from its key.
var ErrCodeMismatch = errors.New("stored code does not match key")

// Find loads the record for code. A missing key is CodeNotFound. An
// undecodable value, or one filed under another code, is CodeCorruptRecord:
// Save writes back under record.Code, so a mismatch would overwrite a
// different credential.
func (s *Store) Find(ctx context.Context, code string) (*models.CredentialRecord, error) {
	raw, err := s.kv.Get(ctx, code)
	if err != nil {
		return nil, translate(err, "load credential")
	}
	record, err := models.DecodeRecord(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCorruptRecord, "stored credential is corrupt")
	}
	if record.Code != code {
		return nil, dErrors.Wrap(ErrCodeMismatch, dErrors.CodeCorruptRecord, "stored credential is corrupt")
	}
	return record, nil
}

// Create stores a new record and fails with CodeConflict when the code is
// taken. Without a conditional backend the existence check and the write are
// two steps; they are serialized per code within this process, but a create
// from another replica can still slip between them.
func (s *Store) Create(ctx context.Context, record *models.CredentialRecord) error {
	raw, err := models.EncodeRecord(record)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode credential")
	}

	if cs, ok := s.kv.(kvstore.ConditionalStore); ok {
		created, err := cs.PutIfAbsent(ctx, record.Code, raw)
		if err != nil {
			return translate(err, "create credential")
		}
		if !created {
			return dErrors.New(dErrors.CodeConflict, "credential already exists")
		}
		return nil
	}

	unlock := s.locks.Lock(record.Code)
	defer unlock()

	_, err = s.kv.Get(ctx, record.Code)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeConflict, "credential already exists")
	case !errors.Is(err, sentinel.ErrNotFound):
		return translate(err, "check credential")
	}
	if err := s.kv.Put(ctx, record.Code, raw); err != nil {
		return translate(err, "create credential")
	}
	return nil
}

// Save overwrites the record for its code. Callers only use it to persist a
// revocation on a record they just loaded.
func (s *Store) Save(ctx context.Context, record *models.CredentialRecord) error {
	raw, err := models.EncodeRecord(record)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode credential")
	}
	if err := s.kv.Put(ctx, record.Code, raw); err != nil {
		return translate(err, "save credential")
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "credential not found")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeConflict, "credential already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+": store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+": store error")
	}
}
