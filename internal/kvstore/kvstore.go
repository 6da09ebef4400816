// Package kvstore adapts key-value backends to the minimal get/put contract
// the credential registry relies on. Every backend also offers PutIfAbsent so
// issuance cannot silently overwrite an existing record.
package kvstore

import (
	"context"
	"fmt"

	"vcregistry/pkg/platform/sentinel"
)

// Store is the get/put contract. Get returns sentinel.ErrNotFound for a
// missing key; infrastructure failures wrap sentinel.ErrUnavailable.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// ConditionalStore writes only when the key is absent. It reports false,
// with no error, when the key already existed.
type ConditionalStore interface {
	Store
	PutIfAbsent(ctx context.Context, key, value string) (bool, error)
}

// HealthChecker is implemented by backends that can probe their connection.
type HealthChecker interface {
	Health(ctx context.Context) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", sentinel.ErrUnavailable, op, err)
}
