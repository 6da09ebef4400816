package sentinel

import "errors"

// Sentinel dependency errors. Key-value adapters return these (optionally wrapped)
// so the credential repository can translate them into domain errors exactly once.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnavailable   = errors.New("unavailable")
)
