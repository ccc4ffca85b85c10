package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNoSource          = errors.New("no review source available")
	ErrBadEnvelope       = errors.New("unrecognized review envelope")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrPersist           = errors.New("snapshot persist failed")
)
