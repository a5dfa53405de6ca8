package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrEmptyFeed   = errors.New("feed is empty")
	ErrStaleFeed   = errors.New("feed is stale")
)

// FetchErrorKind classifies fetch failures. All kinds abort the cycle past
// the fetch phase; none are retried within the same cycle.
type FetchErrorKind string

const (
	// FetchTransient covers network failures and non-2xx responses.
	FetchTransient FetchErrorKind = "transient"
	// FetchValidation covers JSON decode failures, missing required fields,
	// and source status sentinels that report an error.
	FetchValidation FetchErrorKind = "validation"
	// FetchTimeout means the per-call deadline elapsed before the source
	// responded.
	FetchTimeout FetchErrorKind = "timeout"
)

// FetchError is a per-source fetch failure. It is the only error type the
// source clients return; nothing panics across the client boundary.
type FetchError struct {
	Source Source
	Kind   FetchErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s fetch failed: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError for the given source and kind.
func NewFetchError(source Source, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}
