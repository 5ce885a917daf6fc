package model

import "errors"

var (
	// ErrNotFound covers both "does not exist" and "not owned by the
	// caller" so session ids cannot be probed. Expired-but-unswept
	// sessions surface as ErrNotFound too.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a malformed request shape.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a uniqueness violation on insert.
	ErrConflict = errors.New("conflict")

	// ErrNoJournals is the expected terminal outcome of a report request
	// over an empty period. Not an alarm condition.
	ErrNoJournals = errors.New("no journals in period")

	// ErrUpstream marks a permanent generation failure or retry exhaustion.
	ErrUpstream = errors.New("upstream generation error")

	// ErrUpstreamTransient marks a retryable upstream failure (timeout,
	// rate limit, 5xx). Retried locally before surfacing as ErrUpstream.
	ErrUpstreamTransient = errors.New("transient upstream generation error")
)
