package apperr

import (
	"fmt"
	"strings"
)

// ValidationError covers bad input: unsupported file types, empty keywords,
// malformed request shapes. Never retried, surfaced to the caller verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError covers missing resources the caller can act on: no processed
// documents when retrieval is required, an absent document id.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError covers embedding, vector or generation backends being
// unavailable. The HTTP layer maps it to a service-unavailable status so the
// caller can tell transient infra failure from a bad request.
type UpstreamError struct {
	Backend string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func Upstream(backend string, err error) error {
	return &UpstreamError{Backend: backend, Err: err}
}

// DocumentFailure records a single document's load failure during a batch
// rebuild without aborting the batch.
type DocumentFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"error"`
}

// PartialFailure reports a rebuild that indexed some documents but not all.
// Zero successes is reported as NotFoundError instead, never silently empty.
type PartialFailure struct {
	Failed []DocumentFailure
}

func (e *PartialFailure) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = f.Filename
	}
	return fmt.Sprintf("%d document(s) failed to load: %s", len(e.Failed), strings.Join(names, ", "))
}
