package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FetchErrorKind classifies scraper failures.
type FetchErrorKind string

const (
	FetchNotFound         FetchErrorKind = "not_found"
	FetchBlocked          FetchErrorKind = "blocked"
	FetchTimeout          FetchErrorKind = "timeout"
	FetchMalformedContent FetchErrorKind = "malformed_content"
)

// FetchError is a typed scraper failure.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BackendErrorKind classifies verification/sentiment/extraction backend failures.
type BackendErrorKind string

const (
	BackendTimeout         BackendErrorKind = "timeout"
	BackendRateLimited     BackendErrorKind = "rate_limited"
	BackendInvalidResponse BackendErrorKind = "invalid_response"
)

// BackendError is a typed backend failure.
type BackendError struct {
	Kind    BackendErrorKind
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Backend, e.Kind)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Claim extraction bounds violations. Permanent: never retried.
var (
	ErrContentTooShort = errors.New("article content below minimum length")
	ErrContentTooLong  = errors.New("article content above maximum length")
)

// OrchestrationErrorKind is the closed set of boundary failures.
type OrchestrationErrorKind string

const (
	OrchFetchFailed          OrchestrationErrorKind = "fetch_failed"
	OrchInsufficientEvidence OrchestrationErrorKind = "insufficient_evidence"
	// OrchDeadlineExceeded covers every context-ended run, cancellation
	// included; the wrapped error carries the precise ctx.Err().
	OrchDeadlineExceeded OrchestrationErrorKind = "deadline_exceeded"
	OrchStoreDegraded    OrchestrationErrorKind = "store_degraded"
)

// OrchestrationError is the typed failure surfaced by the analyze boundary.
// StoreDegraded carries the computed report; the analysis is never discarded.
type OrchestrationError struct {
	Kind   OrchestrationErrorKind
	Report *AnalysisReport
	Err    error
}

func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("analysis %s", e.Kind)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// IsTransient reports whether an error may succeed on retry. Timeouts,
// rate limits, and transport-level hiccups are transient; malformed
// input, not-found, and blocked fetches are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == FetchTimeout
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == BackendTimeout || be.Kind == BackendRateLimited
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrContentTooShort) || errors.Is(err, ErrContentTooLong) {
		return false
	}
	return isTransientNetworkError(err.Error())
}

func isTransientNetworkError(msg string) bool {
	s := strings.ToLower(msg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
