// Package apperror defines the error kinds surfaced to API clients.
//
// Every constructor marks the error it builds with one of the sentinels below, so callers
// can wrap freely and the request boundary still classifies the failure with errors.Is.
package apperror

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind is the stable machine-readable error kind returned to clients
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindLocked     Kind = "pick_locked"
	KindConflict   Kind = "conflict"
	KindNotReady   Kind = "not_ready"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindUpstream   Kind = "upstream_unavailable"
	KindInternal   Kind = "internal_error"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrLocked     = errors.New("pick is locked")
	ErrConflict   = errors.New("conflict")
	ErrNotReady   = errors.New("not ready")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrUpstream   = errors.New("upstream unavailable")
)

func Validation(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// Locked reports an edit attempted at or after the kickoff of gameID
func Locked(gameID int, kickoff time.Time) error {
	err := errors.Newf("game %d kicked off at %s; pick can no longer change", gameID, kickoff.UTC().Format(time.RFC3339))
	return errors.Mark(err, ErrLocked)
}

func Conflict(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConflict)
}

func NotReady(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotReady)
}

func NotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

func Forbidden(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrForbidden)
}

// upstreamError keeps the operation apart from its cause so clients only see the former
type upstreamError struct {
	op    string
	cause error
}

func (e *upstreamError) Error() string { return e.op + ": " + e.cause.Error() }
func (e *upstreamError) Unwrap() error { return e.cause }

// Upstream wraps a failure of the schedule collaborator
func Upstream(err error, format string, args ...interface{}) error {
	up := &upstreamError{op: fmt.Sprintf(format, args...), cause: err}
	return errors.Mark(errors.WithStack(up), ErrUpstream)
}

// KindOf classifies err; unknown errors are internal
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrLocked):
		return KindLocked
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}

// StatusOf maps err to the HTTP status used at the request boundary
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindLocked:
		return http.StatusLocked
	case KindConflict, KindNotReady:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing text. Internal and upstream errors never leak their cause.
func Message(err error) string {
	switch KindOf(err) {
	case KindInternal:
		return "internal server error"
	case KindUpstream:
		var up *upstreamError
		if errors.As(err, &up) {
			return "schedule unavailable: " + up.op
		}
		return "schedule unavailable"
	}
	return err.Error()
}

// Detail renders the full chain with stack traces, for diagnostic mode only
func Detail(err error) string {
	return fmt.Sprintf("%+v", err)
}
