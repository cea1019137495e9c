// Package services defines the business logic of the content-trust
// pipeline: submission, content lifecycle, reports, moderation actions, and
// the audit log. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// Content-related errors.
var (
	// ErrEmptyBody is returned when a submission or edit contains no text.
	ErrEmptyBody = errors.New("body is empty")

	// ErrTooLong is returned when submitted text exceeds the configured
	// maximum length.
	ErrTooLong = errors.New("body too long")

	// ErrThreadNotFound indicates that the requested thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrPostNotFound indicates that the requested post does not exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrNotAuthor is returned when a caller tries to edit or delete
	// content they do not own.
	ErrNotAuthor = errors.New("caller is not the content author")

	// ErrTerminalStatus is returned when a transition is attempted from
	// REMOVED or DELETED. Terminal states are never overwritten.
	ErrTerminalStatus = errors.New("content is in a terminal state")

	// ErrCheckUnavailable mirrors the moderation client's dependency
	// failure at the service boundary. The pipeline never substitutes a
	// default verdict for it.
	ErrCheckUnavailable = errors.New("content check unavailable")
)

// Report-related errors.
var (
	// ErrInvalidReason is returned when a report reason is not one of the
	// accepted values.
	ErrInvalidReason = errors.New("invalid report reason")

	// ErrReportNotFound indicates that the requested report does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrDuplicateReport is returned when a filer already has a
	// non-resolved report against the same target.
	ErrDuplicateReport = errors.New("an open report against this target already exists")

	// ErrReportResolved is returned when a resolution conflicts with a
	// report that is already resolved with a different status.
	ErrReportResolved = errors.New("report already resolved")

	// ErrInvalidResolution is returned when a resolve call names a
	// non-terminal report status.
	ErrInvalidResolution = errors.New("resolution status must be a RESOLVED_* value")

	// ErrInvalidStatusFilter is returned when a listing names an unknown
	// report status.
	ErrInvalidStatusFilter = errors.New("invalid report status filter")
)

// Moderation-related errors.
var (
	// ErrInvalidAction is returned when an action type is unknown.
	ErrInvalidAction = errors.New("invalid moderation action")

	// ErrActionTargetMissing is returned when an action names no usable
	// target for its type.
	ErrActionTargetMissing = errors.New("moderation action requires a target")
)

// ContentBlockedError is returned by the submission pipeline when the AI
// content check blocks a submission. The content is never persisted; the
// verdict's reasons ride along for the caller.
type ContentBlockedError struct {
	Reasons []string
}

// Error implements the error interface.
func (e *ContentBlockedError) Error() string {
	if len(e.Reasons) == 0 {
		return "content blocked by moderation"
	}
	return fmt.Sprintf("content blocked by moderation: %s", strings.Join(e.Reasons, "; "))
}

// IsContentBlocked reports whether err is a ContentBlockedError and returns
// it when so.
func IsContentBlocked(err error) (*ContentBlockedError, bool) {
	var cb *ContentBlockedError
	if errors.As(err, &cb) {
		return cb, true
	}
	return nil, false
}
