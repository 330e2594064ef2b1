package comment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("comment: not found")
	ErrAlreadyExists   = errors.New("comment: already exists")
	ErrVersionConflict = errors.New("comment: version conflict")
	ErrForbidden       = errors.New("comment: acting user is not the author")
	ErrNoOpEdit        = errors.New("comment: body unchanged")
	ErrEditWindow      = errors.New("comment: edit window expired")
)

// Code is the machine-readable error kind surfaced to callers. Mapping a
// code to user-facing text is the transport's job.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNoOpEdit          Code = "NO_OP_EDIT"
	CodeConflict          Code = "CONFLICT"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeEditWindowExpired Code = "EDIT_WINDOW_EXPIRED"
	CodeInvalidBody       Code = "INVALID_BODY"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
)

// Error attaches a Code to the underlying failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the Code carried by err. Errors that carry none are
// reported as UNAVAILABLE: they come from a collaborator.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNoOpEdit):
		return CodeNoOpEdit
	case errors.Is(err, ErrVersionConflict):
		return CodeConflict
	case errors.Is(err, ErrEditWindow):
		return CodeEditWindowExpired
	}
	return CodeUnavailable
}

// ErrorEntry is one element of EditResult.Errors.
type ErrorEntry struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// EditResult is the transport-facing shape of an edit. Errors is empty on
// success. On failure Comment holds the unmodified comment when it could be
// loaded.
type EditResult struct {
	Comment *Comment     `json:"comment,omitempty"`
	Errors  []ErrorEntry `json:"errors"`
}

// OK reports whether the edit succeeded.
func (r EditResult) OK() bool { return len(r.Errors) == 0 }
