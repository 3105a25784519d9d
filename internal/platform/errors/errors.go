// Package errors is the coded error type shared by the pipeline, the stores and the http layer
// import it as perr
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for callers and for the wire
// values are part of the API envelope, append new codes at the end
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable
	ErrorCodeTooManyRequests
	ErrorCodeUnauthorized
	ErrorCodeForbidden
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB

	// ErrorCodePolicyRejection is a claim refused by scoring or ownership rules
	ErrorCodePolicyRejection

	// ErrorCodeLedgerUnconfirmed is a ledger write with an unknown outcome, safe to resume
	ErrorCodeLedgerUnconfirmed

	// ErrorCodeLedgerRejected is a ledger write the contract refused, never retried
	ErrorCodeLedgerRejected
)

var statusByCode = map[ErrorCode]int{
	ErrorCodeUnavailable:       http.StatusServiceUnavailable,
	ErrorCodeLedgerUnconfirmed: http.StatusServiceUnavailable,
	ErrorCodeTooManyRequests:   http.StatusTooManyRequests,
	ErrorCodeUnauthorized:      http.StatusUnauthorized,
	ErrorCodeForbidden:         http.StatusForbidden,
	ErrorCodeInvalidArgument:   http.StatusUnprocessableEntity,
	ErrorCodePolicyRejection:   http.StatusUnprocessableEntity,
	ErrorCodeValidation:        http.StatusBadRequest,
	ErrorCodeJSON:              http.StatusBadRequest,
	ErrorCodeNotFound:          http.StatusNotFound,
	ErrorCodeDuplicateKey:      http.StatusConflict,
	ErrorCodeLedgerRejected:    http.StatusConflict,
}

// HTTPStatusCode maps c to a response status; unmapped codes are 500
func HTTPStatusCode(c ErrorCode) int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// ErrNotFound is returned by stores for a missing row
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code, a message and optionally the offending field, the pipeline step and a cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Wire is the error part of the response envelope
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Op      string    `json:"op,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig == nil {
		return e.msg
	}
	return e.msg + ": " + e.orig.Error()
}

func (e *Error) Unwrap() error { return e.orig }

// Code returns the classification
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the request field the error is about, if any
func (e *Error) Field() string { return e.field }

// Op returns the pipeline step that failed, if any
func (e *Error) Op() string { return e.op }

// As finds our *Error anywhere in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WireFrom renders err for the envelope; foreign errors become ErrorCodeUnknown and nil is the zero Wire
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	e, ok := As(err)
	if !ok {
		return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
	}
	return Wire{Code: e.code, Message: e.msg, Field: e.field, Op: e.op}
}

// CodeOf returns err's code, ErrorCodeUnknown for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err carries code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus is HTTPStatusCode(CodeOf(err))
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// OpOf returns the pipeline step recorded on err
func OpOf(err error) string {
	if e, ok := As(err); ok {
		return e.op
	}
	return ""
}

// Root follows Unwrap to the innermost cause
func Root(err error) error {
	for err != nil {
		next := stderrs.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return err
}

func with(err error, set func(*Error)) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	set(&c)
	return &c
}

// WithField returns a copy of err naming field; foreign errors pass through
func WithField(err error, field string) error {
	return with(err, func(e *Error) { e.field = field })
}

// WithOp returns a copy of err tagged with the pipeline step op; foreign errors pass through
func WithOp(err error, op string) error {
	return with(err, func(e *Error) { e.op = op })
}

// New builds an *Error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf builds an *Error with a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap builds an *Error around orig
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf builds an *Error around orig with a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

func NotFoundf(format string, a ...any) error   { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }
func JSONErrf(format string, a ...any) error    { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error   { return Newf(ErrorCodePanic, format, a...) }
func Unavailablef(format string, a ...any) error {
	return Newf(ErrorCodeUnavailable, format, a...)
}
func PolicyRejectf(format string, a ...any) error {
	return Newf(ErrorCodePolicyRejection, format, a...)
}
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// LedgerUnconfirmedf wraps cause as a write whose receipt never arrived
func LedgerUnconfirmedf(cause error, format string, a ...any) error {
	return Wrapf(cause, ErrorCodeLedgerUnconfirmed, format, a...)
}

// LedgerRejectedf wraps cause as a write the contract refused
func LedgerRejectedf(cause error, format string, a ...any) error {
	return Wrapf(cause, ErrorCodeLedgerRejected, format, a...)
}

// Retryable decides whether the resumer or a client should try again
// coded errors decide by code, anything else goes through the Postgres checks in pg.go
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests, ErrorCodeLedgerUnconfirmed:
		return true
	case ErrorCodeLedgerRejected, ErrorCodePolicyRejection, ErrorCodeInvalidArgument,
		ErrorCodeValidation, ErrorCodeNotFound:
		return false
	}
	return IsRetryable(err)
}
