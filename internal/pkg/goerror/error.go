// Package goerror carries the failure kind of an operation from the use
// cases to the transports: the HTTP status a caller gets, and whether a
// broker consumer should retry or drop the message.
package goerror

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned by repositories on a unique violation.
	ErrConflict = errors.New("resource conflict")
)

// Type tells who is at fault. Only TypeServer failures are worth retrying.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeUnauthorized
)

var statusOf = map[Code]int{
	CodeInternal:      http.StatusInternalServerError,
	CodeInvalidFormat: http.StatusBadRequest,
	CodeInvalidInput:  http.StatusUnprocessableEntity,
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
	CodeUnauthorized:  http.StatusUnauthorized,
}

// Error pairs a message safe to show the caller with the underlying cause,
// which only ever reaches the logs.
type Error struct {
	cause  error
	msg    string
	kind   Type
	code   Code
	fields map[string]string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Msg() string               { return e.msg }
func (e *Error) Type() Type                { return e.kind }
func (e *Error) Code() Code                { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }

func (e *Error) StatusCode() int {
	if s, ok := statusOf[e.code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// NewServer hides err behind a generic message.
func NewServer(err error) error {
	return &Error{cause: err, msg: "Internal server error", kind: TypeServer, code: CodeInternal}
}

func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, kind: TypeBusiness, code: code}
}

// NewInvalidInput wraps a validator error, or builds one from field/message
// pairs. An odd number of pairs is reported as a malformed body.
func NewInvalidInput(err error, fieldMsgs ...string) error {
	if err != nil {
		return &Error{cause: err, msg: "Validation error", kind: TypeValidation, code: CodeInvalidInput}
	}
	if len(fieldMsgs)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(fieldMsgs)/2)
	for i := 0; i < len(fieldMsgs); i += 2 {
		fields[fieldMsgs[i]] = fieldMsgs[i+1]
	}
	return &Error{msg: "Validation error", kind: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat reports a body or parameter that could not be decoded.
func NewInvalidFormat(msg ...string) error {
	m := "Invalid request body"
	if len(msg) > 0 {
		m = msg[0]
	}
	return &Error{msg: m, kind: TypeValidation, code: CodeInvalidFormat}
}
