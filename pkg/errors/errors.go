package errors

import (
	"errors"
	"fmt"
)

// Error codes. Every failure that reaches a client surface carries one of
// these so the surface can pick a notice or status without string matching.
const (
	CodeAcquisition  = "acquisition"
	CodeUpload       = "upload"
	CodeRecord       = "record"
	CodeAuth         = "auth"
	CodeNotFound     = "not_found"
	CodeForbidden    = "forbidden"
	CodeInvalidInput = "invalid_input"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error represents a custom error type
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with a message and no code.
func New(message string) error {
	return &Error{
		Message: message,
	}
}

// NewWithCode creates a leaf error carrying a code.
func NewWithCode(code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional message, keeping the inner code.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    GetCode(err),
		Message: message,
		Err:     err,
	}
}

// WrapWithCode wraps an error with a code and message
func WrapWithCode(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode returns the outermost error code in the chain, or "".
func GetCode(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Code != "" {
			return e.Code
		}
		err = e.Err
	}
	return ""
}

// GetMessage returns the outermost message, falling back to err.Error().
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func IsAcquisition(err error) bool { return GetCode(err) == CodeAcquisition }

func IsUpload(err error) bool { return GetCode(err) == CodeUpload }

func IsRecord(err error) bool { return GetCode(err) == CodeRecord }

func IsAuth(err error) bool {
	return GetCode(err) == CodeAuth || errors.Is(err, ErrUnauthorized)
}

func IsNotFound(err error) bool {
	return GetCode(err) == CodeNotFound || errors.Is(err, ErrNotFound)
}

func IsForbidden(err error) bool {
	return GetCode(err) == CodeForbidden || errors.Is(err, ErrForbidden)
}

func IsInvalidInput(err error) bool {
	return GetCode(err) == CodeInvalidInput || errors.Is(err, ErrInvalidInput)
}
