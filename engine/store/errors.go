package store

import (
	"errors"
	"fmt"
)

// ErrorType classifies store errors.
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a store-related error. A rejected operation never leaves
// partial changes behind.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a store *Error of type t.
func IsType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

func notFound(msg string, err error) error {
	return &Error{Type: ErrNotFound, Message: msg, Err: err}
}

func invalid(msg string, err error) error {
	return &Error{Type: ErrInvalidInput, Message: msg, Err: err}
}
