package service

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
)

// Error is a client-facing failure. Message is safe to return to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func invalidf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(label string) error {
	return &Error{Kind: KindNotFound, Message: label + " not found"}
}

func conflict(message string, err error) error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool { return kindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return kindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return kindOf(err) == KindConflict }
