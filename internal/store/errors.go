package store

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure for the caller. Every store operation
// returns either nil or an *Error carrying exactly one Kind; unclassified
// storage failures surface as KindInternal.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

type Error struct {
	Kind    Kind
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

// KindOf extracts the Kind from an error chain. Anything that is not a
// store.Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationErr(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func forbiddenErr() *Error {
	return &Error{Kind: KindForbidden, Message: "forbidden"}
}

func notFoundErr(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func conflictErr(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func internalErr(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}
