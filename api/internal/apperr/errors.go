// Package apperr holds the error taxonomy shared by the pipeline and the chat layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig                Kind = "config"
	KindUnsupportedAttachment Kind = "unsupported_attachment"
	KindUnsupportedImage      Kind = "unsupported_image"
	KindParseFailure          Kind = "parse_failure"
	KindIncompleteForecast    Kind = "incomplete_forecast"
	KindTransport             Kind = "transport"
	KindUnknown               Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap tags err with kind. An error that already carries a kind is returned as is.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// KindOf returns the kind of the first tagged error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// IsKind checks whether the first tagged error in the chain matches kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Cause returns the innermost message for display to the user.
func Cause(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		if typed.Cause != nil {
			return typed.Cause.Error()
		}
		return typed.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
