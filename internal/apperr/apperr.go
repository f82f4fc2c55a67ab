// Package apperr defines the external-boundary error taxonomy shared by the
// email check engine, the extraction pipeline, and the HTTP layer (spec §6,
// §7). Every externally callable operation returns either a populated
// result or an *apperr.Error carrying one of these codes.
package apperr

import "fmt"

// Code is one of the enum values the system boundary promises callers (§6).
type Code string

const (
	NotFound        Code = "NotFound"
	Inactive        Code = "Inactive"
	Locked          Code = "Locked"
	AuthFailed      Code = "AuthFailed"
	Unreachable     Code = "Unreachable"
	InvalidInput    Code = "InvalidInput"
	ProcessingError Code = "ProcessingError"
	FeatureDisabled Code = "FeatureDisabled"
	FileTooLarge    Code = "FileTooLarge"
	UploadError     Code = "UploadError"
	Integrity       Code = "Integrity"
)

// Coded is satisfied by any error that carries one of the Code values above.
// Handlers map errors to HTTP responses through this interface rather than
// type-switching on concrete error types package by package.
type Coded interface {
	error
	Code() Code
}

// Error is the concrete Coded implementation used across the core packages.
type Error struct {
	Kind    Code
	Message string
	Err     error
}

func New(kind Code, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Code, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Code() Code { return e.Kind }

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts a Code from err, defaulting to ProcessingError when err
// does not implement Coded.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var c Coded
	if as(err, &c) {
		return c.Code()
	}
	return ProcessingError
}

// as is a tiny errors.As shim kept local to avoid importing errors twice
// for a one-line helper used only here.
func as(err error, target *Coded) bool {
	for err != nil {
		if c, ok := err.(Coded); ok {
			*target = c
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
