// Package xlerr defines the error kinds shared by every xlcodec package.
//
// Callers normally use the re-exports in package xlcodec and test with errors.Is.
package xlerr

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates a part is not well-formed markup or lacks a
	// required element or attribute.
	ErrMalformed = errors.New("malformed package")

	// ErrNamespace indicates a prefix is referenced without a declaration.
	ErrNamespace = errors.New("namespace inconsistency")

	// ErrUnknownSheet indicates a sheet is referenced by an identifier that has
	// no matching declaration.
	ErrUnknownSheet = errors.New("unknown sheet reference")

	// ErrDomain indicates a value from the domain model has no encoding in the
	// package format.
	ErrDomain = errors.New("unrepresentable domain value")

	// ErrIO indicates the underlying byte sink or source failed.
	ErrIO = errors.New("i/o failure")
)

// Malformed wraps ErrMalformed with a formatted detail message.
func Malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Namespace wraps ErrNamespace with a formatted detail message.
func Namespace(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNamespace, fmt.Sprintf(format, args...))
}

// Domain wraps ErrDomain with a formatted detail message.
func Domain(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}

// IO marks err as an I/O failure while keeping it inspectable.
// A nil err stays nil, and an error already marked is returned as is.
func IO(err error) error {
	if err == nil || errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// UnknownSheet wraps ErrUnknownSheet with a formatted detail message.
func UnknownSheet(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnknownSheet, fmt.Sprintf(format, args...))
}
