package xlcodec

import (
	"errors"
	"fmt"

	"github.com/ukaji3/xlcodec-go/pkg/xlcodec/xlerr"
)

// Error kinds. Test with errors.Is.
var (
	// ErrMalformed indicates a part is not well-formed markup or lacks a
	// required element, attribute or part.
	ErrMalformed = xlerr.ErrMalformed
	// ErrNamespace indicates a prefix is used without a declaration.
	ErrNamespace = xlerr.ErrNamespace
	// ErrUnknownSheet indicates a sheet reference with no matching sheet.
	ErrUnknownSheet = xlerr.ErrUnknownSheet
	// ErrDomain indicates a domain value the package format cannot encode.
	ErrDomain = xlerr.ErrDomain
	// ErrIO indicates the byte sink or source failed.
	ErrIO = xlerr.ErrIO
)

// ErrInvalidConfig indicates a Config or configuration file with unknown
// or conflicting settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrConfigNotFound is returned by LoadConfig when the file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// PartError reports which package part an error occurred in.
type PartError struct {
	Part string
	Op   string // "read", "parse", "write"
	Err  error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Part, e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}

// NewPartError creates a new PartError.
func NewPartError(part, op string, err error) *PartError {
	return &PartError{
		Part: part,
		Op:   op,
		Err:  err,
	}
}
