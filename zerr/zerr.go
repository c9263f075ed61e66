// Package zerr provides the stable error taxonomy shared by every zeroipc
// package, in the spirit of the standardized error type used elsewhere in
// this codebase: a small integer code plus a human-readable message,
// instead of ad-hoc error strings or panics.
package zerr

import (
	"errors"
	"fmt"
)

// Code is a stable, ABI-observable error code. Integer values are part of
// the wire contract and must never be renumbered.
type Code int

const (
	// codeOK is never constructed as an error; success is a nil error.
	codeOK Code = iota
	NotFound
	AlreadyExists
	Full
	Empty
	OutOfRange
	InvalidArgument
	TableFull
	OutOfMemory
	Unsupported
	IOError
)

var names = [...]string{
	codeOK:          "Ok",
	NotFound:        "NotFound",
	AlreadyExists:   "AlreadyExists",
	Full:            "Full",
	Empty:           "Empty",
	OutOfRange:      "OutOfRange",
	InvalidArgument: "InvalidArgument",
	TableFull:       "TableFull",
	OutOfMemory:     "OutOfMemory",
	Unsupported:     "Unsupported",
	IOError:         "IOError",
}

// String returns the stable name for the code.
func (c Code) String() string {
	if int(c) < 0 || int(c) >= len(names) {
		return "Unknown"
	}
	return names[c]
}

// Error is the concrete error type returned by every fallible operation in
// this module. It carries a stable Code plus an operation-specific message
// and, optionally, key/value context for diagnostics.
type Error struct {
	Code    Code
	Op      string
	Message string
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("zeroipc: %s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("zeroipc: %s: %s", e.Code, e.Message)
}

// New builds an *Error. Use the package-level constructors below for the
// common cases; New is for op-specific detail.
func New(code Code, op, message string, context map[string]any) *Error {
	return &Error{Code: code, Op: op, Message: message, Context: context}
}

// Is reports whether err is a *zerr.Error with the given code. Expected
// outcomes (Full, Empty, NotFound) are checked with Is rather than
// sentinel equality: Full and Empty are shared sentinels, but NotFound
// and every other code are built per call with op-specific context.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// The following are pre-allocated for the hot, expected-outcome paths
// (Full/Empty on Queue and Stack) so that reporting them allocates
// nothing beyond what errors.As already requires to inspect them deeper.
// Structure operations that want op-specific context build a fresh
// *Error via New instead.
var (
	sentinelFull  = &Error{Code: Full, Message: "structure is at capacity"}
	sentinelEmpty = &Error{Code: Empty, Message: "structure has no elements"}
)

// ErrFull returns the shared Full sentinel.
func ErrFull() error { return sentinelFull }

// ErrEmpty returns the shared Empty sentinel.
func ErrEmpty() error { return sentinelEmpty }
