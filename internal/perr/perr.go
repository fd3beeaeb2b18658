// Package perr defines the process-wide error codes and the (atom, info)
// error representation described in spec.md §6-7.
package perr

import (
	"fmt"

	"github.com/purc-go/purc/internal/atom"
)

// Code is one of the process-wide error codes.
type Code int

const (
	OK Code = iota
	OutOfMemory
	InvalidValue
	WrongDataType
	ArgumentMissed
	Duplicated
	EntityNotFound
	BadName
	BadEncoding
	NotImplemented
	NotSupported
	RequestFailed
	IO
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	case InvalidValue:
		return "INVALID_VALUE"
	case WrongDataType:
		return "WRONG_DATA_TYPE"
	case ArgumentMissed:
		return "ARGUMENT_MISSED"
	case Duplicated:
		return "DUPLICATED"
	case EntityNotFound:
		return "ENTITY_NOT_FOUND"
	case BadName:
		return "BAD_NAME"
	case BadEncoding:
		return "BAD_ENCODING"
	case NotImplemented:
		return "NOT_IMPLEMENTED"
	case NotSupported:
		return "NOT_SUPPORTED"
	case RequestFailed:
		return "REQUEST_FAILED"
	case IO:
		return "IO"
	default:
		return "UNKNOWN"
	}
}

// Error pairs a code with an atom identifying the exception name and an
// optional info payload, mirroring the per-instance error slot of spec.md §7.
type Error struct {
	Code Code
	Atom atom.Atom // exception atom, bucket atom.BucketExcept; may be 0
	Info any       // arbitrary extra data (often a variant), may be nil
}

func New(code Code) *Error {
	return &Error{Code: code}
}

func (e *Error) Error() string {
	if e.Info != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Info)
	}
	return e.Code.String()
}

// Is lets errors.Is match on Code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ParseError carries the richer descriptor for parse-time failures
// (spec.md §7): character, line, column, byte position, and extra context.
type ParseError struct {
	Err        *Error
	Character  rune
	Line       int
	Column     int
	Position   int
	Extra      string
	CodeSnippets []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %d:%d (pos %d): %s", e.Err.Code, e.Line, e.Column, e.Position, e.Extra)
}
