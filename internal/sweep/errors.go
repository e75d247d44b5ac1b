package sweep

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a file-scoped pipeline failure.
type ErrorKind string

const (
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindParse             ErrorKind = "parse"
	KindInvalidColumn     ErrorKind = "invalid_column"
	KindSerialization     ErrorKind = "serialization"
)

// Sentinel errors for errors.Is matching against an *Error of the same kind.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrParse             = &Error{Kind: KindParse}
	ErrInvalidColumn     = &Error{Kind: KindInvalidColumn}
	ErrSerialization     = &Error{Kind: KindSerialization}
)

// Error is returned by every pipeline stage. None of them are fatal to a
// session: the caller reports the error next to the file and moves on.
type Error struct {
	Kind ErrorKind
	File string // declared filename, empty when not known at the failure site

	// Detail carries the offending extension (unsupported format) or
	// column name (invalid column).
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindUnsupportedFormat:
		msg = fmt.Sprintf("unsupported file type: %q", e.Detail)
	case KindParse:
		msg = "parse error"
	case KindInvalidColumn:
		msg = fmt.Sprintf("invalid column: %q", e.Detail)
	case KindSerialization:
		msg = "serialization error"
	default:
		msg = string(e.Kind)
	}
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so callers can write errors.Is(err, ErrParse).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a pipeline error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func unsupportedFormat(file, ext string) error {
	return &Error{Kind: KindUnsupportedFormat, File: file, Detail: ext}
}

func parseError(file string, cause error) error {
	return &Error{Kind: KindParse, File: file, Err: cause}
}

func invalidColumn(name string) error {
	return &Error{Kind: KindInvalidColumn, Detail: name}
}

func serializationError(file string, cause error) error {
	return &Error{Kind: KindSerialization, File: file, Err: cause}
}
