package query

import (
	"errors"
	"fmt"
)

// ErrorKind is one of the error kinds of the taxonomy: a classification,
// not a distinct Go type, so callers switch on Kind rather than on the
// concrete error.
type ErrorKind string

const (
	InvalidSyntax         ErrorKind = "InvalidSyntax"
	TypeError             ErrorKind = "TypeError"
	KeyNotFound           ErrorKind = "KeyNotFound"
	IndexOutOfBounds      ErrorKind = "IndexOutOfBounds"
	DivisionByZero        ErrorKind = "DivisionByZero"
	FunctionNotFound      ErrorKind = "FunctionNotFound"
	InvalidArgument       ErrorKind = "InvalidArgument"
	UserError             ErrorKind = "UserError"
	OperationNotPermitted ErrorKind = "OperationNotPermitted"
	AccessDenied          ErrorKind = "AccessDenied"
	FileNotFound          ErrorKind = "FileNotFound"
)

// Error is a query-engine error carrying its taxonomy kind, a message,
// and an optional source position (set only for parser errors).
type Error struct {
	Kind     ErrorKind
	Message  string
	Position int
	HasPos   bool
}

func (e *Error) Error() string {
	if e.HasPos {
		return fmt.Sprintf("%s: %s (at %d)", e.Kind, e.Message, e.Position)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Recoverable reports whether e's kind is one the taxonomy in spec §7
// lists as recoverable by try/?. Eval's Optional and TryCatch cases do
// not consult it: they turn every evaluation error into Null (or the
// catch branch).
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case TypeError, KeyNotFound, IndexOutOfBounds, DivisionByZero, InvalidArgument, UserError:
		return true
	default:
		return false
	}
}

func syntaxErr(pos int, format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidSyntax, Message: fmt.Sprintf(format, args...), Position: pos, HasPos: true}
}

func typeErr(fn, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if fn != "" {
		msg = fmt.Sprintf("%s: %s", fn, msg)
	}
	return &Error{Kind: TypeError, Message: msg}
}

func argErr(fn, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if fn != "" {
		msg = fmt.Sprintf("%s: %s", fn, msg)
	}
	return &Error{Kind: InvalidArgument, Message: msg}
}

// AsQueryError unwraps err into *Error, if it is one.
func AsQueryError(err error) (*Error, bool) {
	var qe *Error
	ok := errors.As(err, &qe)
	return qe, ok
}
