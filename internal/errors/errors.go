package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"blocklang/internal/ast"
)

// Kind is one of the seven fatal error categories from spec.md §7. Every
// one of them is fatal; none are recovered locally (§7).
type Kind string

const (
	KindUnsupported        Kind = "Unsupported"
	KindUndefinedBeforeUse Kind = "UndefinedBeforeUse"
	KindTypeMismatch       Kind = "TypeMismatch"
	KindStackInvariant     Kind = "StackInvariant"
	KindUninitializedMem   Kind = "UninitializedMemory"
	KindInvalidTerminator  Kind = "InvalidTerminator"
	KindConstFoldFailure   Kind = "ConstFoldFailure"
)

func (k Kind) code() string {
	switch k {
	case KindUnsupported:
		return CodeUnsupported
	case KindUndefinedBeforeUse:
		return CodeUndefinedBeforeUse
	case KindTypeMismatch:
		return CodeTypeMismatch
	case KindStackInvariant:
		return CodeStackInvariant
	case KindUninitializedMem:
		return CodeUninitializedMem
	case KindInvalidTerminator:
		return CodeInvalidTerminator
	case KindConstFoldFailure:
		return CodeConstFoldFailure
	default:
		return "E1000"
	}
}

// CompilerError is a structured, positioned fatal error raised by lowering
// or interpretation.
type CompilerError struct {
	Kind    Kind
	Code    string
	Message string
	Pos     ast.Position
	// cause carries the pkg/errors stack captured at construction time, so
	// formatting the error with "%+v" prints a stack trace pointing at the
	// exact call site that raised the error.
	cause error
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Kind, e.Message)
}

// Unwrap exposes the pkg/errors-annotated cause for errors.Is/As and for
// "%+v" stack formatting.
func (e *CompilerError) Unwrap() error { return e.cause }

// Format implements fmt.Formatter so that fmt.Sprintf("%+v", err) prints
// the captured stack trace via the wrapped pkg/errors cause.
func (e *CompilerError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s\n%+v", e.Error(), e.cause)
			return
		}
		fmt.Fprint(s, e.Error())
	default:
		fmt.Fprint(s, e.Error())
	}
}

func newError(kind Kind, pos ast.Position, format string, args ...any) *CompilerError {
	msg := fmt.Sprintf(format, args...)
	return &CompilerError{
		Kind:    kind,
		Code:    kind.code(),
		Message: msg,
		Pos:     pos,
		cause:   pkgerrors.New(msg),
	}
}

func Unsupported(pos ast.Position, format string, args ...any) *CompilerError {
	return newError(KindUnsupported, pos, format, args...)
}

func UndefinedBeforeUse(pos ast.Position, name string) *CompilerError {
	return newError(KindUndefinedBeforeUse, pos, "reference to undeclared identifier %q", name)
}

func TypeMismatch(pos ast.Position, format string, args ...any) *CompilerError {
	return newError(KindTypeMismatch, pos, format, args...)
}

func StackInvariant(pos ast.Position, format string, args ...any) *CompilerError {
	return newError(KindStackInvariant, pos, format, args...)
}

func UninitializedMemory(pos ast.Position, addr uint64) *CompilerError {
	return newError(KindUninitializedMem, pos, "load from uninitialized virtual address %d", addr)
}

func InvalidTerminator(pos ast.Position, format string, args ...any) *CompilerError {
	return newError(KindInvalidTerminator, pos, format, args...)
}

func ConstFoldFailure(pos ast.Position, format string, args ...any) *CompilerError {
	return newError(KindConstFoldFailure, pos, format, args...)
}
