// Package types models the source language's small closed type system:
// Field and the fixed-width unsigned integers, plus Bool. It mirrors the
// opaque downstream value/type algebra described in spec.md §6 closely
// enough that internal/constir can adapt directly to it.
package types

import "blocklang/internal/ast"

// Kind enumerates the built-in type tags.
type Kind int

const (
	KindField Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	default:
		return "unknown"
	}
}

// FromAST converts a parsed type name into a Kind. ok is false for a type
// name the source language does not define (the caller turns that into a
// TypeMismatch at the call site, since undeclared types never reach here
// through a well-formed parse).
func FromAST(t ast.TypeName) (Kind, bool) {
	switch t {
	case ast.TypeField:
		return KindField, true
	case ast.TypeBool:
		return KindBool, true
	case ast.TypeU8:
		return KindU8, true
	case ast.TypeU16:
		return KindU16, true
	case ast.TypeU32:
		return KindU32, true
	case ast.TypeU64:
		return KindU64, true
	default:
		return 0, false
	}
}

// IsIntegerType reports whether k is one of the fixed-width unsigned
// integer kinds (field and bool are not integer types for this purpose).
func IsIntegerType(k Kind) bool {
	switch k {
	case KindU8, KindU16, KindU32, KindU64:
		return true
	default:
		return false
	}
}

// BitWidth returns the integer width in bits, or 0 for field/bool.
func BitWidth(k Kind) int {
	switch k {
	case KindU8:
		return 8
	case KindU16:
		return 16
	case KindU32:
		return 32
	case KindU64:
		return 64
	default:
		return 0
	}
}

// ZeroValue returns the canonical zero-initializer for kind k; the CLI
// driver uses it to build the default input vector when no input is given.
func ZeroValue(k Kind) Value {
	switch k {
	case KindBool:
		return Value{Kind: k, Bool: false}
	default:
		return Value{Kind: k, Int: 0}
	}
}

// Value is a typed runtime value: a field/integer scalar or a boolean. The
// interpreter never needs more than this, since arrays/structs are only
// ever opaque memory contents addressed by integer offsets (spec.md §1
// Non-goals).
type Value struct {
	Kind Kind
	Int  uint64
	Bool bool
}

func (v Value) String() string {
	if v.Kind == KindBool {
		if v.Bool {
			return "true"
		}
		return "false"
	}
	return itoa(v.Int)
}

func itoa(u uint64) string {
	if u == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return string(buf[i:])
}

// Equal compares two values for type+content equality; used by the
// reference evaluator's == and != operators.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindBool {
		return v.Bool == o.Bool
	}
	return v.Int == o.Int
}

// Truthy reduces a Bool value to a Go bool, failing (ok=false) for any
// other kind; used for const-folding Branch/assert guards.
func (v Value) Truthy() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// Mask truncates an integer value to its declared width, matching the
// wraparound semantics fixed-width unsigned integers need when the
// reference evaluator performs arithmetic (internal/constir).
func Mask(k Kind, v uint64) uint64 {
	w := BitWidth(k)
	if w == 0 || w >= 64 {
		return v
	}
	return v & ((uint64(1) << uint(w)) - 1)
}
