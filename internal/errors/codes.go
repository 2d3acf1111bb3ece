// Package errors implements the compiler's error taxonomy (spec.md §7) and
// a caret-style source reporter, grounded in the teacher's
// internal/errors package.
//
// Error code ranges:
// E01xx: scan errors
// E02xx: parse errors
// E1xxx: lowering and interpretation taxonomy from spec.md §7
package errors

const (
	ErrorIllegalCharacter = "E0101"
	ErrorUnterminatedExpr = "E0102"

	ErrorUnexpectedToken = "E0201"
	ErrorExpectedType    = "E0202"

	// The seven taxonomy members of spec.md §7, one code each.
	CodeUnsupported        = "E1001"
	CodeUndefinedBeforeUse = "E1002"
	CodeTypeMismatch       = "E1003"
	CodeStackInvariant     = "E1004"
	CodeUninitializedMem   = "E1005"
	CodeInvalidTerminator  = "E1006"
	CodeConstFoldFailure   = "E1007"
)
