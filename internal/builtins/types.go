// Package builtins recognizes embedded standard-library intrinsics: calls
// that bypass call-site lowering entirely and are passed through to the
// downstream IR unchanged (spec.md §4.4 "Embedded intrinsics").
package builtins

// Intrinsic describes one embedded stdlib function the lowerer never emits
// blocks for.
type Intrinsic struct {
	Path  string // fully qualified call path, e.g. "std::field::assert"
	Arity int
}

// intrinsicTable is the fixed set of recognized intrinsics, grounded in the
// same "static table + lookup function" shape the teacher uses for its own
// standard library module registry.
var intrinsicTable = map[string]Intrinsic{
	"std::field::assert": {Path: "std::field::assert", Arity: 1},
	"std::u32::from_field": {Path: "std::u32::from_field", Arity: 1},
	"std::u64::from_field": {Path: "std::u64::from_field", Arity: 1},
	"std::field::from_bool": {Path: "std::field::from_bool", Arity: 1},
}

// IsEmbed implements the is_embed predicate from spec.md §6: true if the
// named function path is a recognized embedded intrinsic.
func IsEmbed(functionPath string) bool {
	_, ok := intrinsicTable[functionPath]
	return ok
}

// Lookup returns the intrinsic descriptor, if any.
func Lookup(functionPath string) (Intrinsic, bool) {
	i, ok := intrinsicTable[functionPath]
	return i, ok
}
