// Package textfmt gives the block-dump text format that
// internal/blockir.Print emits a concrete grammar it can be re-parsed
// with, grounded in the teacher's grammar/lexer.go +
// grammar/grammar.go pairing: a stateful participle lexer plus a
// participle-tagged struct grammar built directly over it. It exists for
// golden-file diffing and for a downstream circuit generator that would
// rather consume text than call back into this module's Go API; the core
// pipeline never calls into this package.
package textfmt

import "github.com/alecthomas/participle/v2/lexer"

// BlockLexer tokenizes the printer's output. Scope-qualified and reserved
// register names ("a@0", "%RP", "%ARG0", "%i000001") both lex as single
// identifier-shaped tokens so the grammar never has to reconstruct them
// from parts.
var BlockLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Reg", `%[A-Za-z0-9_]+`, nil},
		{"Ident", `[A-Za-z_][A-Za-z0-9_@]*`, nil},
		{"Number", `[0-9]+`, nil},
		{"Op", `==|!=|<=|>=|&&|\|\||[-+*/%<>!?:,\[\]{}()=]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
