package errors

import (
	"fmt"

	"blocklang/internal/ast"
)

// ScanError is a lexical error collected by internal/lexer. The scanner
// collects every illegal character rather than aborting at the first one,
// mirroring the teacher's scanner error list.
type ScanError struct {
	Pos     ast.Position
	Message string
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s [%s]", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message, ErrorIllegalCharacter)
}

// ParseError is a syntax error collected by internal/parser.
type ParseError struct {
	Pos     ast.Position
	Message string
	Code    string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s [%s]", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message, e.Code)
}
