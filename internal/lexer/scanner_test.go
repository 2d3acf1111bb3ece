package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanTokensBasic(t *testing.T) {
	src := "def main() -> field: return 0field"
	s := NewScanner("t.blk", src)
	toks, errs := s.ScanTokens()
	require.Empty(t, errs)

	types := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	require.Equal(t, []TokenType{DEF, IDENT, LPAREN, RPAREN, ARROW, FIELD, COLON, RETURN, INT, EOF}, types)
}

func TestScanNumberWithSuffix(t *testing.T) {
	s := NewScanner("t.blk", "5u32")
	toks, errs := s.ScanTokens()
	require.Empty(t, errs)
	require.Equal(t, "5:u32", toks[0].Literal)
}

func TestScanIllegalCharacterCollected(t *testing.T) {
	s := NewScanner("t.blk", "field x = 1 @ 2")
	_, errs := s.ScanTokens()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Message, "unexpected character")
}

func TestScanRangeOperator(t *testing.T) {
	s := NewScanner("t.blk", "0..4")
	toks, errs := s.ScanTokens()
	require.Empty(t, errs)
	require.Equal(t, []TokenType{INT, DOTDOT, INT, EOF}, []TokenType{toks[0].Type, toks[1].Type, toks[2].Type, toks[3].Type})
}
