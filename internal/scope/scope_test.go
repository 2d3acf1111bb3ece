package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
)

func TestDeclareThenReference(t *testing.T) {
	tbl := NewTable()
	name := tbl.Declare("x")
	require.Equal(t, "x@0", name)

	ref, err := tbl.Reference(ast.Position{}, "x")
	require.NoError(t, err)
	require.Equal(t, "x@0", ref)
}

func TestReferenceUndeclaredFails(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Reference(ast.Position{}, "y")
	require.Error(t, err)
}

func TestShadowWithoutSpillOverwritesInPlace(t *testing.T) {
	tbl := NewTable()
	require.Equal(t, "x@0", tbl.Declare("x"))
	// re-declaring without an intervening spill/pending mark stays at
	// index 0, since nothing has "consumed" the old binding yet.
	require.Equal(t, "x@0", tbl.Declare("x"))
}

func TestPendingDeclareBumpsIndex(t *testing.T) {
	tbl := NewTable()
	require.Equal(t, "x@0", tbl.Declare("x"))
	tbl.MarkPending("x")
	require.Equal(t, "x@1", tbl.Declare("x"))
}

func TestReservedSigilBypassesTable(t *testing.T) {
	tbl := NewTable()
	require.Equal(t, "%RP", tbl.Declare("%RP"))
	ref, err := tbl.Reference(ast.Position{}, "%RP")
	require.NoError(t, err)
	require.Equal(t, "%RP", ref)
}

func TestFrameSpillLedgerRoundTrip(t *testing.T) {
	tbl := NewTable()
	tbl.Declare("x")
	tbl.PushFrame()
	tbl.RecordSpill(0, "x")
	records := tbl.PopFrame()
	require.Equal(t, []SpillRecord{{Offset: 0, Base: "x"}}, records)
}
