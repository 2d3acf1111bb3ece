// Package scope implements the lowering-time scope table and spill ledger
// described in spec.md §4.1-§4.2: the linear renaming discipline that
// reifies source-level lexical scoping as flat, block-local register names
// instead of a separate SSA construction pass.
package scope

import (
	"fmt"

	"blocklang/internal/ast"
	"blocklang/internal/errors"
)

// reservedSigil marks system registers (RP, SP, BP, TS, AS, RET, RET<k>,
// ARG<k>, i<nnnnnn>, o<nnnnnn>) which are never scope-renamed. The source
// language's own identifiers cannot begin with '%', so this is an
// unambiguous discriminator.
const reservedSigil = '%'

// IsReserved reports whether name is a system register name.
func IsReserved(name string) bool {
	return len(name) > 0 && name[0] == reservedSigil
}

// entry is one scope table binding for a base identifier.
type entry struct {
	index   int
	pending bool
}

// SpillRecord is one (offset, base_name) pair written to the per-frame
// spill ledger when a shadowing declaration or call forces a register to
// the stack (spec.md §4.2).
type SpillRecord struct {
	Offset int
	Base   string
}

// Table is the lowering-local scope table plus spill ledger for a single
// function. It is never shared across functions, matching spec.md §5
// ("The scope table and spill ledger are thread-local to the lowering
// pass; no sharing").
type Table struct {
	entries map[string]entry
	// frames is a stack of per-scope spill ledgers; frames[len-1] is the
	// innermost currently-open scope.
	frames [][]SpillRecord
	// bpPushed tracks, per open frame, whether the first spill of that
	// frame has already emitted the BP save (spec.md §4.2 step 1).
	bpPushed []bool
}

// NewTable creates an empty scope table with one (function-body) frame
// already open.
func NewTable() *Table {
	t := &Table{entries: make(map[string]entry)}
	t.PushFrame()
	return t
}

// PushFrame opens a new lexical scope (enter-scope, spec.md §4.2).
func (t *Table) PushFrame() {
	t.frames = append(t.frames, nil)
	t.bpPushed = append(t.bpPushed, false)
}

// PopFrame closes the innermost scope and returns its spill ledger in
// declaration order; the caller is responsible for emitting the MemPop
// instructions in reverse (spec.md §4.2 "Exit-scope").
func (t *Table) PopFrame() []SpillRecord {
	n := len(t.frames)
	records := t.frames[n-1]
	t.frames = t.frames[:n-1]
	t.bpPushed = t.bpPushed[:n-1]
	return records
}

// FrameDepth reports how many scopes are currently open.
func (t *Table) FrameDepth() int { return len(t.frames) }

// NeedsBPPush reports whether the current frame has not yet spilled BP;
// the caller clears this with MarkBPPushed once it emits the MemPush(BP,
// ...) instruction (spec.md §4.2 step 1, "On the first spill of a frame
// only").
func (t *Table) NeedsBPPush() bool {
	return !t.bpPushed[len(t.bpPushed)-1]
}

// MarkBPPushed records that this frame's BP save has been emitted.
func (t *Table) MarkBPPushed() {
	t.bpPushed[len(t.bpPushed)-1] = true
}

// RecordSpill appends a spill to the current frame's ledger.
func (t *Table) RecordSpill(offset int, base string) {
	n := len(t.frames)
	t.frames[n-1] = append(t.frames[n-1], SpillRecord{Offset: offset, Base: base})
}

// Reference resolves a read/assign reference to base, returning the
// scope-qualified name. Reserved-sigil identifiers pass through untouched
// (spec.md §4.1).
func (t *Table) Reference(pos ast.Position, base string) (string, error) {
	if IsReserved(base) {
		return base, nil
	}
	e, ok := t.entries[base]
	if !ok {
		return "", errors.UndefinedBeforeUse(pos, base)
	}
	return qualify(base, e.index), nil
}

// IsDeclared reports whether base currently has a binding, without
// raising UndefinedBeforeUse.
func (t *Table) IsDeclared(base string) bool {
	if IsReserved(base) {
		return false
	}
	_, ok := t.entries[base]
	return ok
}

// CurrentQualified returns the current scope-qualified name for an
// already-declared base, panicking if it is not declared; callers must
// check IsDeclared first. Used when spilling live variables at a call
// site, where the base is known-declared by construction.
func (t *Table) CurrentQualified(base string) string {
	e, ok := t.entries[base]
	if !ok {
		panic(fmt.Sprintf("scope: %q is not declared", base))
	}
	return qualify(base, e.index)
}

// IsPending reports whether base's current binding has been marked
// pending (i.e. already spilled once this scope and awaiting the index
// bump on next declaration).
func (t *Table) IsPending(base string) bool {
	e, ok := t.entries[base]
	return ok && e.pending
}

// MarkPending marks base's current binding pending, per spec.md §4.2 step
// 3 ("Mark base pending in the scope table").
func (t *Table) MarkPending(base string) {
	e := t.entries[base]
	e.pending = true
	t.entries[base] = e
}

// Declare records a new lexical declaration of base per spec.md §4.1:
//   - unknown base: index 0, not pending
//   - known + pending: bump index, clear pending
//   - known + not pending: overwrite in place (same-scope shadow)
//
// It returns the scope-qualified name to emit.
func (t *Table) Declare(base string) string {
	if IsReserved(base) {
		return base
	}
	e, ok := t.entries[base]
	switch {
	case !ok:
		t.entries[base] = entry{index: 0, pending: false}
		return qualify(base, 0)
	case e.pending:
		newIndex := e.index + 1
		t.entries[base] = entry{index: newIndex, pending: false}
		return qualify(base, newIndex)
	default:
		t.entries[base] = entry{index: e.index, pending: false}
		return qualify(base, e.index)
	}
}

// RestoreDeclare undoes one Declare call during scope exit, restoring the
// binding that was active before it (spec.md §4.2 "restore the scope
// table entry (undo pending or decrement index)"). prevIndex/prevPending
// describe the state to restore to.
func (t *Table) RestoreDeclare(base string, prevIndex int, prevPending bool) {
	if IsReserved(base) {
		return
	}
	t.entries[base] = entry{index: prevIndex, pending: prevPending}
}

// Snapshot captures base's current (index, pending) pair so a later
// RestoreDeclare can undo a Declare/MarkPending. The lowerer takes the
// snapshot when it spills a variable and records it in the spill ledger.
func (t *Table) Snapshot(base string) (int, bool) {
	e := t.entries[base]
	return e.index, e.pending
}

func qualify(base string, index int) string {
	return fmt.Sprintf("%s@%d", base, index)
}
