package blockir

import "blocklang/internal/types"

// ExecState is the result of executing a single block (spec.md §3
// "ExecState"): the block that ran, the register values it exposes as
// outputs, which block runs next, and the memory ops it produced, kept
// separate by physical/virtual kind so the interpreter can emit two
// independently sorted traces (spec.md §4.7.2).
type ExecState struct {
	BlockName int
	Outputs   map[string]types.Value
	Next      NextBlock
	Halted    bool
	Physical  []PhysicalMemOp
	Virtual   []VirtualMemOp
}
