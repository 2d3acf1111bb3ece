package blockir

import "blocklang/internal/types"

// PhysicalMemOp records one access to the physical (register-spill) stack.
// A push and the pop that restores from it share an address, so Seq — not
// Timestamp — is the sort tie-breaker within an address: it is assigned in
// strict append order and never reused, resolving spec.md §9's open
// question on physical mem-op ordering.
type PhysicalMemOp struct {
	Addr    uint64
	Data    types.Value
	IsStore bool
	Seq     uint64
}

// VirtualMemOp records one access to the virtual heap (array Store/Load).
// Timestamp is the %TS register value captured at the moment of the op,
// and is the real sort key: the interpreter's virtual-heap trace is
// ordered by (Addr, Timestamp), matching the monotonic-timestamp
// consistency argument the downstream constraint system checks.
type VirtualMemOp struct {
	Addr      uint64
	Data      types.Value
	IsStore   bool
	Timestamp uint64
}
