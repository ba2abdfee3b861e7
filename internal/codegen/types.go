// Package codegen renders a classified, lifted driver into a stack-code
// (Forth-dialect) vocabulary source file. It performs no further analysis;
// it is a pure rendering of its input.
package codegen

// ModuleMeta is the module-level metadata that fills the catalog header.
// Any field left empty renders as the literal string "none".
type ModuleMeta struct {
	Vocabulary   string
	Category     string
	SourceType   string
	SourceBinary string
	VendorID     string
	DeviceID     string
	Confidence   string
	MMIO         string
}

// Dependency is one REQUIRES line: another vocabulary and the subset of its
// words this module uses.
type Dependency struct {
	Vocabulary string
	Words      []string
}

// PortOp is one port access performed by a function, in encounter order.
type PortOp struct {
	Offset  uint16
	Size    int // 1, 2, or 4 bytes; anything else falls back to the byte form
	IsWrite bool
}

// PollLoop is a recognized status-register wait loop: read a port, mask
// the result, and retry until it matches Expected or Timeout elapses.
type PollLoop struct {
	Port      uint16
	Mask      uint8
	Expected  uint8
	TimeoutUS uint32
}

// InitStep is one write in a recognized hardware initialization sequence.
type InitStep struct {
	Port  uint16
	Value uint8
}

// Function is one function to emit as a stack-code word. A function is
// rendered as exactly one of: its PollLoop (if set), its InitSequence (if
// non-empty), or its flat PortOps — in that priority order, since a
// recognized pattern is a more useful rendering of the same accesses
// PortOps would otherwise list sequentially.
type Function struct {
	Name         string
	Address      uint64
	PortOps      []PortOp
	PollLoop     *PollLoop
	InitSequence []InitStep
}

// Input is everything the generator needs to render one module.
type Input struct {
	Meta         ModuleMeta
	Dependencies []Dependency
	Functions    []Function
	// PortOffsets is the deduplicated list of register offsets to
	// materialize as named CONSTANTs. The constants are emitted in the
	// order given; the generator does not sort the list.
	PortOffsets []uint16
}
