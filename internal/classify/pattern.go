package classify

import "github.com/jeweledtech/bare-metal-forth/internal/uir"

// DefaultPollTimeoutUS is the timeout attached to a recognized polling
// loop. Static analysis of the decoded instruction stream has no access to
// a runtime-computed retry count or clock rate, so this is a fixed
// placeholder rather than an extracted value — the recognizer only
// recovers the port/mask/expected-value triple the loop actually tests.
const DefaultPollTimeoutUS uint32 = 10000

// PollPattern is a recognized status-register polling loop: read a port,
// mask the result, and retry until it equals the expected value or the
// loop's timeout elapses.
type PollPattern struct {
	Port      uint16
	Mask      uint8
	Expected  uint8
	TimeoutUS uint32
}

// InitStep is one write in a recognized hardware initialization sequence:
// a fixed value written to a fixed port.
type InitStep struct {
	Port  uint16
	Value uint8
}

// DetectPollLoop looks for a single basic block that reads a port, tests
// the result against a mask and expected value, and branches back to its
// own start on mismatch — the compiled shape of a status-register wait
// loop. It reports the first such block found; a function with more than
// one is unusual enough that reporting only the first is acceptable.
func DetectPollLoop(fn *uir.Function) (PollPattern, bool) {
	for i, b := range fn.Blocks {
		if pat, ok := pollPatternFromBlock(b, i); ok {
			return pat, true
		}
	}
	return PollPattern{}, false
}

func pollPatternFromBlock(b uir.BasicBlock, index int) (PollPattern, bool) {
	if len(b.Instructions) == 0 || b.BranchTarget != index {
		return PollPattern{}, false
	}
	last := b.Instructions[len(b.Instructions)-1]
	if last.Opcode != uir.OpJcc {
		return PollPattern{}, false
	}

	var (
		port           uint16
		readReg        int
		mask, expected uint8
		haveRead       bool
		haveMask       bool
		haveWant       bool
	)
	for _, inst := range b.Instructions {
		switch inst.Opcode {
		case uir.OpPortIn:
			if inst.PortFromDX {
				return PollPattern{}, false
			}
			port = inst.Port
			readReg = inst.Dest.Reg
			haveRead = true
		case uir.OpAnd:
			if haveRead && inst.Dest.Kind == uir.ValReg && inst.Dest.Reg == readReg && inst.Src1.Kind == uir.ValImm {
				mask = uint8(inst.Src1.Imm)
				haveMask = true
			}
		case uir.OpCmp, uir.OpTest:
			if haveMask && inst.Dest.Kind == uir.ValReg && inst.Dest.Reg == readReg && inst.Src1.Kind == uir.ValImm {
				expected = uint8(inst.Src1.Imm)
				haveWant = true
			}
		}
	}
	if !haveRead || !haveMask || !haveWant {
		return PollPattern{}, false
	}
	return PollPattern{Port: port, Mask: mask, Expected: expected, TimeoutUS: DefaultPollTimeoutUS}, true
}

// DetectInitSequence looks for a function that is nothing but a flat run of
// immediate-valued port writes: no reads, no branches. This is the compiled
// shape of a device configuration routine that pokes a fixed sequence of
// register values at startup.
func DetectInitSequence(fn *uir.Function) ([]InitStep, bool) {
	if !fn.HasPortIO || len(fn.PortsRead) > 0 || len(fn.PortsWritten) < 2 {
		return nil, false
	}
	for _, b := range fn.Blocks {
		if b.BranchTarget != -1 {
			return nil, false
		}
	}

	var steps []InitStep
	for _, b := range fn.Blocks {
		for i, inst := range b.Instructions {
			if inst.Opcode != uir.OpPortOut {
				continue
			}
			if inst.PortFromDX {
				return nil, false
			}
			value, ok := precedingImmediate(b.Instructions[:i], inst.Src1)
			if !ok {
				return nil, false
			}
			steps = append(steps, InitStep{Port: inst.Port, Value: value})
		}
	}
	if len(steps) < 2 {
		return nil, false
	}
	return steps, true
}

// precedingImmediate scans backward through before for the nearest MOV
// that loaded src's register from an immediate, returning that immediate.
// An OUT instruction's value operand is always a register (the
// accumulator) — the driver loads it with a MOV a few instructions
// earlier — so recovering the literal written value means walking back to
// that load.
func precedingImmediate(before []uir.Instruction, src uir.Value) (uint8, bool) {
	if src.Kind != uir.ValReg {
		return 0, false
	}
	for i := len(before) - 1; i >= 0; i-- {
		inst := before[i]
		if inst.Opcode == uir.OpMov && inst.Dest.Kind == uir.ValReg && inst.Dest.Reg == src.Reg {
			if inst.Src1.Kind == uir.ValImm {
				return uint8(inst.Src1.Imm), true
			}
			return 0, false
		}
	}
	return 0, false
}
