package uir

import "github.com/jeweledtech/bare-metal-forth/internal/x86"

// Lift converts a decoded instruction sequence into a basic-block CFG plus a
// port-I/O summary. decoded must be ordered by address, as DecodeRange
// produces it.
func Lift(decoded []x86.Decoded, entryAddress uint64) *Function {
	starts := collectBlockStarts(decoded, entryAddress)
	blocks := buildBlocks(decoded, starts)
	linkEdges(blocks)

	fn := &Function{Blocks: blocks, EntryAddress: entryAddress}
	if len(fn.Blocks) > 0 {
		fn.Blocks[0].IsEntryBlock = true
	}
	summarizePortIO(fn)
	return fn
}

func isBranch(inst x86.Inst) bool {
	switch inst {
	case x86.Jcc, x86.JccNear, x86.Jmp, x86.JmpShort, x86.Loop:
		return true
	}
	return false
}

// resolveRelTarget resolves the absolute target of a relative branch, or
// reports ok=false when the operand isn't a relative displacement (e.g. an
// indirect jump through a register or memory operand).
func resolveRelTarget(dec x86.Decoded) (uint64, bool) {
	if dec.OperandCount == 0 {
		return 0, false
	}
	op := dec.Operands[0]
	if op.Kind != x86.OperandRel {
		return 0, false
	}
	return dec.Address + uint64(dec.Length) + uint64(op.Imm), true
}

// Pass 1: walk the decoded sequence collecting every address a basic block
// must start at.
func collectBlockStarts(decoded []x86.Decoded, entryAddress uint64) map[uint64]bool {
	starts := map[uint64]bool{entryAddress: true}
	for _, dec := range decoded {
		if isBranch(dec.Instruction) {
			if target, ok := resolveRelTarget(dec); ok {
				starts[target] = true
			}
		}
		if isBranch(dec.Instruction) || dec.Instruction == x86.Ret || dec.Instruction == x86.Hlt {
			starts[dec.Address+uint64(dec.Length)] = true
		}
	}
	return starts
}

// Pass 2: iterate the sequence, starting a new block whenever the current
// instruction's address is in the branch-target set, lifting each
// instruction into the current block.
func buildBlocks(decoded []x86.Decoded, starts map[uint64]bool) []BasicBlock {
	var blocks []BasicBlock
	for _, dec := range decoded {
		if len(blocks) == 0 || starts[dec.Address] {
			blocks = append(blocks, BasicBlock{Start: dec.Address, FallThrough: -1, BranchTarget: -1})
		}
		cur := &blocks[len(blocks)-1]
		cur.Instructions = append(cur.Instructions, liftInstruction(dec))
	}
	return blocks
}

// Pass 3: set fall-through and branch-target successor indices from each
// block's own last instruction (not, as an earlier draft of this lifter did,
// the first instruction of the block — that mis-indexed check skipped
// fall-through clearing for blocks that merely started with a terminator).
func linkEdges(blocks []BasicBlock) {
	startIndex := make(map[uint64]int, len(blocks))
	for i, b := range blocks {
		startIndex[b.Start] = i
	}

	for i := range blocks {
		b := &blocks[i]
		if len(b.Instructions) == 0 {
			continue
		}
		last := b.Instructions[len(b.Instructions)-1]

		if last.Opcode != OpJmp && last.Opcode != OpRet {
			if i+1 < len(blocks) {
				b.FallThrough = i + 1
			}
		}

		if last.Opcode == OpJcc || last.Opcode == OpJmp {
			if last.Dest.Kind == ValAbs {
				if idx, ok := startIndex[uint64(last.Dest.Imm)]; ok {
					b.BranchTarget = idx
				}
			}
		}
	}
}

// liftInstruction converts one decoded x86 instruction to its UIR form.
// IN/OUT become PORT_IN/PORT_OUT with the port preserved; MOV splits into
// MOV/LOAD/STORE by operand shape; arithmetic/logic/compare opcodes map
// directly; everything outside the supported set (including Unknown)
// becomes NOP, never an error.
func liftInstruction(dec x86.Decoded) Instruction {
	inst := Instruction{Address: dec.Address, Size: operandSize(dec), Condition: x86.CondNone}

	switch dec.Instruction {
	case x86.Mov, x86.MovImm, x86.Mov8Imm:
		dest, src := liftOperand(dec.Operands[0]), liftOperand(dec.Operands[1])
		inst.Dest, inst.Src1 = dest, src
		switch {
		case dec.Operands[0].Kind == x86.OperandMem:
			inst.Opcode = OpStore
		case dec.Operands[1].Kind == x86.OperandMem:
			inst.Opcode = OpLoad
		default:
			inst.Opcode = OpMov
		}
	case x86.Lea:
		inst.Opcode = OpLea
		inst.Dest = liftOperand(dec.Operands[0])
		inst.Src1 = liftOperand(dec.Operands[1])
	case x86.Movzx:
		inst.Opcode = OpMovzx
		inst.Dest = liftOperand(dec.Operands[0])
		inst.Src1 = liftOperand(dec.Operands[1])
	case x86.Movsx:
		inst.Opcode = OpMovsx
		inst.Dest = liftOperand(dec.Operands[0])
		inst.Src1 = liftOperand(dec.Operands[1])
	case x86.Push, x86.PushImm, x86.PushAD:
		inst.Opcode = OpPush
		if dec.OperandCount > 0 {
			inst.Src1 = liftOperand(dec.Operands[0])
		}
	case x86.Pop, x86.PopAD:
		inst.Opcode = OpPop
		if dec.OperandCount > 0 {
			inst.Dest = liftOperand(dec.Operands[0])
		}
	case x86.Add:
		inst.Opcode = OpAdd
		liftBinary(&inst, dec)
	case x86.Sub:
		inst.Opcode = OpSub
		liftBinary(&inst, dec)
	case x86.Mul:
		inst.Opcode = OpMul
		liftBinary(&inst, dec)
	case x86.Imul:
		inst.Opcode = OpImul
		liftBinary(&inst, dec)
	case x86.Div:
		inst.Opcode = OpDiv
		liftBinary(&inst, dec)
	case x86.Idiv:
		inst.Opcode = OpIdiv
		liftBinary(&inst, dec)
	case x86.Neg:
		inst.Opcode = OpNeg
		if dec.OperandCount > 0 {
			inst.Dest = liftOperand(dec.Operands[0])
		}
	case x86.Inc:
		inst.Opcode = OpInc
		if dec.OperandCount > 0 {
			inst.Dest = liftOperand(dec.Operands[0])
		}
	case x86.Dec:
		inst.Opcode = OpDec
		if dec.OperandCount > 0 {
			inst.Dest = liftOperand(dec.Operands[0])
		}
	case x86.And, x86.Adc: // ADC has no dedicated UIR opcode; treated as AND-adjacent ALU op, best-effort
		inst.Opcode = OpAnd
		liftBinary(&inst, dec)
	case x86.Or, x86.Sbb:
		inst.Opcode = OpOr
		liftBinary(&inst, dec)
	case x86.Xor:
		inst.Opcode = OpXor
		liftBinary(&inst, dec)
	case x86.Not:
		inst.Opcode = OpNot
		if dec.OperandCount > 0 {
			inst.Dest = liftOperand(dec.Operands[0])
		}
	case x86.Shl_:
		inst.Opcode = OpShl
		liftBinary(&inst, dec)
	case x86.Shr_:
		inst.Opcode = OpShr
		liftBinary(&inst, dec)
	case x86.Sar_:
		inst.Opcode = OpSar
		liftBinary(&inst, dec)
	case x86.Cmp:
		inst.Opcode = OpCmp
		liftBinary(&inst, dec)
	case x86.Test:
		inst.Opcode = OpTest
		liftBinary(&inst, dec)
	case x86.Jmp, x86.JmpShort:
		inst.Opcode = OpJmp
		inst.Dest = liftBranchTarget(dec)
	case x86.Jcc, x86.JccNear, x86.Loop:
		inst.Opcode = OpJcc
		inst.Condition = dec.Condition
		inst.Dest = liftBranchTarget(dec)
	case x86.Call:
		inst.Opcode = OpCall
		inst.Dest = liftBranchTarget(dec)
	case x86.Ret:
		inst.Opcode = OpRet
	case x86.InImm:
		inst.Opcode = OpPortIn
		inst.Dest = liftOperand(dec.Operands[0])
		inst.Port = uint16(dec.Operands[1].Imm)
	case x86.InDX:
		inst.Opcode = OpPortIn
		inst.Dest = liftOperand(dec.Operands[0])
		inst.PortFromDX = true
	case x86.OutImm:
		inst.Opcode = OpPortOut
		inst.Src1 = liftOperand(dec.Operands[1])
		inst.Port = uint16(dec.Operands[0].Imm)
	case x86.OutDX:
		inst.Opcode = OpPortOut
		inst.Src1 = liftOperand(dec.Operands[1])
		inst.PortFromDX = true
	case x86.Cli:
		inst.Opcode = OpCli
	case x86.Sti:
		inst.Opcode = OpSti
	case x86.Hlt:
		inst.Opcode = OpHlt
	default:
		inst.Opcode = OpNop
	}

	return inst
}

func liftBinary(inst *Instruction, dec x86.Decoded) {
	if dec.OperandCount > 0 {
		inst.Dest = liftOperand(dec.Operands[0])
	}
	if dec.OperandCount > 1 {
		inst.Src1 = liftOperand(dec.Operands[1])
	}
}

func liftBranchTarget(dec x86.Decoded) Value {
	if target, ok := resolveRelTarget(dec); ok {
		return Value{Kind: ValAbs, Imm: int64(target)}
	}
	if dec.OperandCount == 0 {
		return Value{Kind: ValNone}
	}
	return liftOperand(dec.Operands[0])
}

func liftOperand(op x86.Operand) Value {
	switch op.Kind {
	case x86.OperandReg:
		return Value{Kind: ValReg, Reg: op.Reg}
	case x86.OperandImm:
		return Value{Kind: ValImm, Imm: op.Imm}
	case x86.OperandMem:
		return Value{Kind: ValMem, Base: op.Base, Index: op.Index, Scale: op.Scale, Disp: op.Disp}
	case x86.OperandRel:
		return Value{Kind: ValImm, Imm: op.Imm}
	default:
		return Value{Kind: ValNone}
	}
}

func operandSize(dec x86.Decoded) int {
	if dec.OperandCount == 0 {
		return 0
	}
	return dec.Operands[0].Size
}

// summarizePortIO walks every instruction in every block, building the
// deduplicated sorted PortsRead/PortsWritten sequences and the
// HasPortIO/UsesDXRegisterPort flags.
func summarizePortIO(fn *Function) {
	readSet := map[uint16]bool{}
	writeSet := map[uint16]bool{}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch inst.Opcode {
			case OpPortIn:
				if inst.PortFromDX {
					fn.UsesDXRegisterPort = true
				} else {
					readSet[inst.Port] = true
				}
			case OpPortOut:
				if inst.PortFromDX {
					fn.UsesDXRegisterPort = true
				} else {
					writeSet[inst.Port] = true
				}
			}
		}
	}
	fn.PortsRead = sortedKeys(readSet)
	fn.PortsWritten = sortedKeys(writeSet)
	fn.HasPortIO = len(fn.PortsRead) > 0 || len(fn.PortsWritten) > 0 || fn.UsesDXRegisterPort
}

func sortedKeys(m map[uint16]bool) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
