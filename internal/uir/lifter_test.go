package uir_test

import (
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/uir"
	"github.com/jeweledtech/bare-metal-forth/internal/x86"
)

func TestLiftPortIOSequence(t *testing.T) {
	code := []byte{0xE4, 0x60, 0xE6, 0x61, 0xC3} // IN AL,0x60; OUT 0x61,AL; RET
	decoded := x86.DecodeRange(code, 0, 0x1000)
	fn := uir.Lift(decoded, 0x1000)

	if !fn.HasPortIO {
		t.Fatal("HasPortIO = false, want true")
	}
	if len(fn.PortsRead) != 1 || fn.PortsRead[0] != 0x60 {
		t.Errorf("PortsRead = %v, want [0x60]", fn.PortsRead)
	}
	if len(fn.PortsWritten) != 1 || fn.PortsWritten[0] != 0x61 {
		t.Errorf("PortsWritten = %v, want [0x61]", fn.PortsWritten)
	}

	var insts []uir.Instruction
	for _, b := range fn.Blocks {
		insts = append(insts, b.Instructions...)
	}
	if len(insts) != 3 {
		t.Fatalf("instruction count = %d, want 3", len(insts))
	}
	if insts[0].Opcode != uir.OpPortIn || insts[0].Port != 0x60 {
		t.Errorf("instruction 0 = %+v, want PORT_IN port 0x60", insts[0])
	}
	if insts[1].Opcode != uir.OpPortOut || insts[1].Port != 0x61 {
		t.Errorf("instruction 1 = %+v, want PORT_OUT port 0x61", insts[1])
	}
	if insts[2].Opcode != uir.OpRet {
		t.Errorf("instruction 2 = %+v, want RET", insts[2])
	}
}

func TestLiftJccSplitsBlocks(t *testing.T) {
	code := []byte{0x83, 0xF8, 0x00, 0x74, 0x01, 0x90, 0x90, 0xC3}
	decoded := x86.DecodeRange(code, 0, 0)
	fn := uir.Lift(decoded, 0)

	if len(fn.Blocks) < 2 {
		t.Fatalf("block count = %d, want >= 2", len(fn.Blocks))
	}
	if !fn.Blocks[0].IsEntryBlock {
		t.Error("first block should be marked as the entry block")
	}
}

func TestLiftUnconditionalJmpClearsFallThrough(t *testing.T) {
	// JMP +0 (to the next instruction, the RET, which starts its own block).
	code := []byte{0xEB, 0x00, 0xC3}
	decoded := x86.DecodeRange(code, 0, 0x2000)
	fn := uir.Lift(decoded, 0x2000)

	for _, b := range fn.Blocks {
		last := b.Instructions[len(b.Instructions)-1]
		if last.Opcode == uir.OpJmp && b.FallThrough != -1 {
			t.Errorf("block ending in JMP has FallThrough = %d, want -1", b.FallThrough)
		}
	}
}

func TestLiftRetHasNoFallThrough(t *testing.T) {
	decoded := x86.DecodeRange([]byte{0x90, 0xC3}, 0, 0)
	fn := uir.Lift(decoded, 0)
	last := fn.Blocks[len(fn.Blocks)-1]
	lastInst := last.Instructions[len(last.Instructions)-1]
	if lastInst.Opcode != uir.OpRet {
		t.Fatalf("last instruction = %+v, want RET", lastInst)
	}
	if last.FallThrough != -1 {
		t.Errorf("block ending in RET has FallThrough = %d, want -1", last.FallThrough)
	}
}

func TestLiftMovSplitsByOperandShape(t *testing.T) {
	// 8B 45 08 -> MOV EAX, [EBP+8] (LOAD); 89 45 0C -> MOV [EBP+12], EAX (STORE)
	code := []byte{0x8B, 0x45, 0x08, 0x89, 0x45, 0x0C, 0xC3}
	decoded := x86.DecodeRange(code, 0, 0)
	fn := uir.Lift(decoded, 0)

	var insts []uir.Instruction
	for _, b := range fn.Blocks {
		insts = append(insts, b.Instructions...)
	}
	if len(insts) < 2 {
		t.Fatalf("instruction count = %d, want >= 2", len(insts))
	}
	if insts[0].Opcode != uir.OpLoad {
		t.Errorf("instruction 0 = %+v, want LOAD", insts[0])
	}
	if insts[1].Opcode != uir.OpStore {
		t.Errorf("instruction 1 = %+v, want STORE", insts[1])
	}
}

func TestLiftUnknownBecomesNop(t *testing.T) {
	// 0xF1 is an unassigned/reserved one-byte opcode.
	decoded := x86.DecodeRange([]byte{0xF1, 0xC3}, 0, 0)
	fn := uir.Lift(decoded, 0)
	first := fn.Blocks[0].Instructions[0]
	if first.Opcode != uir.OpNop {
		t.Errorf("unknown decode lifted to %+v, want NOP", first)
	}
}

func TestLiftUnresolvedBranchLeavesTargetUnset(t *testing.T) {
	// FF E0 -> JMP EAX (indirect, unresolved target)
	decoded := x86.DecodeRange([]byte{0xFF, 0xE0}, 0, 0)
	fn := uir.Lift(decoded, 0)
	b := fn.Blocks[0]
	if b.BranchTarget != -1 {
		t.Errorf("BranchTarget = %d, want -1 for unresolved indirect jump", b.BranchTarget)
	}
}
