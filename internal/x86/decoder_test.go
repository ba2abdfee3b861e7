package x86_test

import (
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/x86"
)

func TestDecodeInALImm8(t *testing.T) {
	code := []byte{0xE4, 0x60}
	dec, n := x86.DecodeOne(code, 0, 0x1000)
	if n != 2 {
		t.Fatalf("bytes consumed = %d, want 2", n)
	}
	if dec.Instruction != x86.InImm {
		t.Fatalf("instruction = %v, want InImm", dec.Instruction)
	}
	if dec.OperandCount != 2 {
		t.Fatalf("operand count = %d, want 2", dec.OperandCount)
	}
	if dec.Operands[0].Kind != x86.OperandReg || dec.Operands[0].Size != 1 {
		t.Errorf("operand 0 = %+v, want accumulator reg size 1", dec.Operands[0])
	}
	if dec.Operands[1].Kind != x86.OperandImm || dec.Operands[1].Size != 1 || dec.Operands[1].Imm != 0x60 {
		t.Errorf("operand 1 = %+v, want imm8 0x60", dec.Operands[1])
	}
	if dec.Length != 2 {
		t.Errorf("Length = %d, want 2", dec.Length)
	}
}

func TestDecodeOutDX(t *testing.T) {
	dec, n := x86.DecodeOne([]byte{0xEE}, 0, 0x2000)
	if n != 1 {
		t.Fatalf("bytes consumed = %d, want 1", n)
	}
	if dec.Instruction != x86.OutDX {
		t.Fatalf("instruction = %v, want OutDX", dec.Instruction)
	}
}

func TestDecodeRelativeBranchTargets(t *testing.T) {
	// JMP short +5 at address 0x1000, length 2 -> target 0x1007
	dec, n := x86.DecodeOne([]byte{0xEB, 0x05}, 0, 0x1000)
	if n != 2 {
		t.Fatalf("bytes consumed = %d, want 2", n)
	}
	target := dec.Address + uint64(dec.Length) + uint64(int64(dec.Operands[0].Imm))
	if target != 0x1007 {
		t.Errorf("resolved target = 0x%x, want 0x1007", target)
	}
}

func TestDecodeRetNoOperands(t *testing.T) {
	dec, n := x86.DecodeOne([]byte{0xC3}, 0, 0)
	if n != 1 || dec.Instruction != x86.Ret || dec.OperandCount != 0 {
		t.Fatalf("decode(RET) = %+v, n=%d", dec, n)
	}
}

func TestDecodeEndOfBuffer(t *testing.T) {
	if _, n := x86.DecodeOne(nil, 0, 0); n != 0 {
		t.Errorf("DecodeOne on empty input returned n=%d, want 0", n)
	}
	if _, n := x86.DecodeOne([]byte{0x00}, 5, 0); n != 0 {
		t.Errorf("DecodeOne past end of buffer returned n=%d, want 0", n)
	}
}

func TestDecodeTruncatedInstructionStillConsumesABytes(t *testing.T) {
	// 0x81 (Group 1, r/m32, imm32) with a ModR/M but no imm32 bytes.
	dec, n := x86.DecodeOne([]byte{0x81, 0xC0}, 0, 0)
	if n <= 0 {
		t.Fatalf("truncated decode must still make progress, got n=%d", n)
	}
	if dec.Instruction != x86.Unknown {
		t.Errorf("truncated decode = %v, want Unknown", dec.Instruction)
	}
}

func TestDecodeIdempotence(t *testing.T) {
	code := []byte{0x8B, 0x45, 0x08, 0xC3} // MOV EAX, [EBP+8]; RET
	dec1, n1 := x86.DecodeOne(code, 0, 0x4000)
	dec2, n2 := x86.DecodeOne(code[:n1], 0, 0x4000)
	if n1 != n2 || dec1.Instruction != dec2.Instruction {
		t.Fatalf("re-decoding the emitted byte length diverged: %+v vs %+v", dec1, dec2)
	}
}

func TestDecodeRange(t *testing.T) {
	code := []byte{0x90, 0x90, 0xC3} // NOP, NOP, RET
	decs := x86.DecodeRange(code, 0, 0x8000)
	if len(decs) != 3 {
		t.Fatalf("decoded %d instructions, want 3", len(decs))
	}
	if decs[0].Instruction != x86.Nop || decs[2].Instruction != x86.Ret {
		t.Fatalf("decoded sequence = %+v", decs)
	}
	if decs[1].Address != 0x8001 {
		t.Errorf("second instruction address = 0x%x, want 0x8001", decs[1].Address)
	}
}

func TestDecodeGroup1ShortForm(t *testing.T) {
	// 83 F8 00 -> CMP EAX, 0
	dec, n := x86.DecodeOne([]byte{0x83, 0xF8, 0x00}, 0, 0)
	if n != 3 {
		t.Fatalf("bytes consumed = %d, want 3", n)
	}
	if dec.Instruction != x86.Cmp {
		t.Fatalf("instruction = %v, want Cmp", dec.Instruction)
	}
	if dec.Operands[0].Kind != x86.OperandReg || dec.Operands[0].Reg != 0 {
		t.Errorf("operand 0 = %+v, want EAX", dec.Operands[0])
	}
}

func TestDecodeShortJccCondition(t *testing.T) {
	dec, _ := x86.DecodeOne([]byte{0x74, 0x02}, 0, 0) // JE +2
	if dec.Instruction != x86.Jcc || dec.Condition != x86.CondE {
		t.Fatalf("decode(JE) = %+v", dec)
	}
}
