package divemit

import (
	"encoding/binary"
	"testing"
)

func TestEmitX86DivEndsInRet(t *testing.T) {
	for _, form := range []DivForm{DivQuotient, DivRemainder, DivBoth} {
		var buf buffer
		if err := EmitX86Div(&buf, x86RDI, x86RSI, form); err != nil {
			t.Fatalf("form %v: %v", form, err)
		}
		if len(buf) == 0 {
			t.Fatalf("form %v: empty output", form)
		}
		if buf[len(buf)-1] != 0xC3 {
			t.Errorf("form %v: last byte = %#x, want 0xC3 (ret)", form, buf[len(buf)-1])
		}
	}
}

func TestEmitX86DivBothIsLongerThanSingleResult(t *testing.T) {
	var q, both buffer
	if err := EmitX86Div(&q, x86RDI, x86RSI, DivQuotient); err != nil {
		t.Fatal(err)
	}
	if err := EmitX86Div(&both, x86RDI, x86RSI, DivBoth); err != nil {
		t.Fatal(err)
	}
	if len(both) <= len(q) {
		t.Errorf("DivBoth length %d should exceed DivQuotient length %d (extra mov)", len(both), len(q))
	}
}

func TestEmitX86DivPatchesBothForwardJumps(t *testing.T) {
	var buf buffer
	if err := EmitX86Div(&buf, x86RDI, x86RSI, DivQuotient); err != nil {
		t.Fatal(err)
	}
	count := 0
	for i := 0; i < len(buf)-1; i++ {
		if buf[i] == 0x74 {
			count++
			if buf[i+1] == 0 {
				t.Errorf("jz at offset %d left unpatched (rel8 == 0)", i)
			}
		}
	}
	if count != 2 {
		t.Fatalf("found %d jz opcodes, want 2", count)
	}
}

func TestEmitX86DivAvoidsScratchCollision(t *testing.T) {
	// Divisor deliberately chosen as the emitter's first scratch preference
	// (R11) to exercise pickScratch's fallback.
	var buf buffer
	if err := EmitX86Div(&buf, x86RDI, x86R11, DivQuotient); err != nil {
		t.Fatal(err)
	}
	if len(buf) == 0 || buf[len(buf)-1] != 0xC3 {
		t.Errorf("expected a valid routine ending in ret, got %x", []byte(buf))
	}
}

func TestEmitARM64DivEndsInRet(t *testing.T) {
	var buf buffer
	if err := EmitARM64Div(&buf, 0, 1, DivBoth); err != nil {
		t.Fatal(err)
	}
	if len(buf)%4 != 0 {
		t.Fatalf("length %d not a multiple of 4", len(buf))
	}
	last := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if last != encRET {
		t.Errorf("last instruction = %#x, want RET %#x", last, encRET)
	}
}

func TestEmitARM64DivBothMovesTwoRegisters(t *testing.T) {
	var quot, both buffer
	if err := EmitARM64Div(&quot, 0, 1, DivQuotient); err != nil {
		t.Fatal(err)
	}
	if err := EmitARM64Div(&both, 0, 1, DivBoth); err != nil {
		t.Fatal(err)
	}
	if len(both) != len(quot)+4 {
		t.Errorf("DivBoth should add exactly one extra instruction over DivQuotient: got %d vs %d", len(both), len(quot))
	}
}

func TestEmitRV64DivEndsInRet(t *testing.T) {
	var buf buffer
	if err := EmitRV64Div(&buf, 10, 11, DivRemainder); err != nil {
		t.Fatal(err)
	}
	if len(buf)%4 != 0 {
		t.Fatalf("length %d not a multiple of 4", len(buf))
	}
	last := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if last != encJALRRet() {
		t.Errorf("last instruction = %#x, want RET %#x", last, encJALRRet())
	}
}

func TestEmitRV64DivHasTwoBranches(t *testing.T) {
	var buf buffer
	if err := EmitRV64Div(&buf, 10, 11, DivQuotient); err != nil {
		t.Fatal(err)
	}
	count := 0
	for i := 0; i+4 <= len(buf); i += 4 {
		word := binary.LittleEndian.Uint32(buf[i:])
		if word&0x7F == 0x63 { // BEQ opcode
			count++
		}
	}
	if count != 2 {
		t.Errorf("found %d BEQ instructions, want 2", count)
	}
}
