package divemit

import "io"

// x86-64 general-purpose register encodings (REX.[RXB] extends the 3-bit
// field to address r8-r15).
const (
	x86RAX = 0
	x86RDX = 2
	x86RSI = 6
	x86RDI = 7
	x86R8  = 8
	x86R9  = 9
	x86R10 = 10
	x86R11 = 11
)

type x86asm struct {
	w   io.ByteWriter
	err error
}

func (a *x86asm) bytes(bs ...byte) {
	if a.err != nil {
		return
	}
	for _, b := range bs {
		if a.err = a.w.WriteByte(b); a.err != nil {
			return
		}
	}
}

// rex builds a REX prefix for a 64-bit reg-reg or reg-r/m operation. r is
// true when the reg field addresses r8-r15, b when the rm/base field does.
func rex(r, b bool) byte {
	out := byte(0x48) // REX.W, always set: every op here is 64-bit
	if r {
		out |= 0x04
	}
	if b {
		out |= 0x01
	}
	return out
}

func modRM(mod, reg, rm int) byte {
	return byte(mod<<6) | byte((reg&7)<<3) | byte(rm&7)
}

// movRR emits MOV dst, src (both 64-bit general registers).
func (a *x86asm) movRR(dst, src int) {
	if dst == src {
		return
	}
	a.bytes(rex(src >= 8, dst >= 8), 0x89, modRM(3, src, dst))
}

func (a *x86asm) cqo() { a.bytes(0x48, 0x99) }

// idivReg emits IDIV r/m64 (opcode 0xF7 /7): RDX:RAX / reg -> quotient RAX, remainder RDX.
func (a *x86asm) idivReg(reg int) {
	a.bytes(rex(false, reg >= 8), 0xF7, modRM(3, 7, reg))
}

func (a *x86asm) testRR(a1, a2 int) {
	a.bytes(rex(a1 >= 8, a2 >= 8), 0x85, modRM(3, a1, a2))
}

func (a *x86asm) xorRR(dst, src int) {
	a.bytes(rex(src >= 8, dst >= 8), 0x31, modRM(3, src, dst))
}

func (a *x86asm) shrImm8(reg int, imm8 byte) {
	a.bytes(rex(false, reg >= 8), 0xC1, modRM(3, 5, reg), imm8)
}

func (a *x86asm) decReg(reg int) {
	a.bytes(rex(false, reg >= 8), 0xFF, modRM(3, 1, reg))
}

func (a *x86asm) addRR(dst, src int) {
	a.bytes(rex(src >= 8, dst >= 8), 0x01, modRM(3, src, dst))
}

func (a *x86asm) jz(rel8 byte) { a.bytes(0x74, rel8) }

func (a *x86asm) ret() { a.bytes(0xC3) }

// EmitX86Div writes an x86-64 routine computing floored signed division of
// dividendReg by divisorReg, leaving the result in dividendReg (DivQuotient
// or DivRemainder) or in dividendReg and divisorReg (DivBoth). RAX, RDX, and
// one scratch register disjoint from both operands are clobbered.
//
// Grounded on divX86RegByReg's REX-prefixed CQO/IDIV sequence, with a
// floor-correction block inserted before the result is moved out: if the
// remainder is non-zero and the operands' signs differ, the quotient is
// decremented and the divisor added back into the remainder.
//
// divisorReg must not be RAX or RDX: IDIV clobbers both as the dividend
// pair, so either choice would divide by a value IDIV has already
// overwritten. Callers that need to divide by RAX or RDX must copy the
// divisor into another register first.
func EmitX86Div(w io.ByteWriter, dividendReg, divisorReg int, form DivForm) error {
	scratch := pickScratch(dividendReg, divisorReg)
	// Forward jumps need their displacement patched once the length of the
	// correction block is known, which an io.ByteWriter's streaming
	// interface cannot do after the fact — so the routine is assembled into
	// an in-memory buffer first and flushed to w in one pass.
	return assembleX86(w, dividendReg, divisorReg, scratch, form)
}

func pickScratch(used ...int) int {
	for _, candidate := range []int{x86R11, x86R10, x86R9, x86R8} {
		clash := false
		for _, u := range used {
			if u == candidate {
				clash = true
				break
			}
		}
		if !clash {
			return candidate
		}
	}
	return x86R11
}

// assembleX86 builds the full routine in memory so the two forward jz
// displacements can be patched, then writes it to w in one pass.
func assembleX86(w io.ByteWriter, dividendReg, divisorReg, scratch int, form DivForm) error {
	var buf buffer
	a := &x86asm{w: &buf}

	a.movRR(x86RAX, dividendReg)
	a.cqo()
	a.idivReg(divisorReg)

	a.testRR(x86RDX, x86RDX)
	jz1 := len(buf)
	a.jz(0) // patched below once the skip target is known

	a.movRR(scratch, dividendReg)
	a.xorRR(scratch, divisorReg)
	a.shrImm8(scratch, 63)
	a.testRR(scratch, scratch)
	jz2 := len(buf)
	a.jz(0) // patched below

	a.decReg(x86RAX)
	a.addRR(x86RDX, divisorReg)

	skip := len(buf)
	buf[jz1+1] = byte(skip - (jz1 + 2))
	buf[jz2+1] = byte(skip - (jz2 + 2))

	switch form {
	case DivQuotient:
		a.movRR(dividendReg, x86RAX)
	case DivRemainder:
		a.movRR(dividendReg, x86RDX)
	case DivBoth:
		a.movRR(dividendReg, x86RAX)
		a.movRR(divisorReg, x86RDX)
	}
	a.ret()

	if a.err != nil {
		return a.err
	}
	for _, b := range buf {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// buffer is an in-memory io.ByteWriter used only to allow jump-displacement
// patching before the final routine is written to the caller's writer.
type buffer []byte

func (b *buffer) WriteByte(c byte) error {
	*b = append(*b, c)
	return nil
}
