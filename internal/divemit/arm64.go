package divemit

import "io"

func encSDIV(rd, rn, rm uint32) uint32 {
	return 0x9AC00C00 | (rm << 16) | (rn << 5) | rd
}

func encMSUB(rd, rn, rm, ra uint32) uint32 {
	return 0x9B008000 | (rm << 16) | (ra << 10) | (rn << 5) | rd
}

func encEOR(rd, rn, rm uint32) uint32 {
	return 0xCA000000 | (rm << 16) | (rn << 5) | rd
}

// encLSR63 encodes LSR Xd, Xn, #63 as its UBFM alias.
func encLSR63(rd, rn uint32) uint32 {
	return 0xD3400000 | (63 << 16) | (63 << 10) | (rn << 5) | rd
}

func encSUBImm(rd, rn, imm uint32) uint32 {
	return 0xD1000000 | (imm << 10) | (rn << 5) | rd
}

func encADD(rd, rn, rm uint32) uint32 {
	return 0x8B000000 | (rm << 16) | (rn << 5) | rd
}

// encMOV encodes MOV Xd, Xn as its ORR Xd, XZR, Xn alias.
func encMOV(rd, rn uint32) uint32 {
	return 0xAA0003E0 | (rn << 16) | rd
}

// encCBZ encodes CBZ Xt with wordOffset counted in instructions (not
// bytes) from this instruction to the target.
func encCBZ(rt uint32, wordOffset int32) uint32 {
	return 0xB4000000 | ((uint32(wordOffset) & 0x7FFFF) << 5) | rt
}

const encRET uint32 = 0xD65F03C0

// EmitARM64Div writes an ARM64 routine computing floored signed division of
// dividendReg by divisorReg, leaving the result in dividendReg (DivQuotient
// or DivRemainder) or in dividendReg and divisorReg (DivBoth). Three scratch
// registers disjoint from both operands are clobbered.
//
// Grounded on divARM64RegByReg's single-instruction SDIV, extended with an
// MSUB to recover the truncated remainder and the same floor-correction
// condition used on x86-64.
func EmitARM64Div(w io.ByteWriter, dividendReg, divisorReg int, form DivForm) error {
	quot, rem := pickARM64Scratch(dividendReg, divisorReg)
	d, s := uint32(dividendReg), uint32(divisorReg)

	var insts []uint32
	insts = append(insts, encSDIV(quot, d, s))      // sdiv quot, dividend, divisor
	insts = append(insts, encMSUB(rem, quot, s, d))  // rem = dividend - quot*divisor

	cbz1 := len(insts)
	insts = append(insts, 0) // cbz rem, <patched>

	scratch2 := pickARM64Extra(dividendReg, divisorReg, int(quot), int(rem))
	sg := uint32(scratch2)
	insts = append(insts, encEOR(sg, d, s)) // sg = dividend ^ divisor
	insts = append(insts, encLSR63(sg, sg)) // sg = sign-differs bit

	cbz2 := len(insts)
	insts = append(insts, 0) // cbz sg, <patched>

	insts = append(insts, encSUBImm(quot, quot, 1)) // quot -= 1
	insts = append(insts, encADD(rem, rem, s))       // rem += divisor

	skip := len(insts)
	insts[cbz1] = encCBZ(rem, int32(skip-cbz1))
	insts[cbz2] = encCBZ(sg, int32(skip-cbz2))

	switch form {
	case DivQuotient:
		insts = append(insts, encMOV(d, quot))
	case DivRemainder:
		insts = append(insts, encMOV(d, rem))
	case DivBoth:
		insts = append(insts, encMOV(d, quot))
		insts = append(insts, encMOV(s, rem))
	}
	insts = append(insts, encRET)

	for _, instr := range insts {
		if err := writeU32LE(w, instr); err != nil {
			return err
		}
	}
	return nil
}

func writeU32LE(w io.ByteWriter, v uint32) error {
	for i := 0; i < 4; i++ {
		if err := w.WriteByte(byte(v >> (8 * i))); err != nil {
			return err
		}
	}
	return nil
}

// pickARM64Scratch picks two ARM64 registers disjoint from used, preferring
// X9/X10 (caller-saved, not argument registers).
func pickARM64Scratch(used ...int) (quot, rem uint32) {
	pool := []uint32{9, 10, 11, 12}
	var picked []uint32
	for _, candidate := range pool {
		clash := false
		for _, u := range used {
			if uint32(u) == candidate {
				clash = true
				break
			}
		}
		if !clash {
			picked = append(picked, candidate)
			if len(picked) == 2 {
				return picked[0], picked[1]
			}
		}
	}
	return 9, 10
}

func pickARM64Extra(used ...int) int {
	pool := []int{11, 12, 13, 14}
	for _, candidate := range pool {
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
	return 13
}
