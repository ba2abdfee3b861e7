package divemit

import "io"

// RV64 register numbers used for scratch selection (argument/return
// registers a0-a7 are 10-17; t0-t6 are 5-7 and 28-31; ra is 1).
const (
	rvZero = 0
	rvRA   = 1
)

func encRType(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return opcode | (rd << 7) | (funct3 << 12) | (rs1 << 15) | (rs2 << 20) | (funct7 << 25)
}

func encDIV(rd, rs1, rs2 uint32) uint32     { return encRType(0x33, rd, 4, rs1, rs2, 1) }
func encREM(rd, rs1, rs2 uint32) uint32     { return encRType(0x33, rd, 6, rs1, rs2, 1) }
func encXOR(rd, rs1, rs2 uint32) uint32     { return encRType(0x33, rd, 4, rs1, rs2, 0) }
func encADDReg(rd, rs1, rs2 uint32) uint32  { return encRType(0x33, rd, 0, rs1, rs2, 0) }

// encSRLI64 encodes SRLI rd, rs1, shamt for RV64 (6-bit shift amount).
func encSRLI64(rd, rs1, shamt uint32) uint32 {
	return 0x13 | (rd << 7) | (5 << 12) | (rs1 << 15) | (shamt << 20)
}

// encADDI encodes ADDI rd, rs1, imm (imm is a signed 12-bit immediate).
func encADDI(rd, rs1 uint32, imm int32) uint32 {
	return 0x13 | (rd << 7) | (rs1 << 15) | ((uint32(imm) & 0xFFF) << 20)
}

// encMV encodes the MV rd, rs pseudo-instruction as ADDI rd, rs, 0.
func encMV(rd, rs uint32) uint32 { return encADDI(rd, rs, 0) }

// encBEQ encodes BEQ rs1, rs2 with a signed byte offset from this
// instruction to the target, per the RISC-V B-type immediate layout.
func encBEQ(rs1, rs2 uint32, byteOffset int32) uint32 {
	imm := uint32(byteOffset)
	bit12 := (imm >> 12) & 1
	bit11 := (imm >> 11) & 1
	bits10_5 := (imm >> 5) & 0x3F
	bits4_1 := (imm >> 1) & 0xF
	return 0x63 | (bit11 << 7) | (bits4_1 << 8) | (rs1 << 15) | (rs2 << 20) | (bits10_5 << 25) | (bit12 << 31)
}

// encJALRRet encodes the RET pseudo-instruction as JALR x0, ra, 0.
func encJALRRet() uint32 {
	return 0x67 | (rvRA << 15)
}

// EmitRV64Div writes an RV64 routine computing floored signed division of
// dividendReg by divisorReg, leaving the result in dividendReg (DivQuotient
// or DivRemainder) or in dividendReg and divisorReg (DivBoth). Three scratch
// registers disjoint from both operands are clobbered.
//
// Grounded on divRISCVRegByReg's DIV encoding; REM and the floor-correction
// block (XOR/SRLI sign check, then ADDI/ADD) have no teacher counterpart
// and are built the same way divRISCVRegByImm built on top of divRISCVRegByReg:
// a direct R-type/I-type encoding using the same funct3/funct7 field layout.
func EmitRV64Div(w io.ByteWriter, dividendReg, divisorReg int, form DivForm) error {
	quot, rem := pickRV64Scratch(dividendReg, divisorReg)
	d, s := uint32(dividendReg), uint32(divisorReg)

	var insts []uint32
	insts = append(insts, encDIV(quot, d, s))
	insts = append(insts, encREM(rem, d, s))

	beq1 := len(insts)
	insts = append(insts, 0) // beq rem, zero, <patched>

	sg := uint32(pickRV64Extra(dividendReg, divisorReg, int(quot), int(rem)))
	insts = append(insts, encXOR(sg, d, s))
	insts = append(insts, encSRLI64(sg, sg, 63))

	beq2 := len(insts)
	insts = append(insts, 0) // beq sg, zero, <patched>

	insts = append(insts, encADDI(quot, quot, -1))
	insts = append(insts, encADDReg(rem, rem, s))

	skip := len(insts)
	insts[beq1] = encBEQ(rem, rvZero, int32(skip-beq1)*4)
	insts[beq2] = encBEQ(sg, rvZero, int32(skip-beq2)*4)

	switch form {
	case DivQuotient:
		insts = append(insts, encMV(d, quot))
	case DivRemainder:
		insts = append(insts, encMV(d, rem))
	case DivBoth:
		insts = append(insts, encMV(d, quot))
		insts = append(insts, encMV(s, rem))
	}
	insts = append(insts, encJALRRet())

	for _, instr := range insts {
		if err := writeU32LE(w, instr); err != nil {
			return err
		}
	}
	return nil
}

// pickRV64Scratch picks two RV64 registers disjoint from used, preferring
// t1/t2 (x6/x7, caller-saved temporaries).
func pickRV64Scratch(used ...int) (quot, rem uint32) {
	pool := []uint32{6, 7, 28, 29}
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
	return 6, 7
}

func pickRV64Extra(used ...int) int {
	pool := []int{28, 29, 30, 31}
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
	return 31
}
