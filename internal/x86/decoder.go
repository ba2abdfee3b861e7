package x86

// decodeState is a forward-only cursor over the bytes of one text section,
// grounded on the teacher's fetch8/fetch16/fetch32 trio but reading from a
// borrowed byte slice instead of a bus, and reporting short reads instead of
// panicking.
type decodeState struct {
	data []byte
	pos  int
	ok   bool
}

func (d *decodeState) fetch8() byte {
	if d.pos >= len(d.data) {
		d.ok = false
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *decodeState) fetch16() uint16 {
	lo := d.fetch8()
	hi := d.fetch8()
	return uint16(lo) | uint16(hi)<<8
}

func (d *decodeState) fetch32() uint32 {
	b0 := d.fetch8()
	b1 := d.fetch8()
	b2 := d.fetch8()
	b3 := d.fetch8()
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
}

// DecodeOne decodes a single instruction starting at byte offset off within
// data, whose first byte corresponds to address addr. It returns the decoded
// record and the number of bytes consumed; 0 means end-of-buffer or a
// position outside data. DecodeOne never returns a negative or out-of-range
// length, and it never rewinds: every call that has any bytes available
// consumes at least one.
func DecodeOne(data []byte, off int, addr uint64) (Decoded, int) {
	if off < 0 || off >= len(data) {
		return Decoded{}, 0
	}
	d := &decodeState{data: data, pos: off, ok: true}

	var prefixes int
	opSize := 4 // default 32-bit operand size
	for {
		if d.pos >= len(d.data) {
			// Only prefix bytes remained: consume them as a truncated Unknown.
			n := d.pos - off
			return Decoded{Address: addr, Length: n, Instruction: Unknown, Prefixes: prefixes, Condition: CondNone}, n
		}
		b := d.data[d.pos]
		switch b {
		case 0xF0:
			prefixes |= PrefixLock
			d.pos++
			continue
		case 0xF2:
			prefixes |= PrefixRepne
			d.pos++
			continue
		case 0xF3:
			prefixes |= PrefixRep
			d.pos++
			continue
		case 0x66:
			prefixes |= PrefixOpSize
			opSize = 2
			d.pos++
			continue
		case 0x67:
			prefixes |= PrefixAddrSize
			d.pos++
			continue
		case 0x2E, 0x36, 0x3E, 0x26, 0x64, 0x65:
			// Segment override prefixes are recognized but not modeled;
			// §1 excludes most segment-prefix forms from scope.
			d.pos++
			continue
		}
		break
	}

	opcode := d.fetch8()
	if !d.ok {
		return Decoded{}, 0
	}

	dec := Decoded{Address: addr, Prefixes: prefixes, Condition: CondNone}
	decodeOpcode(d, opcode, opSize, &dec)

	if !d.ok {
		// Guarantee progress: an instruction that ran out of bytes mid-decode
		// still consumes at least the opcode byte(s) already read.
		dec.Instruction = Unknown
		dec.OperandCount = 0
	}
	dec.Length = d.pos - off
	if dec.Length <= 0 {
		dec.Length = 1
	}
	return dec, dec.Length
}

// DecodeRange decodes consecutive instructions starting at byte offset off
// within data (whose first byte is at address baseAddr) until the buffer is
// exhausted or decoding stops making progress.
func DecodeRange(data []byte, off int, baseAddr uint64) []Decoded {
	var out []Decoded
	pos := off
	for pos < len(data) {
		addr := baseAddr + uint64(pos-off)
		dec, n := DecodeOne(data, pos, addr)
		if n <= 0 {
			break
		}
		out = append(out, dec)
		pos += n
	}
	return out
}

// byteForm reports whether reg/opcode-row forms are byte-sized (low bit of
// the opcode clear in the ALU/test rows).
func byteForm(opcode byte) bool {
	return opcode&1 == 0
}

func decodeOpcode(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	switch {
	case opcode <= 0x3D && (opcode&0xC0) == 0x00 && aluRow(opcode):
		decodeAluRow(d, opcode, opSize, dec)
	case opcode >= 0x40 && opcode <= 0x4F:
		decodeIncDecReg(d, opcode, dec)
	case opcode >= 0x50 && opcode <= 0x5F:
		decodePushPopReg(d, opcode, dec)
	case opcode == 0x60:
		dec.Instruction = PushAD
	case opcode == 0x61:
		dec.Instruction = PopAD
	case opcode == 0x68:
		dec.Instruction = PushImm
		dec.OperandCount = 1
		dec.Operands[0] = Operand{Kind: OperandImm, Size: opSize, Imm: int64(int32(d.fetch32()))}
	case opcode == 0x6A:
		dec.Instruction = PushImm
		dec.OperandCount = 1
		dec.Operands[0] = Operand{Kind: OperandImm, Size: 1, Imm: int64(int8(d.fetch8()))}
	case opcode >= 0x70 && opcode <= 0x7F:
		decodeShortJcc(d, opcode, dec)
	case opcode >= 0x80 && opcode <= 0x83:
		decodeGroup1(d, opcode, opSize, dec)
	case opcode >= 0x84 && opcode <= 0x8B:
		decodeTestXchgMov(d, opcode, opSize, dec)
	case opcode == 0x8D:
		decodeLea(d, opSize, dec)
	case opcode == 0x90:
		dec.Instruction = Nop
	case opcode == 0x98:
		dec.Instruction = Cbw
	case opcode == 0x99:
		dec.Instruction = Cdq
	case opcode >= 0xA0 && opcode <= 0xA3:
		decodeMovOffs(d, opcode, opSize, dec)
	case opcode == 0xA4 || opcode == 0xA5 || opcode == 0xAA || opcode == 0xAB:
		dec.Instruction = StringOp
		if dec.Prefixes&(PrefixRep|PrefixRepne) == 0 {
			dec.Instruction = Unknown
		}
	case opcode == 0xA8:
		dec.Instruction = Test
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 1, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	case opcode == 0xA9:
		dec.Instruction = Test
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: opSize, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: opSize, Imm: int64(int32(d.fetch32()))}
	case opcode >= 0xB0 && opcode <= 0xB7:
		dec.Instruction = Mov8Imm
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 1, Reg: int(opcode - 0xB0)}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	case opcode >= 0xB8 && opcode <= 0xBF:
		dec.Instruction = MovImm
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: opSize, Reg: int(opcode - 0xB8)}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: opSize, Imm: int64(int32(d.fetch32()))}
	case opcode == 0xC0 || opcode == 0xC1:
		decodeShiftGroup(d, opcode, opSize, dec, true)
	case opcode == 0xC2:
		dec.Instruction = Ret
		dec.OperandCount = 1
		dec.Operands[0] = Operand{Kind: OperandImm, Size: 2, Imm: int64(d.fetch16())}
	case opcode == 0xC3:
		dec.Instruction = Ret
	case opcode == 0xC6 || opcode == 0xC7:
		decodeGroup11MovImm(d, opcode, opSize, dec)
	case opcode == 0xC9:
		dec.Instruction = Leave
	case opcode == 0xCD:
		dec.Instruction = Int
		dec.OperandCount = 1
		dec.Operands[0] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	case opcode >= 0xD0 && opcode <= 0xD3:
		decodeShiftGroup(d, opcode, opSize, dec, false)
	case opcode >= 0xE0 && opcode <= 0xE2:
		dec.Instruction = Loop
		dec.OperandCount = 1
		rel := int8(d.fetch8())
		dec.Operands[0] = Operand{Kind: OperandRel, Size: 1, Imm: int64(rel)}
	case opcode == 0xE4:
		dec.Instruction = InImm
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 1, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	case opcode == 0xE5:
		dec.Instruction = InImm
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: opSize, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	case opcode == 0xE6:
		dec.Instruction = OutImm
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
		dec.Operands[1] = Operand{Kind: OperandReg, Size: 1, Reg: 0}
	case opcode == 0xE7:
		dec.Instruction = OutImm
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
		dec.Operands[1] = Operand{Kind: OperandReg, Size: opSize, Reg: 0}
	case opcode == 0xE8:
		dec.Instruction = Call
		dec.OperandCount = 1
		rel := int32(d.fetch32())
		dec.Operands[0] = Operand{Kind: OperandRel, Size: 4, Imm: int64(rel)}
	case opcode == 0xE9:
		dec.Instruction = Jmp
		dec.OperandCount = 1
		rel := int32(d.fetch32())
		dec.Operands[0] = Operand{Kind: OperandRel, Size: 4, Imm: int64(rel)}
	case opcode == 0xEB:
		dec.Instruction = JmpShort
		dec.OperandCount = 1
		rel := int8(d.fetch8())
		dec.Operands[0] = Operand{Kind: OperandRel, Size: 1, Imm: int64(rel)}
	case opcode == 0xEC:
		dec.Instruction = InDX
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 1, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandReg, Size: 2, Reg: 2} // DX
	case opcode == 0xED:
		dec.Instruction = InDX
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: opSize, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandReg, Size: 2, Reg: 2}
	case opcode == 0xEE:
		dec.Instruction = OutDX
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 2, Reg: 2}
		dec.Operands[1] = Operand{Kind: OperandReg, Size: 1, Reg: 0}
	case opcode == 0xEF:
		dec.Instruction = OutDX
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 2, Reg: 2}
		dec.Operands[1] = Operand{Kind: OperandReg, Size: opSize, Reg: 0}
	case opcode == 0xF4:
		dec.Instruction = Hlt
	case opcode == 0xFA:
		dec.Instruction = Cli
	case opcode == 0xFB:
		dec.Instruction = Sti
	case opcode == 0xFC:
		dec.Instruction = Cld
	case opcode == 0xFD:
		dec.Instruction = Std
	case opcode == 0xF6 || opcode == 0xF7:
		decodeGroup3(d, opcode, opSize, dec)
	case opcode == 0xFE:
		decodeGroup4(d, dec)
	case opcode == 0xFF:
		decodeGroup5(d, opSize, dec)
	case opcode == 0x0F:
		decodeTwoByte(d, opSize, dec)
	default:
		dec.Instruction = Unknown
	}
}

// aluRow reports whether opcode belongs to one of the eight ALU rows
// (00-3D), each spanning 8 opcodes of the form op r/m8,r8 / r/m32,r32 /
// AL,imm8 / eAX,imm32 with two exceptions at 0x0F/0x26/... handled upstream.
func aluRow(opcode byte) bool {
	row := opcode >> 3
	sub := opcode & 7
	return row <= 7 && sub <= 5
}

var aluOps = [8]Inst{Add, Or, Adc, Sbb, And, Sub, Xor, Cmp}

func decodeAluRow(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	row := opcode >> 3
	sub := opcode & 7
	op := aluOps[row]
	dec.Instruction = op
	size := opSize
	if sub == 0 || sub == 2 || sub == 4 {
		size = 1
	}
	switch sub {
	case 0, 1: // op r/m, r
		rm, reg := decodeModRM(d, size)
		dec.OperandCount = 2
		dec.Operands[0] = rm
		dec.Operands[1] = reg
	case 2, 3: // op r, r/m
		rm, reg := decodeModRM(d, size)
		dec.OperandCount = 2
		dec.Operands[0] = reg
		dec.Operands[1] = rm
	case 4: // op AL, imm8
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: 1, Reg: 0}
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	case 5: // op eAX, imm32/16
		dec.OperandCount = 2
		dec.Operands[0] = Operand{Kind: OperandReg, Size: opSize, Reg: 0}
		if opSize == 2 {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 2, Imm: int64(int16(d.fetch16()))}
		} else {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 4, Imm: int64(int32(d.fetch32()))}
		}
	}
}

func decodeIncDecReg(d *decodeState, opcode byte, dec *Decoded) {
	if opcode < 0x48 {
		dec.Instruction = Inc
	} else {
		dec.Instruction = Dec
	}
	dec.OperandCount = 1
	dec.Operands[0] = Operand{Kind: OperandReg, Size: 4, Reg: int(opcode & 7)}
}

func decodePushPopReg(d *decodeState, opcode byte, dec *Decoded) {
	if opcode < 0x58 {
		dec.Instruction = Push
	} else {
		dec.Instruction = Pop
	}
	dec.OperandCount = 1
	dec.Operands[0] = Operand{Kind: OperandReg, Size: 4, Reg: int(opcode & 7)}
}

func decodeShortJcc(d *decodeState, opcode byte, dec *Decoded) {
	dec.Instruction = Jcc
	dec.Condition = Condition(opcode & 0x0F)
	dec.OperandCount = 1
	rel := int8(d.fetch8())
	dec.Operands[0] = Operand{Kind: OperandRel, Size: 1, Imm: int64(rel)}
}

var group1Ops = [8]Inst{Add, Or, Adc, Sbb, And, Sub, Xor, Cmp}

func decodeGroup1(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	size := opSize
	if opcode == 0x80 {
		size = 1
	}
	rm, regField := decodeModRMRaw(d, size)
	dec.Instruction = group1Ops[regField]
	dec.OperandCount = 2
	dec.Operands[0] = rm
	switch opcode {
	case 0x80:
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(int8(d.fetch8()))}
	case 0x81:
		if opSize == 2 {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 2, Imm: int64(int16(d.fetch16()))}
		} else {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 4, Imm: int64(int32(d.fetch32()))}
		}
	case 0x83:
		dec.Operands[1] = Operand{Kind: OperandImm, Size: size, Imm: int64(int8(d.fetch8()))}
	}
}

func decodeTestXchgMov(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	size := opSize
	if byteForm(opcode) {
		size = 1
	}
	switch opcode {
	case 0x84, 0x85:
		rm, reg := decodeModRM(d, size)
		dec.Instruction = Test
		dec.OperandCount = 2
		dec.Operands[0] = rm
		dec.Operands[1] = reg
	case 0x86, 0x87:
		rm, reg := decodeModRM(d, size)
		dec.Instruction = Xchg
		dec.OperandCount = 2
		dec.Operands[0] = rm
		dec.Operands[1] = reg
	case 0x88, 0x89:
		rm, reg := decodeModRM(d, size)
		dec.Instruction = Mov
		dec.OperandCount = 2
		dec.Operands[0] = rm
		dec.Operands[1] = reg
	case 0x8A, 0x8B:
		rm, reg := decodeModRM(d, size)
		dec.Instruction = Mov
		dec.OperandCount = 2
		dec.Operands[0] = reg
		dec.Operands[1] = rm
	}
}

func decodeLea(d *decodeState, opSize int, dec *Decoded) {
	rm, reg := decodeModRM(d, opSize)
	dec.Instruction = Lea
	dec.OperandCount = 2
	dec.Operands[0] = reg
	dec.Operands[1] = rm
}

func decodeMovOffs(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	size := opSize
	if byteForm(opcode) {
		size = 1
	}
	moffs := int64(d.fetch32())
	mem := Operand{Kind: OperandMem, Size: size, Base: -1, Index: -1, Disp: int32(moffs)}
	acc := Operand{Kind: OperandReg, Size: size, Reg: 0}
	dec.Instruction = Mov
	dec.OperandCount = 2
	if opcode == 0xA0 || opcode == 0xA1 {
		dec.Operands[0] = acc
		dec.Operands[1] = mem
	} else {
		dec.Operands[0] = mem
		dec.Operands[1] = acc
	}
}

func decodeGroup11MovImm(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	size := opSize
	if opcode == 0xC6 {
		size = 1
	}
	rm, _ := decodeModRMRaw(d, size)
	dec.Instruction = MovImm
	dec.OperandCount = 2
	dec.Operands[0] = rm
	if opcode == 0xC6 {
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	} else if opSize == 2 {
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 2, Imm: int64(int16(d.fetch16()))}
	} else {
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 4, Imm: int64(int32(d.fetch32()))}
	}
}

// shiftOps maps the ModR/M reg field (0-7) to an instruction for the
// 0xC0-0xC1/0xD0-0xD3 shift group. ROL/ROR/RCL/RCR (0,1,2,3) have no UIR
// counterpart this system lifts and decode as Unknown.
var shiftOps = [8]Inst{Unknown, Unknown, Unknown, Unknown, Shl_, Shr_, Unknown, Sar_}

// decodeShiftGroup decodes the 0xC0/0xC1 (shift by imm8) and 0xD0-0xD3
// (shift by 1 or CL) groups; the sub-opcode in the ModR/M reg field selects
// SHL/SHR/SAR.
func decodeShiftGroup(d *decodeState, opcode byte, opSize int, dec *Decoded, hasImm bool) {
	size := opSize
	if opcode == 0xC0 || opcode == 0xD0 || opcode == 0xD2 {
		size = 1
	}
	rm, regField := decodeModRMRaw(d, size)
	dec.Instruction = shiftOps[regField]
	dec.OperandCount = 2
	dec.Operands[0] = rm
	if hasImm {
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
	} else if opcode == 0xD0 || opcode == 0xD1 {
		dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: 1}
	} else {
		dec.Operands[1] = Operand{Kind: OperandReg, Size: 1, Reg: 1} // CL
	}
}

func decodeGroup3(d *decodeState, opcode byte, opSize int, dec *Decoded) {
	size := opSize
	if opcode == 0xF6 {
		size = 1
	}
	rm, regField := decodeModRMRaw(d, size)
	dec.OperandCount = 1
	dec.Operands[0] = rm
	switch regField {
	case 0, 1:
		dec.Instruction = Test
		dec.OperandCount = 2
		if size == 1 {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 1, Imm: int64(d.fetch8())}
		} else if opSize == 2 {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 2, Imm: int64(int16(d.fetch16()))}
		} else {
			dec.Operands[1] = Operand{Kind: OperandImm, Size: 4, Imm: int64(int32(d.fetch32()))}
		}
	case 2:
		dec.Instruction = Not
	case 3:
		dec.Instruction = Neg
	case 4:
		dec.Instruction = Mul
	case 5:
		dec.Instruction = Imul
	case 6:
		dec.Instruction = Div
	case 7:
		dec.Instruction = Idiv
	}
}

func decodeGroup4(d *decodeState, dec *Decoded) {
	rm, regField := decodeModRMRaw(d, 1)
	dec.OperandCount = 1
	dec.Operands[0] = rm
	if regField == 0 {
		dec.Instruction = Inc
	} else {
		dec.Instruction = Dec
	}
}

func decodeGroup5(d *decodeState, opSize int, dec *Decoded) {
	rm, regField := decodeModRMRaw(d, opSize)
	dec.OperandCount = 1
	dec.Operands[0] = rm
	switch regField {
	case 0:
		dec.Instruction = Inc
	case 1:
		dec.Instruction = Dec
	case 2:
		dec.Instruction = Call
	case 3:
		dec.Instruction = Call
	case 4:
		dec.Instruction = Jmp
	case 5:
		dec.Instruction = Jmp
	case 6:
		dec.Instruction = Push
	default:
		dec.Instruction = Unknown
	}
}

func decodeTwoByte(d *decodeState, opSize int, dec *Decoded) {
	b2 := d.fetch8()
	switch {
	case b2 >= 0x80 && b2 <= 0x8F:
		dec.Instruction = JccNear
		dec.Condition = Condition(b2 & 0x0F)
		dec.OperandCount = 1
		rel := int32(d.fetch32())
		dec.Operands[0] = Operand{Kind: OperandRel, Size: 4, Imm: int64(rel)}
	case b2 >= 0x90 && b2 <= 0x9F:
		rm, _ := decodeModRMRaw(d, 1)
		dec.Instruction = SetCC
		dec.Condition = Condition(b2 & 0x0F)
		dec.OperandCount = 1
		dec.Operands[0] = rm
	case b2 == 0xAF:
		rm, reg := decodeModRM(d, opSize)
		dec.Instruction = Imul
		dec.OperandCount = 2
		dec.Operands[0] = reg
		dec.Operands[1] = rm
	case b2 == 0xB6 || b2 == 0xB7:
		size := 1
		if b2 == 0xB7 {
			size = 2
		}
		rm, reg := decodeModRMSized(d, size, opSize)
		dec.Instruction = Movzx
		dec.OperandCount = 2
		dec.Operands[0] = reg
		dec.Operands[1] = rm
	case b2 == 0xBE || b2 == 0xBF:
		size := 1
		if b2 == 0xBF {
			size = 2
		}
		rm, reg := decodeModRMSized(d, size, opSize)
		dec.Instruction = Movsx
		dec.OperandCount = 2
		dec.Operands[0] = reg
		dec.Operands[1] = rm
	default:
		dec.Instruction = Unknown
	}
}

// decodeModRM decodes a ModR/M byte (and trailing SIB/displacement) where
// both the r/m operand and the reg-field operand share the same size.
func decodeModRM(d *decodeState, size int) (rm, reg Operand) {
	rm, regField := decodeModRMRaw(d, size)
	reg = Operand{Kind: OperandReg, Size: size, Reg: int(regField)}
	return rm, reg
}

// decodeModRMSized decodes a ModR/M where the r/m operand has rmSize but the
// reg-field register operand has regSize (used by MOVZX/MOVSX).
func decodeModRMSized(d *decodeState, rmSize, regSize int) (rm, reg Operand) {
	rm, regField := decodeModRMRaw(d, rmSize)
	reg = Operand{Kind: OperandReg, Size: regSize, Reg: int(regField)}
	return rm, reg
}

// decodeModRMRaw decodes the ModR/M byte and any SIB/displacement bytes,
// returning the r/m operand and the raw 3-bit reg field (either a register
// operand index or a group sub-opcode, depending on the caller).
func decodeModRMRaw(d *decodeState, size int) (Operand, byte) {
	modrm := d.fetch8()
	mod := modrm >> 6 & 3
	regField := modrm >> 3 & 7
	rmField := modrm & 7

	if mod == 3 {
		return Operand{Kind: OperandReg, Size: size, Reg: int(rmField)}, regField
	}

	base := int(rmField)
	index := -1
	scale := 1
	var disp int32

	if rmField == 4 {
		sib := d.fetch8()
		scaleField := sib >> 6 & 3
		indexField := sib >> 3 & 7
		baseField := sib & 7
		scale = 1 << scaleField
		if indexField != 4 {
			index = int(indexField)
		}
		base = int(baseField)
		if baseField == 5 && mod == 0 {
			disp = int32(d.fetch32())
			base = -1
		}
	} else if rmField == 5 && mod == 0 {
		disp = int32(d.fetch32())
		base = -1
	}

	switch mod {
	case 1:
		disp = int32(int8(d.fetch8()))
	case 2:
		disp = int32(d.fetch32())
	}

	return Operand{Kind: OperandMem, Size: size, Base: base, Index: index, Scale: scale, Disp: disp}, regField
}
