// Package divemit generates standalone machine code for floored signed
// 64-bit division on the three target architectures a lifted driver's
// register words might need to run on: x86-64, ARM64, and RV64. Each
// Emit* function writes a leaf routine directly to an io.ByteWriter: the
// caller names which registers hold the dividend and divisor, and the
// routine leaves its result in those same registers before returning.
//
// Native integer division on all three architectures truncates toward
// zero. Emit always performs that hardware division first, then applies
// the floor correction: when the remainder is non-zero and the operands'
// signs differ, the quotient is decremented and the divisor is added back
// into the remainder, producing floored (Euclidean-adjacent) results
// instead of truncated ones.
package divemit

// DivForm selects which of the division results the emitted routine
// leaves in its output registers.
type DivForm int

const (
	// DivQuotient leaves the floored quotient in the first argument register.
	DivQuotient DivForm = iota
	// DivRemainder leaves the floor-corrected remainder in the first argument register.
	DivRemainder
	// DivBoth leaves the quotient in the first argument register and the
	// remainder in the second.
	DivBoth
)
