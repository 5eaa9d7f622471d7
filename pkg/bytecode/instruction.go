package bytecode

import (
	"errors"
	"fmt"
)

// Instruction is one fixed-width 32-bit instruction word.
//
// Field layout, least significant bit first:
//
//	 0..5   OP   6 bits
//	 6..13  A    8 bits
//	14..22  C    9 bits
//	23..31  B    9 bits
//	14..31  Bx  18 bits (B and C combined), sBx = Bx - MaxArgSBx
//
// The layout is part of the binary format and is independent of the host
// word size; words are always written as 4 little-endian bytes.
type Instruction uint32

// Field widths and positions.
const (
	SizeOp = 6
	SizeA  = 8
	SizeB  = 9
	SizeC  = 9
	SizeBx = SizeB + SizeC

	PosOp = 0
	PosA  = PosOp + SizeOp
	PosC  = PosA + SizeA
	PosB  = PosC + SizeC
	PosBx = PosC
)

// Operand limits.
const (
	MaxArgA   = 1<<SizeA - 1
	MaxArgB   = 1<<SizeB - 1
	MaxArgC   = 1<<SizeC - 1
	MaxArgBx  = 1<<SizeBx - 1
	MaxArgSBx = MaxArgBx >> 1
)

// BitRK marks a B or C operand of an RK argument as a constant index.
const BitRK = 1 << (SizeB - 1)

// MaxIndexRK is the largest constant index an RK operand can address.
const MaxIndexRK = BitRK - 1

// RKConstant returns the RK operand value addressing constant idx.
func RKConstant(idx int) int {
	return idx | BitRK
}

// IsRKConstant reports whether an RK operand addresses the constant pool.
func IsRKConstant(x int) bool {
	return x&BitRK != 0
}

// ErrOperandOutOfRange is returned when an operand does not fit its field.
var ErrOperandOutOfRange = errors.New("operand out of range")

func checkField(op Opcode, field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s field %s = %d not in [%d, %d]", ErrOperandOutOfRange, op, field, v, lo, hi)
	}
	return nil
}

func checkMode(op Opcode, want OpMode) error {
	info, ok := GetOpcodeInfo(op)
	if !ok {
		return fmt.Errorf("%w: unknown opcode %d", ErrOperandOutOfRange, uint8(op))
	}
	if info.Mode != want {
		return fmt.Errorf("%w: %s uses %s, not %s", ErrOperandOutOfRange, op, info.Mode, want)
	}
	return nil
}

// EncodeABC packs an iABC instruction.
func EncodeABC(op Opcode, a, b, c int) (Instruction, error) {
	if err := checkMode(op, ModeABC); err != nil {
		return 0, err
	}
	if err := checkField(op, "A", a, 0, MaxArgA); err != nil {
		return 0, err
	}
	if err := checkField(op, "B", b, 0, MaxArgB); err != nil {
		return 0, err
	}
	if err := checkField(op, "C", c, 0, MaxArgC); err != nil {
		return 0, err
	}
	return Instruction(uint32(op)<<PosOp | uint32(a)<<PosA | uint32(b)<<PosB | uint32(c)<<PosC), nil
}

// EncodeABx packs an iABx instruction.
func EncodeABx(op Opcode, a, bx int) (Instruction, error) {
	if err := checkMode(op, ModeABx); err != nil {
		return 0, err
	}
	if err := checkField(op, "A", a, 0, MaxArgA); err != nil {
		return 0, err
	}
	if err := checkField(op, "Bx", bx, 0, MaxArgBx); err != nil {
		return 0, err
	}
	return Instruction(uint32(op)<<PosOp | uint32(a)<<PosA | uint32(bx)<<PosBx), nil
}

// EncodeAsBx packs an iAsBx instruction. sbx is stored in excess-MaxArgSBx form.
func EncodeAsBx(op Opcode, a, sbx int) (Instruction, error) {
	if err := checkMode(op, ModeAsBx); err != nil {
		return 0, err
	}
	if err := checkField(op, "A", a, 0, MaxArgA); err != nil {
		return 0, err
	}
	if err := checkField(op, "sBx", sbx, -MaxArgSBx, MaxArgBx-MaxArgSBx); err != nil {
		return 0, err
	}
	return Instruction(uint32(op)<<PosOp | uint32(a)<<PosA | uint32(sbx+MaxArgSBx)<<PosBx), nil
}

// Encode packs an instruction according to the opcode's addressing mode.
// For iABC opcodes the optional c defaults to 0; iABx and iAsBx opcodes take
// no C operand.
func Encode(op Opcode, a, bOrBx int, c ...int) (Instruction, error) {
	if len(c) > 1 {
		return 0, fmt.Errorf("%w: %s takes at most one C operand, got %d", ErrOperandOutOfRange, op, len(c))
	}
	switch op.Mode() {
	case ModeABC:
		cv := 0
		if len(c) == 1 {
			cv = c[0]
		}
		return EncodeABC(op, a, bOrBx, cv)
	case ModeABx, ModeAsBx:
		if len(c) != 0 {
			return 0, fmt.Errorf("%w: %s has no C field", ErrOperandOutOfRange, op)
		}
		if op.Mode() == ModeABx {
			return EncodeABx(op, a, bOrBx)
		}
		return EncodeAsBx(op, a, bOrBx)
	}
	return 0, fmt.Errorf("%w: unknown opcode %d", ErrOperandOutOfRange, uint8(op))
}

// MustEncode is like Encode but panics on error. It is meant for tables of
// instructions whose operands are known constants.
func MustEncode(op Opcode, a, bOrBx int, c ...int) Instruction {
	i, err := Encode(op, a, bOrBx, c...)
	if err != nil {
		panic(err)
	}
	return i
}

// Op returns the opcode field.
func (i Instruction) Op() Opcode { return Opcode(i >> PosOp & (1<<SizeOp - 1)) }

// A returns the A field.
func (i Instruction) A() int { return int(i >> PosA & (1<<SizeA - 1)) }

// B returns the B field.
func (i Instruction) B() int { return int(i >> PosB & (1<<SizeB - 1)) }

// C returns the C field.
func (i Instruction) C() int { return int(i >> PosC & (1<<SizeC - 1)) }

// Bx returns the unsigned Bx field.
func (i Instruction) Bx() int { return int(i >> PosBx & (1<<SizeBx - 1)) }

// SBx returns the signed sBx field.
func (i Instruction) SBx() int { return i.Bx() - MaxArgSBx }

// String renders the instruction as "OP a b c" for error messages and tests.
func (i Instruction) String() string {
	op := i.Op()
	switch op.Mode() {
	case ModeABx:
		return fmt.Sprintf("%s %d %d", op, i.A(), i.Bx())
	case ModeAsBx:
		return fmt.Sprintf("%s %d %d", op, i.A(), i.SBx())
	default:
		return fmt.Sprintf("%s %d %d %d", op, i.A(), i.B(), i.C())
	}
}
