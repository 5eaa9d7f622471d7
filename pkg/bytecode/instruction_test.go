package bytecode

import (
	"errors"
	"testing"
)

func TestEncodeABCFields(t *testing.T) {
	ins, err := EncodeABC(OpCall, 3, 200, 511)
	if err != nil {
		t.Fatalf("EncodeABC: %v", err)
	}
	if ins.Op() != OpCall {
		t.Errorf("Op() = %s, want CALL", ins.Op())
	}
	if ins.A() != 3 {
		t.Errorf("A() = %d, want 3", ins.A())
	}
	if ins.B() != 200 {
		t.Errorf("B() = %d, want 200", ins.B())
	}
	if ins.C() != 511 {
		t.Errorf("C() = %d, want 511", ins.C())
	}
}

func TestEncodeKnownWords(t *testing.T) {
	// Reference values of the 5.1 layout: op | A<<6 | C<<14 | B<<23.
	tests := []struct {
		name string
		ins  Instruction
		want uint32
	}{
		{"CLOSURE 0 0", MustEncode(OpClosure, 0, 0), 0x00000024},
		{"CLOSURE 0 1", MustEncode(OpClosure, 0, 1), 0x00004024},
		{"VARARG 1 0", MustEncode(OpVararg, 1, 0, 0), 0x00000065},
		{"CALL 0 0 1", MustEncode(OpCall, 0, 0, 1), 0x0000401C},
		{"RETURN 0 1", MustEncode(OpReturn, 0, 1), 0x0080001E},
		{"LOADK 0 0", MustEncode(OpLoadK, 0, 0), 0x00000001},
	}

	for _, tt := range tests {
		if uint32(tt.ins) != tt.want {
			t.Errorf("%s = 0x%08X, want 0x%08X", tt.name, uint32(tt.ins), tt.want)
		}
	}
}

func TestEncodeABxMax(t *testing.T) {
	ins, err := EncodeABx(OpLoadK, MaxArgA, MaxArgBx)
	if err != nil {
		t.Fatalf("EncodeABx: %v", err)
	}
	if ins.A() != MaxArgA || ins.Bx() != MaxArgBx {
		t.Errorf("got A=%d Bx=%d, want A=%d Bx=%d", ins.A(), ins.Bx(), MaxArgA, MaxArgBx)
	}
}

func TestEncodeAsBxSigned(t *testing.T) {
	for _, sbx := range []int{-MaxArgSBx, -1, 0, 1, MaxArgSBx, MaxArgBx - MaxArgSBx} {
		ins, err := EncodeAsBx(OpJmp, 0, sbx)
		if err != nil {
			t.Fatalf("EncodeAsBx(%d): %v", sbx, err)
		}
		if ins.SBx() != sbx {
			t.Errorf("SBx() = %d, want %d", ins.SBx(), sbx)
		}
	}
}

func TestEncodeOperandOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (Instruction, error)
	}{
		{"A too large", func() (Instruction, error) { return EncodeABC(OpMove, MaxArgA+1, 0, 0) }},
		{"A negative", func() (Instruction, error) { return EncodeABC(OpMove, -1, 0, 0) }},
		{"B too large", func() (Instruction, error) { return EncodeABC(OpCall, 0, MaxArgB+1, 0) }},
		{"C too large", func() (Instruction, error) { return EncodeABC(OpCall, 0, 0, MaxArgC+1) }},
		{"Bx too large", func() (Instruction, error) { return EncodeABx(OpClosure, 0, MaxArgBx+1) }},
		{"sBx too small", func() (Instruction, error) { return EncodeAsBx(OpJmp, 0, -MaxArgSBx-1) }},
		{"mode mismatch", func() (Instruction, error) { return EncodeABx(OpCall, 0, 1) }},
		{"unknown opcode", func() (Instruction, error) { return EncodeABC(Opcode(63), 0, 0, 0) }},
		{"C on ABx", func() (Instruction, error) { return Encode(OpClosure, 0, 1, 0) }},
		{"two C operands", func() (Instruction, error) { return Encode(OpCall, 0, 1, 1, 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if !errors.Is(err, ErrOperandOutOfRange) {
				t.Errorf("err = %v, want ErrOperandOutOfRange", err)
			}
		})
	}
}

func TestEncodeDispatchesOnMode(t *testing.T) {
	abc, err := Encode(OpCall, 0, 2)
	if err != nil {
		t.Fatalf("Encode(CALL): %v", err)
	}
	if abc.B() != 2 || abc.C() != 0 {
		t.Errorf("CALL B=%d C=%d, want B=2 C=0", abc.B(), abc.C())
	}

	abx, err := Encode(OpClosure, 1, 300)
	if err != nil {
		t.Fatalf("Encode(CLOSURE): %v", err)
	}
	if abx.Bx() != 300 {
		t.Errorf("CLOSURE Bx = %d, want 300", abx.Bx())
	}

	asbx, err := Encode(OpJmp, 0, -5)
	if err != nil {
		t.Fatalf("Encode(JMP): %v", err)
	}
	if asbx.SBx() != -5 {
		t.Errorf("JMP sBx = %d, want -5", asbx.SBx())
	}
}

func TestMustEncodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustEncode did not panic on out-of-range operand")
		}
	}()
	MustEncode(OpMove, 256, 0)
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		ins  Instruction
		want string
	}{
		{MustEncode(OpCall, 0, 0, 1), "CALL 0 0 1"},
		{MustEncode(OpClosure, 0, 7), "CLOSURE 0 7"},
		{MustEncode(OpJmp, 0, -2), "JMP 0 -2"},
	}
	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRKConstant(t *testing.T) {
	x := RKConstant(5)
	if !IsRKConstant(x) {
		t.Errorf("IsRKConstant(%d) = false", x)
	}
	if IsRKConstant(5) {
		t.Error("IsRKConstant(5) = true, want false for a register")
	}
	if x&^BitRK != 5 {
		t.Errorf("constant index = %d, want 5", x&^BitRK)
	}
}
