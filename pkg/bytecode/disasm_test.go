package bytecode

import (
	"errors"
	"strings"
	"testing"
)

func TestDisassembleUnit(t *testing.T) {
	p := unit("@a.lua", StringConstant("hi"))

	output := p.Disassemble()

	for _, want := range []string{
		"; function <@a.lua:0,0> (2 instructions)",
		"0+ params, 2 slots",
		"; Constants:",
		`[  0] "hi"`,
		"; Code:",
		"0000  [1]  LOADK",
		`; "hi"`,
		"0001  [1]  RETURN",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Locals:") {
		t.Error("listing shows a Locals section for a function without locals")
	}
}

func TestDisassembleWithName(t *testing.T) {
	p := unit("@a.lua", NilConstant())
	output := p.DisassembleWithName("main")
	if !strings.HasPrefix(output, "; === main ===\n") {
		t.Errorf("output = %q, want name header", output)
	}
}

func TestDisassembleStripped(t *testing.T) {
	p := unit("", NumberConstant(1))
	p.StripDebug()

	output := p.Disassemble()
	if !strings.Contains(output, "<?:0,0>") {
		t.Errorf("output missing placeholder source:\n%s", output)
	}
	if !strings.Contains(output, "0000  [-]  LOADK") {
		t.Errorf("output missing line placeholder:\n%s", output)
	}
}

func TestDisassembleInstructionNotes(t *testing.T) {
	p := NewPrototype("@notes.lua")
	p.MaxStackSize = 3
	p.AddConstant(StringConstant("print"))
	p.AddConstant(NumberConstant(2))
	p.AddNested(ProtoID(7))
	p.Emit(MustEncode(OpGetGlobal, 0, 0))
	p.Emit(MustEncode(OpAdd, 1, 1, RKConstant(1)))
	p.Emit(MustEncode(OpJmp, 0, 2))
	p.Emit(MustEncode(OpClosure, 2, 0))
	p.Emit(MustEncode(OpAdd, 1, RKConstant(5), 1))
	p.Emit(MustEncode(OpReturn, 0, 1))

	tests := []struct {
		pc   int
		want string
	}{
		{0, `; "print"`},
		{1, "; 2"},
		{2, "; to 0005"},
		{3, "; proto 7"},
		{4, "; K(5)?"},
		{5, "RETURN     0 1 0"},
		{6, "<end of code>"},
		{-1, "<end of code>"},
	}

	for _, tt := range tests {
		got := p.DisassembleInstruction(tt.pc)
		if !strings.Contains(got, tt.want) {
			t.Errorf("DisassembleInstruction(%d) = %q, want it to contain %q", tt.pc, got, tt.want)
		}
	}
	if got := p.DisassembleInstruction(5); strings.Contains(got, ";") {
		t.Errorf("DisassembleInstruction(5) = %q, want no annotation", got)
	}
}

func TestDisassembleLongConstant(t *testing.T) {
	p := unit("@a.lua", StringConstant(strings.Repeat("x", 100)))
	output := p.Disassemble()
	if strings.Contains(output, strings.Repeat("x", 41)) {
		t.Error("long constant was not truncated")
	}
	if !strings.Contains(output, `..."`) {
		t.Error("truncated constant missing ellipsis")
	}
}

func TestDisassembleLocals(t *testing.T) {
	p := unit("@a.lua", NilConstant())
	p.Debug.LocVars = []LocVar{{Name: "x", StartPC: 0, EndPC: 2}}
	output := p.Disassemble()
	if !strings.Contains(output, "[  0] x (pc 0..2)") {
		t.Errorf("output missing local:\n%s", output)
	}
}

func TestArenaDisassembleCombined(t *testing.T) {
	a := NewArena()
	first := a.Add(unit("@a.lua", NumberConstant(1)))
	second := a.Add(unit("@b.lua", NumberConstant(2)))
	root, err := Combine(a, []ProtoID{first, second})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	output, err := a.Disassemble(root)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	// Parents are listed before their children.
	iRoot := strings.Index(output, "<=(mlc):0,0>")
	iA := strings.Index(output, "<@a.lua:0,0>")
	iB := strings.Index(output, "<@b.lua:0,0>")
	if iRoot < 0 || iA < 0 || iB < 0 || !(iRoot < iA && iA < iB) {
		t.Errorf("listing order wrong (root %d, a %d, b %d):\n%s", iRoot, iA, iB, output)
	}
	if !strings.Contains(output, "; proto 0") || !strings.Contains(output, "; proto 1") {
		t.Errorf("CLOSURE lines not annotated with nested protos:\n%s", output)
	}
	if !strings.Contains(output, "VARARG") {
		t.Error("wrapper listing missing VARARG")
	}
}

func TestArenaDisassembleInvalid(t *testing.T) {
	a := NewArena()
	id := a.Add(NewPrototype("@empty.lua"))
	if _, err := a.Disassemble(id); !errors.Is(err, ErrInvalidProto) {
		t.Errorf("err = %v, want ErrInvalidProto", err)
	}
	if _, err := a.Disassemble(ProtoID(99)); !errors.Is(err, ErrUnknownProto) {
		t.Errorf("err = %v, want ErrUnknownProto", err)
	}
}

func TestInstructionCount(t *testing.T) {
	a := NewArena()
	units := []ProtoID{
		a.Add(unit("@a.lua", NumberConstant(1))),
		a.Add(unit("@b.lua", NumberConstant(2))),
	}
	root, err := Combine(a, units)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	// 3 per unit plus RETURN in the wrapper, 2 in each unit.
	got, err := a.InstructionCount(root)
	if err != nil {
		t.Fatalf("InstructionCount: %v", err)
	}
	if got != 11 {
		t.Errorf("InstructionCount = %d, want 11", got)
	}
}
