package bytecode

import "fmt"

// Opcode identifies a register-machine instruction. The numbering is part of
// the binary format: changing it requires bumping FormatVersion.
type Opcode uint8

const (
	// ========================================================================
	// Loads and moves
	// ========================================================================

	OpMove     Opcode = 0 // R(A) := R(B)
	OpLoadK    Opcode = 1 // R(A) := Kst(Bx)
	OpLoadBool Opcode = 2 // R(A) := (Bool)B; if (C) pc++
	OpLoadNil  Opcode = 3 // R(A) := ... := R(B) := nil

	// ========================================================================
	// Upvalues, globals and tables
	// ========================================================================

	OpGetUpval  Opcode = 4  // R(A) := UpValue[B]
	OpGetGlobal Opcode = 5  // R(A) := Gbl[Kst(Bx)]
	OpGetTable  Opcode = 6  // R(A) := R(B)[RK(C)]
	OpSetGlobal Opcode = 7  // Gbl[Kst(Bx)] := R(A)
	OpSetUpval  Opcode = 8  // UpValue[B] := R(A)
	OpSetTable  Opcode = 9  // R(A)[RK(B)] := RK(C)
	OpNewTable  Opcode = 10 // R(A) := {} (size = B,C)
	OpSelf      Opcode = 11 // R(A+1) := R(B); R(A) := R(B)[RK(C)]

	// ========================================================================
	// Arithmetic and string operators
	// ========================================================================

	OpAdd    Opcode = 12 // R(A) := RK(B) + RK(C)
	OpSub    Opcode = 13 // R(A) := RK(B) - RK(C)
	OpMul    Opcode = 14 // R(A) := RK(B) * RK(C)
	OpDiv    Opcode = 15 // R(A) := RK(B) / RK(C)
	OpMod    Opcode = 16 // R(A) := RK(B) % RK(C)
	OpPow    Opcode = 17 // R(A) := RK(B) ^ RK(C)
	OpUnm    Opcode = 18 // R(A) := -R(B)
	OpNot    Opcode = 19 // R(A) := not R(B)
	OpLen    Opcode = 20 // R(A) := length of R(B)
	OpConcat Opcode = 21 // R(A) := R(B).. ... ..R(C)

	// ========================================================================
	// Control flow
	// ========================================================================

	OpJmp      Opcode = 22 // pc += sBx
	OpEq       Opcode = 23 // if ((RK(B) == RK(C)) ~= A) then pc++
	OpLt       Opcode = 24 // if ((RK(B) <  RK(C)) ~= A) then pc++
	OpLe       Opcode = 25 // if ((RK(B) <= RK(C)) ~= A) then pc++
	OpTest     Opcode = 26 // if not (R(A) <=> C) then pc++
	OpTestSet  Opcode = 27 // if (R(B) <=> C) then R(A) := R(B) else pc++
	OpCall     Opcode = 28 // R(A), ... ,R(A+C-2) := R(A)(R(A+1), ... ,R(A+B-1))
	OpTailCall Opcode = 29 // return R(A)(R(A+1), ... ,R(A+B-1))
	OpReturn   Opcode = 30 // return R(A), ... ,R(A+B-2)
	OpForLoop  Opcode = 31 // R(A)+=R(A+2); if R(A) <?= R(A+1) then { pc+=sBx; R(A+3)=R(A) }
	OpForPrep  Opcode = 32 // R(A)-=R(A+2); pc+=sBx
	OpTForLoop Opcode = 33 // R(A+3), ... ,R(A+2+C) := R(A)(R(A+1), R(A+2))
	OpSetList  Opcode = 34 // R(A)[(C-1)*FPF+i] := R(A+i), 1 <= i <= B

	// ========================================================================
	// Closures and varargs
	// ========================================================================

	OpClose   Opcode = 35 // close all variables in the stack up to (>=) R(A)
	OpClosure Opcode = 36 // R(A) := closure(KPROTO[Bx], R(A), ... ,R(A+n))
	OpVararg  Opcode = 37 // R(A), R(A+1), ..., R(A+B-1) = vararg
)

// OpMode is the addressing mode of an opcode: how the bits after the opcode
// are split into operand fields.
type OpMode uint8

const (
	ModeABC  OpMode = iota // A:8 B:9 C:9
	ModeABx                // A:8 Bx:18 unsigned
	ModeAsBx               // A:8 sBx:18 signed (excess-K)
)

// String returns the conventional name of the mode.
func (m OpMode) String() string {
	switch m {
	case ModeABC:
		return "iABC"
	case ModeABx:
		return "iABx"
	case ModeAsBx:
		return "iAsBx"
	default:
		return fmt.Sprintf("OpMode(%d)", uint8(m))
	}
}

// ArgMode describes how an instruction uses its B or C operand.
type ArgMode uint8

const (
	ArgN ArgMode = iota // operand unused
	ArgU                // used as a plain number
	ArgR                // register or jump offset
	ArgK                // constant index, or RK (register/constant)
)

// OpcodeInfo provides metadata about each opcode for encoding and validation.
type OpcodeInfo struct {
	Name  string  // Human-readable name
	Mode  OpMode  // Operand layout
	Test  bool    // Next instruction is a jump
	SetsA bool    // Instruction writes register A
	B     ArgMode // Use of the B (or Bx/sBx) operand
	C     ArgMode // Use of the C operand
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpMove:     {"MOVE", ModeABC, false, true, ArgR, ArgN},
	OpLoadK:    {"LOADK", ModeABx, false, true, ArgK, ArgN},
	OpLoadBool: {"LOADBOOL", ModeABC, false, true, ArgU, ArgU},
	OpLoadNil:  {"LOADNIL", ModeABC, false, true, ArgR, ArgN},

	OpGetUpval:  {"GETUPVAL", ModeABC, false, true, ArgU, ArgN},
	OpGetGlobal: {"GETGLOBAL", ModeABx, false, true, ArgK, ArgN},
	OpGetTable:  {"GETTABLE", ModeABC, false, true, ArgR, ArgK},
	OpSetGlobal: {"SETGLOBAL", ModeABx, false, false, ArgK, ArgN},
	OpSetUpval:  {"SETUPVAL", ModeABC, false, false, ArgU, ArgN},
	OpSetTable:  {"SETTABLE", ModeABC, false, false, ArgK, ArgK},
	OpNewTable:  {"NEWTABLE", ModeABC, false, true, ArgU, ArgU},
	OpSelf:      {"SELF", ModeABC, false, true, ArgR, ArgK},

	OpAdd:    {"ADD", ModeABC, false, true, ArgK, ArgK},
	OpSub:    {"SUB", ModeABC, false, true, ArgK, ArgK},
	OpMul:    {"MUL", ModeABC, false, true, ArgK, ArgK},
	OpDiv:    {"DIV", ModeABC, false, true, ArgK, ArgK},
	OpMod:    {"MOD", ModeABC, false, true, ArgK, ArgK},
	OpPow:    {"POW", ModeABC, false, true, ArgK, ArgK},
	OpUnm:    {"UNM", ModeABC, false, true, ArgR, ArgN},
	OpNot:    {"NOT", ModeABC, false, true, ArgR, ArgN},
	OpLen:    {"LEN", ModeABC, false, true, ArgR, ArgN},
	OpConcat: {"CONCAT", ModeABC, false, true, ArgR, ArgR},

	OpJmp:      {"JMP", ModeAsBx, false, false, ArgR, ArgN},
	OpEq:       {"EQ", ModeABC, true, false, ArgK, ArgK},
	OpLt:       {"LT", ModeABC, true, false, ArgK, ArgK},
	OpLe:       {"LE", ModeABC, true, false, ArgK, ArgK},
	OpTest:     {"TEST", ModeABC, true, true, ArgR, ArgU},
	OpTestSet:  {"TESTSET", ModeABC, true, true, ArgR, ArgU},
	OpCall:     {"CALL", ModeABC, false, true, ArgU, ArgU},
	OpTailCall: {"TAILCALL", ModeABC, false, true, ArgU, ArgU},
	OpReturn:   {"RETURN", ModeABC, false, false, ArgU, ArgN},
	OpForLoop:  {"FORLOOP", ModeAsBx, false, true, ArgR, ArgN},
	OpForPrep:  {"FORPREP", ModeAsBx, false, true, ArgR, ArgN},
	OpTForLoop: {"TFORLOOP", ModeABC, true, false, ArgN, ArgU},
	OpSetList:  {"SETLIST", ModeABC, false, false, ArgU, ArgU},

	OpClose:   {"CLOSE", ModeABC, false, false, ArgN, ArgN},
	OpClosure: {"CLOSURE", ModeABx, false, true, ArgU, ArgN},
	OpVararg:  {"VARARG", ModeABC, false, true, ArgU, ArgN},
}

// GetOpcodeInfo returns metadata for an opcode.
// The second result is false if the opcode is not defined.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	if !ok {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", uint8(op))}, false
	}
	return info, true
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	info, _ := GetOpcodeInfo(op)
	return info.Name
}

// Mode returns the addressing mode of the opcode.
func (op Opcode) Mode() OpMode {
	info, _ := GetOpcodeInfo(op)
	return info.Mode
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsReturn returns true if this opcode leaves the current function.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpTailCall
}

// IsJump returns true if this opcode transfers control by a signed offset.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op == OpForLoop || op == OpForPrep
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
