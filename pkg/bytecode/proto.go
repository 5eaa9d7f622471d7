package bytecode

import "fmt"

// ProtoID is a stable handle to a prototype owned by an Arena.
type ProtoID uint32

// LocVar describes the pc range in which a local variable is live.
type LocVar struct {
	Name    string
	StartPC int32
	EndPC   int32
}

// DebugInfo holds the diagnostic tables of a prototype. All of it may be
// empty; stripping drops it from the serialized form without touching code.
type DebugInfo struct {
	LineInfo     []int32 // Source line per instruction (parallel to Code when present)
	LocVars      []LocVar
	UpvalueNames []string
}

// Empty reports whether no debug information is present.
func (d *DebugInfo) Empty() bool {
	return len(d.LineInfo) == 0 && len(d.LocVars) == 0 && len(d.UpvalueNames) == 0
}

// Prototype is one compiled function body: its instruction stream, constant
// pool and the handles of the prototypes nested inside it.
type Prototype struct {
	Source          string
	LineDefined     int32
	LastLineDefined int32

	NumUpvalues  uint8
	NumParams    uint8
	IsVararg     bool
	MaxStackSize uint8

	Code      []Instruction
	Constants []Constant
	Nested    []ProtoID

	Debug DebugInfo
}

// MinStackSize is the smallest register window the runtime accepts.
const MinStackSize = 2

// NewPrototype creates an empty prototype with the minimum stack size.
func NewPrototype(source string) *Prototype {
	return &Prototype{
		Source:       source,
		MaxStackSize: MinStackSize,
		Code:         make([]Instruction, 0, 16),
	}
}

// Emit appends an instruction and returns its pc.
func (p *Prototype) Emit(i Instruction) int {
	pc := len(p.Code)
	p.Code = append(p.Code, i)
	return pc
}

// EmitLine appends an instruction together with its source line.
func (p *Prototype) EmitLine(i Instruction, line int32) int {
	p.Debug.LineInfo = append(p.Debug.LineInfo, line)
	return p.Emit(i)
}

// EmitABC encodes and appends an iABC instruction.
func (p *Prototype) EmitABC(op Opcode, a, b, c int) (int, error) {
	i, err := EncodeABC(op, a, b, c)
	if err != nil {
		return 0, err
	}
	return p.Emit(i), nil
}

// EmitABx encodes and appends an iABx instruction.
func (p *Prototype) EmitABx(op Opcode, a, bx int) (int, error) {
	i, err := EncodeABx(op, a, bx)
	if err != nil {
		return 0, err
	}
	return p.Emit(i), nil
}

// EmitAsBx encodes and appends an iAsBx instruction.
func (p *Prototype) EmitAsBx(op Opcode, a, sbx int) (int, error) {
	i, err := EncodeAsBx(op, a, sbx)
	if err != nil {
		return 0, err
	}
	return p.Emit(i), nil
}

// AddConstant appends a constant and returns its index. Constants are not
// deduplicated.
func (p *Prototype) AddConstant(c Constant) int {
	p.Constants = append(p.Constants, c)
	return len(p.Constants) - 1
}

// AddNested appends a child handle and returns its index.
func (p *Prototype) AddNested(id ProtoID) int {
	p.Nested = append(p.Nested, id)
	return len(p.Nested) - 1
}

// CodeLen returns the number of instructions.
func (p *Prototype) CodeLen() int {
	return len(p.Code)
}

// ConstantCount returns the number of constants in the pool.
func (p *Prototype) ConstantCount() int {
	return len(p.Constants)
}

// NestedCount returns the number of nested prototypes.
func (p *Prototype) NestedCount() int {
	return len(p.Nested)
}

// StripDebug drops all debug tables.
func (p *Prototype) StripDebug() {
	p.Debug = DebugInfo{}
}

// ---------------------------------------------------------------------------
// Arena
// ---------------------------------------------------------------------------

// Arena owns every prototype of one compilation run. Prototypes refer to
// each other only by ProtoID, so building a new parent never moves or copies
// an existing child.
type Arena struct {
	protos []*Prototype
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add takes ownership of p and returns its handle.
func (a *Arena) Add(p *Prototype) ProtoID {
	a.protos = append(a.protos, p)
	return ProtoID(len(a.protos) - 1)
}

// Get resolves a handle.
func (a *Arena) Get(id ProtoID) (*Prototype, error) {
	if int(id) >= len(a.protos) {
		return nil, fmt.Errorf("%w: %d (arena holds %d)", ErrUnknownProto, id, len(a.protos))
	}
	return a.protos[id], nil
}

// Len returns the number of prototypes in the arena.
func (a *Arena) Len() int {
	return len(a.protos)
}

// Walk visits root and its descendants depth-first, parents before children,
// children in Nested order.
func (a *Arena) Walk(root ProtoID, fn func(id ProtoID, p *Prototype, depth int) error) error {
	return a.walk(root, 0, fn)
}

func (a *Arena) walk(id ProtoID, depth int, fn func(ProtoID, *Prototype, int) error) error {
	p, err := a.Get(id)
	if err != nil {
		return err
	}
	if err := fn(id, p, depth); err != nil {
		return err
	}
	for _, child := range p.Nested {
		if err := a.walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
