package bytecode

import "fmt"

// Validate checks the structural invariants of the tree rooted at root:
//
//   - every prototype is reached through at most one parent (a tree, no cycles)
//   - code is non-empty and ends in a return-class instruction
//   - opcodes are defined and constant/nested indices are in bounds
//   - register A of every register-writing instruction fits MaxStackSize
//   - line info is either absent or parallel to the code
//
// Prototypes produced by a front end are expected to pass; units read from
// disk are checked before they are combined.
func (a *Arena) Validate(root ProtoID) error {
	seen := make(map[ProtoID]bool)
	return a.validate(root, seen)
}

func (a *Arena) validate(id ProtoID, seen map[ProtoID]bool) error {
	if seen[id] {
		return fmt.Errorf("%w: prototype %d is reachable more than once", ErrInvalidProto, id)
	}
	seen[id] = true

	p, err := a.Get(id)
	if err != nil {
		return err
	}
	if err := p.check(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProto, p.describe(id), err)
	}
	for _, child := range p.Nested {
		if err := a.validate(child, seen); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prototype) describe(id ProtoID) string {
	if p.Source != "" {
		return fmt.Sprintf("%s:%d (proto %d)", p.Source, p.LineDefined, id)
	}
	return fmt.Sprintf("proto %d", id)
}

func (p *Prototype) check() error {
	if len(p.Code) == 0 {
		return fmt.Errorf("empty code")
	}
	if last := p.Code[len(p.Code)-1]; !last.Op().IsReturn() {
		return fmt.Errorf("last instruction %s is not a return", last)
	}
	if p.MaxStackSize < MinStackSize {
		return fmt.Errorf("max stack size %d below %d", p.MaxStackSize, MinStackSize)
	}
	if n := len(p.Debug.LineInfo); n != 0 && n != len(p.Code) {
		return fmt.Errorf("line info has %d entries for %d instructions", n, len(p.Code))
	}
	for i, k := range p.Constants {
		if !k.Valid() {
			return fmt.Errorf("constant %d has unknown kind %d", i, uint8(k.Kind))
		}
	}
	for pc, ins := range p.Code {
		if err := p.checkInstruction(ins); err != nil {
			return fmt.Errorf("pc %d: %s: %v", pc, ins, err)
		}
	}
	return nil
}

func (p *Prototype) checkInstruction(ins Instruction) error {
	op := ins.Op()
	info, ok := GetOpcodeInfo(op)
	if !ok {
		return fmt.Errorf("unknown opcode %d", uint8(op))
	}
	if info.SetsA && ins.A() >= int(p.MaxStackSize) {
		return fmt.Errorf("register %d outside stack of %d", ins.A(), p.MaxStackSize)
	}

	switch info.Mode {
	case ModeABx:
		if op == OpClosure {
			if ins.Bx() >= len(p.Nested) {
				return fmt.Errorf("nested index %d out of %d", ins.Bx(), len(p.Nested))
			}
		} else if info.B == ArgK && ins.Bx() >= len(p.Constants) {
			return fmt.Errorf("constant index %d out of %d", ins.Bx(), len(p.Constants))
		}
	case ModeABC:
		if info.B == ArgK {
			if err := p.checkRK(ins.B()); err != nil {
				return err
			}
		}
		if info.C == ArgK {
			if err := p.checkRK(ins.C()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Prototype) checkRK(x int) error {
	if !IsRKConstant(x) {
		return nil
	}
	if idx := x &^ BitRK; idx >= len(p.Constants) {
		return fmt.Errorf("constant index %d out of %d", idx, len(p.Constants))
	}
	return nil
}
