package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of root and every nested function, parents
// first. The tree is validated before anything is printed.
func (a *Arena) Disassemble(root ProtoID) (string, error) {
	if err := a.Validate(root); err != nil {
		return "", err
	}
	var sb strings.Builder
	err := a.Walk(root, func(id ProtoID, p *Prototype, depth int) error {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.DisassembleWithName(fmt.Sprintf("proto %d", id)))
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Disassemble returns a human-readable listing for one function.
func (p *Prototype) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (p *Prototype) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	source := p.Source
	if source == "" {
		source = "?"
	}
	sb.WriteString(fmt.Sprintf("; function <%s:%d,%d> (%d instructions)\n",
		source, p.LineDefined, p.LastLineDefined, len(p.Code)))
	vararg := ""
	if p.IsVararg {
		vararg = "+"
	}
	sb.WriteString(fmt.Sprintf("; %d%s params, %d slots, %d upvalues, %d locals, %d constants, %d functions\n",
		p.NumParams, vararg, p.MaxStackSize, p.NumUpvalues, len(p.Debug.LocVars), len(p.Constants), len(p.Nested)))
	sb.WriteString("\n")

	// Constants
	if len(p.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, k := range p.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, displayConstant(k)))
		}
		sb.WriteString("\n")
	}

	// Locals
	if len(p.Debug.LocVars) > 0 {
		sb.WriteString("; Locals:\n")
		for i, lv := range p.Debug.LocVars {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s (pc %d..%d)\n", i, lv.Name, lv.StartPC, lv.EndPC))
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	for pc := range p.Code {
		line := "-"
		if pc < len(p.Debug.LineInfo) {
			line = fmt.Sprintf("%d", p.Debug.LineInfo[pc])
		}
		sb.WriteString(fmt.Sprintf("%04d  [%s]  %s\n", pc, line, p.DisassembleInstruction(pc)))
	}

	return sb.String()
}

// DisassembleInstruction returns a human-readable representation of the
// instruction at pc, annotated with the constant, jump target or nested
// function it refers to.
func (p *Prototype) DisassembleInstruction(pc int) string {
	if pc < 0 || pc >= len(p.Code) {
		return "<end of code>"
	}
	ins := p.Code[pc]
	op := ins.Op()
	info, _ := GetOpcodeInfo(op)
	text := fmt.Sprintf("%-10s", info.Name)

	var notes []string
	switch info.Mode {
	case ModeABx:
		text += fmt.Sprintf(" %d %d", ins.A(), ins.Bx())
		switch {
		case op == OpClosure:
			if ins.Bx() < len(p.Nested) {
				notes = append(notes, fmt.Sprintf("proto %d", p.Nested[ins.Bx()]))
			}
		case info.B == ArgK:
			notes = append(notes, p.constantNote(ins.Bx()))
		}
	case ModeAsBx:
		text += fmt.Sprintf(" %d %d", ins.A(), ins.SBx())
		notes = append(notes, fmt.Sprintf("to %04d", pc+1+ins.SBx()))
	default:
		text += fmt.Sprintf(" %d %d %d", ins.A(), ins.B(), ins.C())
		if info.B == ArgK && IsRKConstant(ins.B()) {
			notes = append(notes, p.constantNote(ins.B()-BitRK))
		}
		if info.C == ArgK && IsRKConstant(ins.C()) {
			notes = append(notes, p.constantNote(ins.C()-BitRK))
		}
	}

	if len(notes) == 0 {
		return text
	}
	return fmt.Sprintf("%-24s ; %s", text, strings.Join(notes, " "))
}

func (p *Prototype) constantNote(idx int) string {
	if idx < 0 || idx >= len(p.Constants) {
		return fmt.Sprintf("K(%d)?", idx)
	}
	return displayConstant(p.Constants[idx])
}

// displayConstant truncates long strings for readability.
func displayConstant(k Constant) string {
	if k.Kind == ConstString && len(k.Str) > 40 {
		return StringConstant(k.Str[:37] + "...").String()
	}
	return k.String()
}

// InstructionCount returns the number of instructions in the tree rooted at
// root.
func (a *Arena) InstructionCount(root ProtoID) (int, error) {
	count := 0
	err := a.Walk(root, func(_ ProtoID, p *Prototype, _ int) error {
		count += len(p.Code)
		return nil
	})
	return count, err
}
