package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// VarargIsVararg is the vararg byte written for variadic prototypes.
const VarargIsVararg byte = 2

// Dumper serializes a prototype tree to a sink.
//
// Stream layout (all numbers little-endian, widths from the header):
//
//	header                      12 bytes, see Header
//	prototype:
//	  source                    string, absent if stripped or same as parent
//	  line defined              int
//	  last line defined         int
//	  upvalues params vararg maxstack   1 byte each
//	  code                      int n, n * 4-byte instruction
//	  constants                 int n, n * (tag byte, payload)
//	  nested                    int n, n * prototype
//	  line info                 int n, n * int       (n = 0 when stripped)
//	  locals                    int n, n * (string, int startpc, int endpc)
//	  upvalue names             int n, n * string
//
// A string is a size_t length counting a trailing NUL, followed by the bytes
// and the NUL; the absent string is a zero length.
//
// Every field is handed to the sink in its own Write call. After the first
// failing Write the Dumper makes no further calls.
type Dumper struct {
	arena *Arena
	w     io.Writer
	strip bool
	err   error

	onPath  map[ProtoID]bool
	scratch [8]byte
}

// NewDumper creates a dumper writing to w.
func NewDumper(a *Arena, w io.Writer, strip bool) *Dumper {
	return &Dumper{
		arena:  a,
		w:      w,
		strip:  strip,
		onPath: make(map[ProtoID]bool),
	}
}

// Dump writes the header followed by the tree rooted at root. The returned
// error wraps ErrIO and the sink's own error when a write fails.
func Dump(a *Arena, root ProtoID, w io.Writer, strip bool) error {
	return NewDumper(a, w, strip).Dump(root)
}

// Dump writes the header followed by the tree rooted at root.
func (d *Dumper) Dump(root ProtoID) error {
	if d.err != nil {
		return d.err
	}
	if _, err := d.arena.Get(root); err != nil {
		return err
	}
	d.writeBlock(DefaultHeader().Bytes())
	if err := d.writeFunction(root, ""); err != nil {
		return err
	}
	return d.err
}

// Err returns the first sink error, if any.
func (d *Dumper) Err() error {
	return d.err
}

func (d *Dumper) writeBlock(b []byte) {
	if d.err != nil || len(b) == 0 {
		return
	}
	n, err := d.w.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrIO, err)
	}
}

func (d *Dumper) writeByte(b byte) {
	d.scratch[0] = b
	d.writeBlock(d.scratch[:1])
}

func (d *Dumper) writeInt(v int32) {
	binary.LittleEndian.PutUint32(d.scratch[:4], uint32(v))
	d.writeBlock(d.scratch[:4])
}

func (d *Dumper) writeCount(n int) {
	d.writeInt(int32(n))
}

func (d *Dumper) writeNumber(f float64) {
	binary.LittleEndian.PutUint64(d.scratch[:8], math.Float64bits(f))
	d.writeBlock(d.scratch[:8])
}

func (d *Dumper) writeString(s string, present bool) {
	if !present {
		binary.LittleEndian.PutUint32(d.scratch[:4], 0)
		d.writeBlock(d.scratch[:4])
		return
	}
	binary.LittleEndian.PutUint32(d.scratch[:4], uint32(len(s)+1))
	d.writeBlock(d.scratch[:4])
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	d.writeBlock(buf)
}

func (d *Dumper) writeFunction(id ProtoID, parentSource string) error {
	if d.onPath[id] {
		return fmt.Errorf("%w: prototype %d nests itself", ErrInvalidProto, id)
	}
	d.onPath[id] = true
	defer delete(d.onPath, id)

	p, err := d.arena.Get(id)
	if err != nil {
		return err
	}

	d.writeString(p.Source, !d.strip && p.Source != "" && p.Source != parentSource)
	d.writeInt(p.LineDefined)
	d.writeInt(p.LastLineDefined)
	d.writeByte(p.NumUpvalues)
	d.writeByte(p.NumParams)
	if p.IsVararg {
		d.writeByte(VarargIsVararg)
	} else {
		d.writeByte(0)
	}
	d.writeByte(p.MaxStackSize)

	d.writeCode(p.Code)
	d.writeConstants(p.Constants)

	d.writeCount(len(p.Nested))
	for _, child := range p.Nested {
		if d.err != nil {
			return d.err
		}
		if err := d.writeFunction(child, p.Source); err != nil {
			return err
		}
	}

	d.writeDebug(&p.Debug)
	return d.err
}

func (d *Dumper) writeCode(code []Instruction) {
	d.writeCount(len(code))
	buf := make([]byte, 0, len(code)*InstructionSize)
	for _, ins := range code {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ins))
	}
	d.writeBlock(buf)
}

func (d *Dumper) writeConstants(ks []Constant) {
	d.writeCount(len(ks))
	for _, k := range ks {
		d.writeByte(byte(k.Kind))
		switch k.Kind {
		case ConstBoolean:
			d.writeByte(boolByte(k.Bool))
		case ConstNumber:
			d.writeNumber(k.Number)
		case ConstString:
			d.writeString(k.Str, true)
		}
	}
}

func (d *Dumper) writeDebug(dbg *DebugInfo) {
	if d.strip {
		d.writeCount(0)
		d.writeCount(0)
		d.writeCount(0)
		return
	}

	d.writeCount(len(dbg.LineInfo))
	buf := make([]byte, 0, len(dbg.LineInfo)*IntSize)
	for _, line := range dbg.LineInfo {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(line))
	}
	d.writeBlock(buf)

	d.writeCount(len(dbg.LocVars))
	for _, lv := range dbg.LocVars {
		d.writeString(lv.Name, true)
		d.writeInt(lv.StartPC)
		d.writeInt(lv.EndPC)
	}

	d.writeCount(len(dbg.UpvalueNames))
	for _, name := range dbg.UpvalueNames {
		d.writeString(name, true)
	}
}
