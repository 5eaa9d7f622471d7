// Package unit implements the on-disk form of one precompiled unit: a
// prototype tree as produced by a front end, encoded as canonical CBOR so the
// same tree always yields the same bytes.
package unit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/chazu/mlc/pkg/bytecode"
)

// Version is the current unit file version.
const Version uint8 = 1

var log = commonlog.GetLogger("mlc.unit")

var (
	ErrUnsupportedVersion = errors.New("unsupported unit version")
	ErrEmptyFile          = errors.New("empty unit file")
)

// File is the top-level record of a unit file.
type File struct {
	Version uint8 `cbor:"1,keyasint"`
	Root    Unit  `cbor:"2,keyasint"`
}

// Unit is the serialized form of one bytecode.Prototype and its children.
type Unit struct {
	Source          string     `cbor:"1,keyasint,omitempty"`
	LineDefined     int32      `cbor:"2,keyasint,omitempty"`
	LastLineDefined int32      `cbor:"3,keyasint,omitempty"`
	NumUpvalues     uint8      `cbor:"4,keyasint,omitempty"`
	NumParams       uint8      `cbor:"5,keyasint,omitempty"`
	IsVararg        bool       `cbor:"6,keyasint,omitempty"`
	MaxStackSize    uint8      `cbor:"7,keyasint"`
	Code            []uint32   `cbor:"8,keyasint"`
	Constants       []Constant `cbor:"9,keyasint,omitempty"`
	Nested          []Unit     `cbor:"10,keyasint,omitempty"`
	LineInfo        []int32    `cbor:"11,keyasint,omitempty"`
	LocVars         []LocVar   `cbor:"12,keyasint,omitempty"`
	UpvalueNames    []string   `cbor:"13,keyasint,omitempty"`
}

// Constant is one constant pool entry.
type Constant struct {
	Kind   uint8   `cbor:"1,keyasint"`
	Bool   bool    `cbor:"2,keyasint"`
	Number float64 `cbor:"3,keyasint"`
	Str    string  `cbor:"4,keyasint,omitempty"`
}

// LocVar is one local variable debug record.
type LocVar struct {
	Name    string `cbor:"1,keyasint"`
	StartPC int32  `cbor:"2,keyasint"`
	EndPC   int32  `cbor:"3,keyasint"`
}

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

// cborDecMode allows deeply nested functions and large code arrays.
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("unit: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		MaxNestedLevels:  1024,
		MaxArrayElements: 1 << 24,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("unit: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// FromPrototype converts the tree rooted at root into its serialized form.
func FromPrototype(a *bytecode.Arena, root bytecode.ProtoID) (*Unit, error) {
	p, err := a.Get(root)
	if err != nil {
		return nil, err
	}
	u := &Unit{
		Source:          p.Source,
		LineDefined:     p.LineDefined,
		LastLineDefined: p.LastLineDefined,
		NumUpvalues:     p.NumUpvalues,
		NumParams:       p.NumParams,
		IsVararg:        p.IsVararg,
		MaxStackSize:    p.MaxStackSize,
		Code:            make([]uint32, len(p.Code)),
		LineInfo:        p.Debug.LineInfo,
		UpvalueNames:    p.Debug.UpvalueNames,
	}
	for i, ins := range p.Code {
		u.Code[i] = uint32(ins)
	}
	for _, k := range p.Constants {
		u.Constants = append(u.Constants, Constant{Kind: uint8(k.Kind), Bool: k.Bool, Number: k.Number, Str: k.Str})
	}
	for _, lv := range p.Debug.LocVars {
		u.LocVars = append(u.LocVars, LocVar{Name: lv.Name, StartPC: lv.StartPC, EndPC: lv.EndPC})
	}
	for _, child := range p.Nested {
		cu, err := FromPrototype(a, child)
		if err != nil {
			return nil, err
		}
		u.Nested = append(u.Nested, *cu)
	}
	return u, nil
}

// Build adds the unit's prototypes to the arena, children first, and returns
// the handle of the unit's own prototype.
func (u *Unit) Build(a *bytecode.Arena) bytecode.ProtoID {
	p := &bytecode.Prototype{
		Source:          u.Source,
		LineDefined:     u.LineDefined,
		LastLineDefined: u.LastLineDefined,
		NumUpvalues:     u.NumUpvalues,
		NumParams:       u.NumParams,
		IsVararg:        u.IsVararg,
		MaxStackSize:    u.MaxStackSize,
		Code:            make([]bytecode.Instruction, len(u.Code)),
	}
	for i, w := range u.Code {
		p.Code[i] = bytecode.Instruction(w)
	}
	for _, k := range u.Constants {
		p.AddConstant(bytecode.Constant{Kind: bytecode.ConstKind(k.Kind), Bool: k.Bool, Number: k.Number, Str: k.Str})
	}
	p.Debug.LineInfo = u.LineInfo
	p.Debug.UpvalueNames = u.UpvalueNames
	for _, lv := range u.LocVars {
		p.Debug.LocVars = append(p.Debug.LocVars, bytecode.LocVar{Name: lv.Name, StartPC: lv.StartPC, EndPC: lv.EndPC})
	}
	for i := range u.Nested {
		p.AddNested(u.Nested[i].Build(a))
	}
	return a.Add(p)
}

// Marshal encodes the tree rooted at root as a unit file.
func Marshal(a *bytecode.Arena, root bytecode.ProtoID) ([]byte, error) {
	u, err := FromPrototype(a, root)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&File{Version: Version, Root: *u})
}

// Unmarshal decodes a unit file into the arena and validates the result.
func Unmarshal(data []byte, a *bytecode.Arena) (bytecode.ProtoID, error) {
	if len(data) == 0 {
		return 0, ErrEmptyFile
	}
	var f File
	if err := cborDecMode.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("unit: unmarshal: %w", err)
	}
	if f.Version != Version {
		return 0, fmt.Errorf("%w: %d (expected %d)", ErrUnsupportedVersion, f.Version, Version)
	}
	id := f.Root.Build(a)
	if err := a.Validate(id); err != nil {
		return 0, err
	}
	return id, nil
}

// LoadReader reads one unit from r. name is used in error messages only.
func LoadReader(r io.Reader, name string, a *bytecode.Arena) (bytecode.ProtoID, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("unit: read %s: %w", name, err)
	}
	id, err := Unmarshal(data, a)
	if err != nil {
		return 0, fmt.Errorf("unit: decode %s: %w", name, err)
	}
	log.Debugf("loaded %s (%d bytes, proto %d)", name, len(data), id)
	return id, nil
}

// Load reads one unit file.
func Load(path string, a *bytecode.Arena) (bytecode.ProtoID, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("unit: %w", err)
	}
	defer f.Close()
	return LoadReader(f, path, a)
}

// WriteFile encodes the tree rooted at root and writes it to path.
func WriteFile(path string, a *bytecode.Arena, root bytecode.ProtoID) error {
	data, err := Marshal(a, root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("unit: %w", err)
	}
	return nil
}
