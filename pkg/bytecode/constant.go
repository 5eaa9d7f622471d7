package bytecode

import (
	"fmt"
	"strconv"
)

// ConstKind is the type tag written before each constant payload.
type ConstKind uint8

const (
	ConstNil     ConstKind = 0
	ConstBoolean ConstKind = 1
	ConstNumber  ConstKind = 3
	ConstString  ConstKind = 4
)

// String returns a human-readable name for ConstKind.
func (k ConstKind) String() string {
	switch k {
	case ConstNil:
		return "nil"
	case ConstBoolean:
		return "boolean"
	case ConstNumber:
		return "number"
	case ConstString:
		return "string"
	default:
		return fmt.Sprintf("ConstKind(%d)", uint8(k))
	}
}

// Constant is one literal of a prototype's constant pool. Only the payload
// field matching Kind is meaningful.
type Constant struct {
	Kind   ConstKind
	Bool   bool
	Number float64
	Str    string
}

// NilConstant returns the nil constant.
func NilConstant() Constant { return Constant{Kind: ConstNil} }

// BoolConstant returns a boolean constant.
func BoolConstant(b bool) Constant { return Constant{Kind: ConstBoolean, Bool: b} }

// NumberConstant returns a number constant.
func NumberConstant(n float64) Constant { return Constant{Kind: ConstNumber, Number: n} }

// StringConstant returns a string constant.
func StringConstant(s string) Constant { return Constant{Kind: ConstString, Str: s} }

// Valid reports whether the constant has a known kind.
func (c Constant) Valid() bool {
	switch c.Kind {
	case ConstNil, ConstBoolean, ConstNumber, ConstString:
		return true
	}
	return false
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstNil:
		return "nil"
	case ConstBoolean:
		return strconv.FormatBool(c.Bool)
	case ConstNumber:
		return strconv.FormatFloat(c.Number, 'g', 14, 64)
	case ConstString:
		return strconv.Quote(c.Str)
	default:
		return c.Kind.String()
	}
}
