package bytecode

import "fmt"

// CombinerSource is the source name given to a synthesized wrapper.
const CombinerSource = "=(mlc)"

// MaxUnits is the largest number of prototypes Combine can wrap: the index
// of the last one must fit the Bx field of CLOSURE.
const MaxUnits = MaxArgBx + 1

// Combine turns an ordered list of top-level prototypes into one.
//
// Every prototype must be a distinct top-level function without upvalues.
// A single prototype is returned as is. For several, a new vararg wrapper is
// added to the arena whose nested table is protos, in order, and whose code
// runs each of them in turn with the wrapper's own arguments:
//
//	CLOSURE  0 i    ; R(0) := closure(protos[i])
//	VARARG   1 0    ; R(1), ... := ...
//	CALL     0 0 1  ; R(0)(R(1), ...), results discarded
//	...
//	RETURN   0 1
//
// The wrapper therefore has 3*len(protos)+1 instructions and a stack of 2.
func Combine(a *Arena, protos []ProtoID) (ProtoID, error) {
	n := len(protos)
	if n == 0 {
		return 0, ErrEmptyInput
	}
	if n > MaxUnits {
		return 0, fmt.Errorf("%w: %d (limit %d)", ErrTooManyUnits, n, MaxUnits)
	}
	seen := make(map[ProtoID]bool, n)
	for i, id := range protos {
		p, err := a.Get(id)
		if err != nil {
			return 0, err
		}
		if seen[id] {
			return 0, fmt.Errorf("%w: unit %d repeats prototype %d", ErrInvalidProto, i, id)
		}
		seen[id] = true
		// A top-level prototype is closed with no upvalue captures.
		if p.NumUpvalues != 0 {
			return 0, fmt.Errorf("%w: unit %d (%s) expects %d upvalues", ErrInvalidProto, i, p.describe(id), p.NumUpvalues)
		}
	}
	if n == 1 {
		return protos[0], nil
	}

	w := &Prototype{
		Source:       CombinerSource,
		IsVararg:     true,
		MaxStackSize: 2,
		Code:         make([]Instruction, 0, 3*n+1),
		Nested:       make([]ProtoID, 0, n),
	}

	// VARARG B=0 and CALL B=0 pass every vararg through; CALL C=1 keeps no results.
	vararg, err := EncodeABC(OpVararg, 1, 0, 0)
	if err != nil {
		return 0, err
	}
	call, err := EncodeABC(OpCall, 0, 0, 1)
	if err != nil {
		return 0, err
	}
	ret, err := EncodeABC(OpReturn, 0, 1, 0)
	if err != nil {
		return 0, err
	}

	for i, id := range protos {
		idx := w.AddNested(id)
		closure, err := EncodeABx(OpClosure, 0, idx)
		if err != nil {
			return 0, fmt.Errorf("unit %d: %w", i, err)
		}
		w.Emit(closure)
		w.Emit(vararg)
		w.Emit(call)
	}
	w.Emit(ret)

	return a.Add(w), nil
}
