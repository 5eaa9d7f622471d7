package bytecode

import "errors"

// ---------------------------------------------------------------------------
// Error Types
// ---------------------------------------------------------------------------

var (
	ErrEmptyInput         = errors.New("no prototypes to combine")
	ErrTooManyUnits       = errors.New("too many units to combine")
	ErrIO                 = errors.New("write failed")
	ErrUnknownProto       = errors.New("unknown prototype handle")
	ErrInvalidProto       = errors.New("invalid prototype")
	ErrBadSignature       = errors.New("bad signature: not a precompiled chunk")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrIncompatibleFormat = errors.New("incompatible chunk format")
)
