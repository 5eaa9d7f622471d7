package bytecode

import (
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// Chunk Format Constants
// ---------------------------------------------------------------------------

// Signature opens every precompiled chunk.
const Signature = "\x1bLua"

// FormatVersion identifies the instruction layout, opcode numbering and
// constant tags. Any change to them must bump it.
const FormatVersion byte = 0x51

// FormatOfficial is the only format variant produced.
const FormatOfficial byte = 0

// HeaderSize is the encoded size of Header.
const HeaderSize = 12

// Fixed widths of the numeric fields in the stream. They are properties of
// the format, not of the host.
const (
	IntSize         = 4 // counts, line numbers, pcs
	SizeTSize       = 4 // string lengths
	InstructionSize = 4
	NumberSize      = 8 // IEEE 754 double
)

// Header is the fixed preamble of a chunk.
type Header struct {
	Signature       [4]byte
	Version         byte
	Format          byte
	LittleEndian    bool
	IntSize         byte
	SizeTSize       byte
	InstructionSize byte
	NumberSize      byte
	Integral        bool
}

// DefaultHeader returns the header written by Dump.
func DefaultHeader() Header {
	h := Header{
		Version:         FormatVersion,
		Format:          FormatOfficial,
		LittleEndian:    true,
		IntSize:         IntSize,
		SizeTSize:       SizeTSize,
		InstructionSize: InstructionSize,
		NumberSize:      NumberSize,
	}
	copy(h.Signature[:], Signature)
	return h
}

// Bytes encodes the header.
func (h Header) Bytes() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, h.Signature[:]...)
	buf = append(buf, h.Version, h.Format, boolByte(h.LittleEndian))
	buf = append(buf, h.IntSize, h.SizeTSize, h.InstructionSize, h.NumberSize)
	buf = append(buf, boolByte(h.Integral))
	return buf
}

// ParseHeader decodes and checks a header. It refuses versions other than
// FormatVersion and size descriptors other than the fixed ones.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: header truncated at %d bytes", ErrBadSignature, len(data))
	}
	copy(h.Signature[:], data[0:4])
	if string(h.Signature[:]) != Signature {
		return h, fmt.Errorf("%w: got %q", ErrBadSignature, data[0:4])
	}
	h.Version = data[4]
	h.Format = data[5]
	h.LittleEndian = data[6] == 1
	h.IntSize = data[7]
	h.SizeTSize = data[8]
	h.InstructionSize = data[9]
	h.NumberSize = data[10]
	h.Integral = data[11] != 0

	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: 0x%02X (expected 0x%02X)", ErrUnsupportedVersion, h.Version, FormatVersion)
	}
	want := DefaultHeader()
	if h != want {
		return h, fmt.Errorf("%w: header %x (expected %x)", ErrIncompatibleFormat, data[:HeaderSize], want.Bytes())
	}
	return h, nil
}

// ReadHeader reads and checks the header at the start of r. The rest of the
// chunk is left unread.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	return ParseHeader(buf[:n])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
