// Package bytecode holds the code object model of precompiled chunks and the
// two operations mlc performs on it: combining several top-level prototypes
// into one, and serializing a prototype tree into a binary chunk.
//
// The binary format is the Lua 5.1 precompiled chunk layout, with the
// numeric widths pinned by the header rather than taken from the host.
//
// # Architecture Overview
//
//   - Opcodes: the 38 register-machine opcodes, each with an addressing mode
//     (iABC, iABx, iAsBx) and operand usage, used for encoding and validation
//
//   - Instruction: a 32-bit word with a 6-bit opcode and 8/9/9-bit (or
//     8/18-bit) operand fields. Encoders refuse operands that do not fit
//     rather than truncating them
//
//   - Prototype and Arena: a compiled function body (code, constants, nested
//     prototypes, optional debug tables). Prototypes live in an Arena and
//     refer to their children by ProtoID, so the combined tree is built from
//     handles and never copies or re-parents an existing prototype
//
//   - Combine: wraps N prototypes in a vararg function that closes over each
//     in turn and calls it with the wrapper's own arguments
//
//   - Dumper: writes the header and then each prototype depth-first through an
//     io.Writer, optionally stripping the debug tables
//
//   - Disassemble: a text listing of a validated tree, parents first, with
//     constants, jump targets and nested functions annotated
//
// # Determinism
//
// Dump output depends only on the tree and the strip flag. Nothing derived
// from addresses, maps or time reaches the stream.
//
// Reading a chunk back is limited to ReadHeader, which lets tools reject a
// file produced for another format version.
package bytecode
