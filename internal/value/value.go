// Package value implements Conceptum's tagged runtime value: the sum type
// shared by every stack slot, constant payload, and global-stack entry.
package value

import (
	"fmt"
	"strconv"
)

// Value is the interface implemented by every runtime value the evaluator
// can push, pop, or print. Unlike a dynamically typed language's value
// protocol, Conceptum's value set is closed: the six variants below are the
// only producers, and an opcode that pops the wrong variant is a bytecode
// bug, not a condition the runtime type-checks for.
type Value interface {
	// String returns the textual form used by the `print` instruction and by
	// diagnostics.
	String() string

	// Type names the variant, for error messages.
	Type() string
}

// Int32 is a 32-bit signed integer value. Conceptum's Bool values convert to
// an Int32 of 0 or 1 (see Bool.Int32 and AsInt32).
type Int32 int32

func (i Int32) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int32) Type() string   { return "int" }

// Float32 is an IEEE-754 single-precision floating point value.
type Float32 float32

func (f Float32) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 32) }
func (f Float32) Type() string   { return "float" }

// Char is a single character value, produced by `cconst`.
type Char rune

func (c Char) String() string { return string(rune(c)) }
func (c Char) Type() string   { return "char" }

// String is an immutable text value, produced by `sconst`.
type String string

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "string" }

// Bool is a boolean value, represented as an Int32 in {0, 1} per spec.md §3
// but given its own Go type so producers and consumers of boolean opcodes
// (comparisons, `and`/`or`/`xor`/`ne`/`if`) don't have to interpret a bare
// Int32's truthiness by convention.
type Bool bool

// True and False are the canonical Bool values pushed by comparison and
// boolean-algebra opcodes.
const (
	True  Bool = true
	False Bool = false
)

func (b Bool) String() string {
	if b {
		return "1"
	}
	return "0"
}
func (b Bool) Type() string { return "bool" }

// Int32 returns the Int32 encoding of b (0 or 1), matching spec.md §3's
// "Bool represented as Int32 ∈ {0,1}".
func (b Bool) Int32() Int32 {
	if b {
		return 1
	}
	return 0
}

// BoolFromInt32 interprets an Int32 as a boolean: any non-zero value is
// true, matching `bconst`'s {0,1} domain and the evaluator's tolerance of
// reading a raw Int32 where a Bool is expected.
func BoolFromInt32(i Int32) Bool { return i != 0 }

// Void is the sentinel value produced by `vconst` and by popping an empty
// Stack (spec.md §4.2, "Pop-on-empty is non-fatal by design").
type Void struct{}

func (Void) String() string { return "<void>" }
func (Void) Type() string   { return "void" }

// Nil is the single Void value. Named distinctly from the zero Value
// (nil interface) so producers never have to distinguish "no value" from
// "the Void value" — Conceptum's Void is always this non-nil instance.
var Nil Value = Void{}

// AsInt32 asserts v is an Int32 (or a Bool, returned as its Int32 encoding),
// panicking otherwise: a wrong-variant pop is a bytecode bug (spec.md §9),
// not a runtime-checked condition.
func AsInt32(v Value) Int32 {
	switch v := v.(type) {
	case Int32:
		return v
	case Bool:
		return v.Int32()
	default:
		panic(fmt.Sprintf("value: expected int, got %s", v.Type()))
	}
}

// AsFloat32 asserts v is a Float32.
func AsFloat32(v Value) Float32 {
	f, ok := v.(Float32)
	if !ok {
		panic(fmt.Sprintf("value: expected float, got %s", v.Type()))
	}
	return f
}

// AsBool asserts v is a Bool, or an Int32 interpreted as a Bool.
func AsBool(v Value) Bool {
	switch v := v.(type) {
	case Bool:
		return v
	case Int32:
		return BoolFromInt32(v)
	default:
		panic(fmt.Sprintf("value: expected bool, got %s", v.Type()))
	}
}
