// Package program implements Conceptum's Program Model: the assembled,
// call-resolved representation produced by the lexer/assembler and
// consumed by the evaluator (spec.md §3).
package program

import (
	"fmt"

	"github.com/dolthub/swiss"

	"conceptum/internal/assembler/opcode"
)

// Instruction pairs an Opcode with its optional payload. The payload's
// concrete type depends on op: a value.Value (Int32, Float32, Char or
// String) for the constants, an int instruction index for goto/if_icmple,
// or an int resolved procedure index for call (spec.md §3).
type Instruction struct {
	Op      opcode.Opcode
	Payload interface{}
}

// Procedure is an ordered, finite sequence of instructions, identified by
// its 0-based index in the owning Program's table (order of textual
// appearance; index 0 is the entry procedure) and by its declared name
// (unique, used only by the assembler to resolve `call`).
type Procedure struct {
	Name string
	Body []Instruction
}

// Len returns the number of instructions in the procedure.
func (p *Procedure) Len() int { return len(p.Body) }

// Program is the three-parallel-table Program Model: name, length (implicit
// in Body's length) and body, indexed by procedure index. It is built once
// by the assembler, remains immutable during execution, and is released at
// shutdown.
type Program struct {
	procedures []*Procedure
	byName     *swiss.Map[string, int]
}

// New returns an empty Program ready to receive procedures via Declare.
func New() *Program {
	return &Program{byName: swiss.NewMap[string, int](8)}
}

// Declare registers a new procedure named name and returns its index. It is
// used by the assembler's Pass A (discovery) to build the name table before
// any procedure body is compiled, so that forward `call` references can be
// resolved in Pass B (spec.md §4.1).
//
// Declaring a name twice is a fatal assembly error: procedure names must be
// unique (spec.md §3).
func (p *Program) Declare(name string) (int, error) {
	if _, ok := p.byName.Get(name); ok {
		return 0, fmt.Errorf("program: duplicate procedure name %q", name)
	}
	idx := len(p.procedures)
	p.procedures = append(p.procedures, &Procedure{Name: name})
	p.byName.Put(name, idx)
	return idx, nil
}

// SetBody assigns the compiled instruction vector to the procedure declared
// with index idx. Called once per procedure, after Pass B compiles its
// body.
func (p *Program) SetBody(idx int, body []Instruction) {
	p.procedures[idx].Body = body
}

// Lookup resolves a procedure name to its index, for call resolution.
func (p *Program) Lookup(name string) (int, bool) {
	return p.byName.Get(name)
}

// Len returns the number of procedures in the table.
func (p *Program) Len() int { return len(p.procedures) }

// Procedure returns the procedure at idx. idx must satisfy
// 0 <= idx < Len(); callers that derive idx from assembled bytecode can rely
// on the assembler having already validated it (spec.md §3, invariant 3).
func (p *Program) Procedure(idx int) *Procedure {
	return p.procedures[idx]
}

// Valid reports whether idx names a procedure in the table.
func (p *Program) Valid(idx int) bool {
	return idx >= 0 && idx < len(p.procedures)
}

// Entry returns the entry procedure's index, always 0 per spec.md §3.
func (p *Program) Entry() int { return 0 }
