// Package evaluator implements Conceptum's second phase: a recursive,
// procedure-structured evaluator that drives a typed operand stack per
// activation plus the single shared global stack (spec.md §4, §4.4).
//
// Each `call` recurses into runEvaluator for the callee's own activation,
// with Go's native call stack backing Conceptum's own; `ret` simply returns
// a value.Value up that Go call stack. `halt` and every fatal condition
// (stack overflow, numeric overflow, division by zero, an out-of-range
// control transfer) unwind the same way: as a panic carrying a
// *diagnostic.Error, recovered once at Run's top level so no per-activation
// plumbing is needed to thread a fatal condition back through arbitrarily
// deep `call` recursion.
package evaluator

import (
	"fmt"
	"io"
	"os"

	"conceptum/internal/assembler/opcode"
	"conceptum/internal/diagnostic"
	"conceptum/internal/program"
	"conceptum/internal/value"
	"conceptum/internal/vmstack"
)

// Config tunes the evaluator's stack capacities and recursion guard
// (spec.md §3 names the first three; MaxCallDepth is a Conceptum-supplied
// safety valve, see SPEC_FULL.md §1.3).
type Config struct {
	// OperandStackCap bounds the entry activation's operand stack. Zero
	// resolves to 30000.
	OperandStackCap int
	// GlobalStackCap bounds the single shared global stack. Zero resolves
	// to 30000.
	GlobalStackCap int
	// CallStackCap bounds each non-entry activation's operand stack, created
	// fresh per `call` (spec.md §4.4). Zero resolves to 10000.
	CallStackCap int
	// MaxCallDepth bounds `call` recursion depth. Zero resolves to 1000
	// (the original's documented, unused CALL_STACK_SIZE).
	MaxCallDepth int
	// Stdout receives `print` output. Nil resolves to os.Stdout.
	Stdout io.Writer
	// Stderr receives the info diagnostic a pop on an empty stack produces
	// (spec.md §4.2, §7: "Empty operand stack + `pop` -> info log, no
	// crash"). Nil resolves to os.Stderr.
	Stderr io.Writer
}

func (c Config) resolve() Config {
	if c.OperandStackCap <= 0 {
		c.OperandStackCap = 30000
	}
	if c.GlobalStackCap <= 0 {
		c.GlobalStackCap = 30000
	}
	if c.CallStackCap <= 0 {
		c.CallStackCap = 10000
	}
	if c.MaxCallDepth <= 0 {
		c.MaxCallDepth = 1000
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	return c
}

// evaluator is the state shared by every activation of a single Run: the
// immutable Program, the one shared global stack, and the depth counter the
// MaxCallDepth guard checks.
type evaluator struct {
	prog   *program.Program
	global *vmstack.Stack
	cfg    Config
	depth  int
}

// signal is the panic payload every fatal unwind path (overflow, div-by-
// zero, out-of-range jump, `halt`) raises; Run recovers exactly this type.
type signal struct {
	err *diagnostic.Error
}

// Run assembles no further: it evaluates an already-assembled Program
// starting at its entry procedure (spec.md §3: always index 0), returning
// the entry procedure's `ret` value on normal completion, or a
// *diagnostic.Error describing why evaluation stopped early (a fatal
// condition, or `halt`).
func Run(prog *program.Program, cfg Config) (result value.Value, derr *diagnostic.Error) {
	cfg = cfg.resolve()
	ev := &evaluator{
		prog:   prog,
		global: vmstack.New(cfg.GlobalStackCap),
		cfg:    cfg,
	}

	defer func() {
		if r := recover(); r != nil {
			if sig, ok := r.(signal); ok {
				result, derr = value.Nil, sig.err
				return
			}
			if vmstack.IsStackOverflow(r) {
				result, derr = value.Nil, diagnostic.Fatal(diagnostic.KindStackOverflow,
					diagnostic.ExitAllocOutOfMemory, "operand stack overflow")
				return
			}
			panic(r) // not ours: a genuine bug, let it surface
		}
	}()

	operands := vmstack.New(cfg.OperandStackCap)
	result = ev.call(prog.Entry(), operands)
	return result, nil
}

// abort raises a fatal diagnostic, unwinding every pending activation back
// to Run's recover.
func abort(kind diagnostic.Kind, code int, format string, args ...interface{}) {
	panic(signal{err: diagnostic.Fatal(kind, code, format, args...)})
}

// call evaluates the procedure at idx to completion and returns its `ret`
// value. Each call gets its own operand stack: the entry activation's is
// sized cfg.OperandStackCap, every nested one cfg.CallStackCap
// (spec.md §4.4).
func (ev *evaluator) call(idx int, operands *vmstack.Stack) value.Value {
	ev.depth++
	if ev.depth > ev.cfg.MaxCallDepth {
		abort(diagnostic.KindStackOverflow, diagnostic.ExitAllocOutOfMemory,
			"call stack depth exceeded %d", ev.cfg.MaxCallDepth)
	}
	defer func() { ev.depth-- }()

	proc := ev.prog.Procedure(idx)
	pc := 0
	for {
		if pc < 0 || pc >= proc.Len() {
			abort(diagnostic.KindControlTransfer, diagnostic.ExitMalformed,
				"program counter %d out of range in procedure %q", pc, proc.Name)
		}
		insn := proc.Body[pc]

		switch insn.Op {
		case opcode.NOP:
			pc++

		case opcode.IADD:
			pc = ev.binaryInt(operands, pc, func(a, b int64) int64 { return a + b })
		case opcode.IMUL:
			pc = ev.binaryInt(operands, pc, func(a, b int64) int64 { return a * b })
		case opcode.IDIV:
			a, b := ev.popTwoInt(operands)
			if b == 0 {
				abort(diagnostic.KindNumericOverflow, diagnostic.ExitConceptAbort, "division by zero")
			}
			ev.pushIntChecked(operands, a/b)
			pc++

		case opcode.FADD:
			pc = ev.binaryFloat(operands, pc, func(a, b float64) float64 { return a + b })
		case opcode.FMUL:
			pc = ev.binaryFloat(operands, pc, func(a, b float64) float64 { return a * b })
		case opcode.FDIV:
			a, b := ev.popTwoFloat(operands)
			if b == 0 {
				abort(diagnostic.KindNumericOverflow, diagnostic.ExitConceptAbort, "division by zero")
			}
			ev.pushFloatChecked(operands, a/b)
			pc++

		case opcode.ILT:
			a, b := ev.popTwoInt(operands)
			operands.Push(boolValue(a < b))
			pc++
		case opcode.IEQ:
			a, b := ev.popTwoInt(operands)
			operands.Push(boolValue(a == b))
			pc++
		case opcode.IGT:
			a, b := ev.popTwoInt(operands)
			operands.Push(boolValue(a > b))
			pc++
		case opcode.FLT:
			a, b := ev.popTwoFloat(operands)
			operands.Push(boolValue(a < b))
			pc++
		case opcode.FEQ:
			a, b := ev.popTwoFloat(operands)
			operands.Push(boolValue(a == b))
			pc++
		case opcode.FGT:
			a, b := ev.popTwoFloat(operands)
			operands.Push(boolValue(a > b))
			pc++

		case opcode.AND:
			p, q := ev.popTwoBool(operands)
			operands.Push(boolValue(p && q))
			pc++
		case opcode.OR:
			p, q := ev.popTwoBool(operands)
			operands.Push(boolValue(p || q))
			pc++
		case opcode.XOR:
			p, q := ev.popTwoBool(operands)
			operands.Push(boolValue(p != q))
			pc++
		case opcode.NE:
			p := ev.popBool(operands)
			operands.Push(boolValue(!p))
			pc++
		case opcode.IF:
			// spec.md §8's implication law is stated in program-text order:
			// `bconst p; bconst q; if` yields 1 iff (p=0 or q=1). p is
			// pushed first (second popped), q second (first popped), so in
			// pop order the formula is (first-popped) or not(second-popped).
			first, second := ev.popTwoBool(operands)
			operands.Push(boolValue(first || !second))
			pc++

		case opcode.POP:
			ev.pop(operands)
			pc++
		case opcode.DUP:
			v := ev.pop(operands)
			operands.Push(v)
			operands.Push(v)
			pc++
		case opcode.SWAP:
			// spec.md §9: `swap` is documented as summing its two operands,
			// not exchanging them.
			a, b := ev.popTwoInt(operands)
			ev.pushIntChecked(operands, a+b)
			pc++
		case opcode.INC:
			v := value.AsInt32(ev.pop(operands))
			ev.pushIntChecked(operands, int64(v)+1)
			pc++
		case opcode.DEC:
			v := value.AsInt32(ev.pop(operands))
			ev.pushIntChecked(operands, int64(v)-1)
			pc++

		case opcode.GSTORE:
			v := ev.pop(operands)
			ev.global.Push(v)
			pc++
		case opcode.GLOAD:
			v, ok := ev.global.Pop()
			if !ok {
				ev.logUnderflow()
				v = value.Nil
			}
			operands.Push(v)
			pc++

		case opcode.PRINT:
			v, ok := operands.Peek()
			if ok {
				fmt.Fprint(ev.cfg.Stdout, v.String())
			}
			pc++

		case opcode.VCONST:
			operands.Push(value.Nil)
			pc++

		case opcode.CCONST, opcode.ICONST, opcode.FCONST, opcode.SCONST:
			operands.Push(insn.Payload.(value.Value))
			pc++
		case opcode.BCONST:
			n := insn.Payload.(value.Int32)
			operands.Push(boolValue(n != 0))
			pc++

		case opcode.GOTO:
			pc = insn.Payload.(int)

		case opcode.IF_ICMPLE:
			// spec.md §9: branches when the popped condition is false, not
			// true — the mnemonic's comparison-like name is a historical
			// artifact of the original instruction set, not a description
			// of its actual semantics.
			p := ev.popBool(operands)
			if !p {
				pc = insn.Payload.(int)
			} else {
				pc++
			}

		case opcode.CALL:
			callee := insn.Payload.(int)
			callStack := vmstack.New(ev.cfg.CallStackCap)
			result := ev.call(callee, callStack)
			operands.Push(result)
			pc++

		case opcode.RETURN:
			v, ok := operands.Pop()
			if !ok {
				ev.logUnderflow()
				v = value.Nil
			}
			return v

		case opcode.HALT:
			abort(diagnostic.KindHalt, diagnostic.ExitHalt, "halt")

		default:
			abort(diagnostic.KindAssembler, diagnostic.ExitMalformed, "unhandled opcode %s", insn.Op)
		}
	}
}

// pop pops operands, substituting the Void sentinel on underflow rather
// than treating it as fatal (spec.md §4.2). The underflow itself is still
// reported: spec.md §7's worked example requires an info log, not a silent
// substitution.
func (ev *evaluator) pop(operands *vmstack.Stack) value.Value {
	v, ok := operands.Pop()
	if !ok {
		ev.logUnderflow()
		return value.Nil
	}
	return v
}

// logUnderflow reports the one non-fatal diagnostic kind spec.md §7 names:
// a pop on an empty stack.
func (ev *evaluator) logUnderflow() {
	diagnostic.Report(ev.cfg.Stderr, diagnostic.Info("pop on empty stack"))
}

// popTwoInt pops the instruction's two operands: a is the first pop (the
// top of the stack, the most recently pushed value), b is the second pop
// (spec.md §4.3: "first pop = A, second pop = B"). Binary ops compute A⊕B
// directly — for `idiv`/`fdiv` this makes B the divisor. Both are widened
// to int64 so the caller can overflow-check the result before truncating
// back to Int32.
func (ev *evaluator) popTwoInt(operands *vmstack.Stack) (a, b int64) {
	av := value.AsInt32(ev.pop(operands))
	bv := value.AsInt32(ev.pop(operands))
	return int64(av), int64(bv)
}

func (ev *evaluator) popTwoFloat(operands *vmstack.Stack) (a, b float64) {
	av := value.AsFloat32(ev.pop(operands))
	bv := value.AsFloat32(ev.pop(operands))
	return float64(av), float64(bv)
}

func (ev *evaluator) popTwoBool(operands *vmstack.Stack) (a, b bool) {
	av := value.AsBool(ev.pop(operands))
	bv := value.AsBool(ev.pop(operands))
	return bool(av), bool(bv)
}

func (ev *evaluator) popBool(operands *vmstack.Stack) bool {
	return bool(value.AsBool(ev.pop(operands)))
}

func (ev *evaluator) binaryInt(operands *vmstack.Stack, pc int, op func(a, b int64) int64) int {
	a, b := ev.popTwoInt(operands)
	ev.pushIntChecked(operands, op(a, b))
	return pc + 1
}

func (ev *evaluator) binaryFloat(operands *vmstack.Stack, pc int, op func(a, b float64) float64) int {
	a, b := ev.popTwoFloat(operands)
	ev.pushFloatChecked(operands, op(a, b))
	return pc + 1
}

// pushIntChecked range-checks n, computed at int64 (native) width, against
// int32 before truncating and pushing (spec.md §4.3, §9): the check happens
// before the value is stored, not by inspecting the truncated result for
// wraparound.
func (ev *evaluator) pushIntChecked(operands *vmstack.Stack, n int64) {
	const maxInt32 = 1<<31 - 1
	const minInt32 = -1 << 31
	if n > maxInt32 || n < minInt32 {
		abort(diagnostic.KindNumericOverflow, diagnostic.ExitConceptAbort,
			"integer overflow: %d out of int32 range", n)
	}
	operands.Push(value.Int32(int32(n)))
}

// pushFloatChecked range-checks f against float32 before truncating and
// pushing, mirroring pushIntChecked's pre-store check for the float
// arithmetic opcodes.
func (ev *evaluator) pushFloatChecked(operands *vmstack.Stack, f float64) {
	const maxFloat32 = 3.40282346638528859811704183484516925440e+38
	if f > maxFloat32 || f < -maxFloat32 {
		abort(diagnostic.KindNumericOverflow, diagnostic.ExitConceptAbort,
			"float overflow: %g out of float32 range", f)
	}
	operands.Push(value.Float32(float32(f)))
}

func boolValue(b bool) value.Bool {
	if b {
		return value.True
	}
	return value.False
}
