// Package assembler implements Conceptum's lexer/assembler: the two-pass
// transformation from a line-oriented textual program into a compact,
// call-resolved Program Model (spec.md §4.1).
//
// Pass A (discovery) scans every line once, recording each procedure's name
// and the line range of its body. Pass B then compiles each procedure's
// body into an Instruction vector, resolving `call` operands against the
// name table Pass A already built — which is what lets `call` reference a
// procedure declared later in the file.
package assembler

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"conceptum/internal/arena"
	"conceptum/internal/assembler/opcode"
	"conceptum/internal/diagnostic"
	"conceptum/internal/program"
	"conceptum/internal/value"
)

const procedureToken = "procedure"
const procedureSeparator = "procedure " // length 10, per spec.md §4.1
const returnToken = "ret"

// procRange is the line range of one procedure's body, discovered in Pass A:
// [bodyStart, bodyEnd] are 0-based indices into the source line slice,
// inclusive, with bodyEnd pointing at the line containing "ret".
type procRange struct {
	name      string
	bodyStart int
	bodyEnd   int
}

// Assemble compiles source into a Program Model. a, if non-nil, records the
// allocations made during assembly for bulk release at shutdown
// (spec.md §4.5); it may be nil in tests that don't care about the arena.
func Assemble(source []byte, a *arena.Arena) (*program.Program, *diagnostic.Error) {
	lines, derr := splitLines(source)
	if derr != nil {
		return nil, derr
	}

	prog := program.New()
	ranges, derr := discover(lines, prog)
	if derr != nil {
		return nil, derr
	}

	if a != nil {
		a.Track("program", func() {})
	}

	for idx, r := range ranges {
		body, derr := compileBody(lines[r.bodyStart:r.bodyEnd+1], prog)
		if derr != nil {
			return nil, derr
		}
		prog.SetBody(idx, body)
		if a != nil {
			a.Track(fmt.Sprintf("procedure body %q", r.name), func() {})
		}
	}

	return prog, nil
}

// splitLines breaks source into lines with trailing CR/LF stripped
// (spec.md §4.1: "trailing CR/LF is stripped").
func splitLines(source []byte) ([]string, *diagnostic.Error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, diagnostic.Fatal(diagnostic.KindAllocation, diagnostic.ExitAllocGrow3, "reading source: %s", err)
	}
	return lines, nil
}

// hasToken reports whether line contains tok as a whitespace-delimited
// field.
func hasToken(line, tok string) bool {
	for _, f := range strings.Fields(line) {
		if f == tok {
			return true
		}
	}
	return false
}

// discover is Pass A: it scans every line, registers each procedure header
// in prog (so forward `call` references resolve in Pass B), and records
// each procedure's body line range.
func discover(lines []string, prog *program.Program) ([]procRange, *diagnostic.Error) {
	var ranges []procRange

	i := 0
	for i < len(lines) {
		line := lines[i]
		if !hasToken(line, procedureToken) {
			if strings.TrimSpace(line) != "" {
				return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
					"expected a procedure header, got %q", line)
			}
			i++
			continue
		}

		pos := strings.Index(line, procedureSeparator)
		if pos < 0 {
			return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"malformed procedure header: %q", line)
		}
		name := strings.TrimSpace(line[pos+len(procedureSeparator):])
		if name == "" {
			return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"procedure header missing a name: %q", line)
		}

		if _, err := prog.Declare(name); err != nil {
			return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed, "%s", err)
		}

		bodyStart := i + 1
		bodyEnd := bodyStart
		for bodyEnd < len(lines) && !hasToken(lines[bodyEnd], returnToken) {
			if strings.TrimSpace(lines[bodyEnd]) == "" {
				return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
					"blank line inside procedure %q body", name)
			}
			bodyEnd++
		}
		if bodyEnd >= len(lines) {
			return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"procedure %q is missing a terminating ret", name)
		}

		ranges = append(ranges, procRange{name: name, bodyStart: bodyStart, bodyEnd: bodyEnd})
		i = bodyEnd + 1
	}

	if len(ranges) == 0 {
		return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed, "program has no procedures")
	}
	return ranges, nil
}

// compileBody is Pass B for a single procedure: split each line on the
// first whitespace run into (mnemonic, argument), resolve the mnemonic to
// an Opcode, and parse the argument according to spec.md §4.1's per-
// mnemonic operand rules.
func compileBody(lines []string, prog *program.Program) ([]program.Instruction, *diagnostic.Error) {
	body := make([]program.Instruction, 0, len(lines))
	for _, line := range lines {
		mnemonic, arg, hasArg := splitMnemonic(line)

		op, ok := opcode.Lookup(mnemonic)
		if !ok {
			return nil, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"unknown mnemonic: %s", mnemonic)
		}

		insn, derr := compileOperand(op, arg, hasArg, len(body), prog)
		if derr != nil {
			return nil, derr
		}
		body = append(body, insn)
	}
	return body, nil
}

// splitMnemonic splits a non-blank instruction line on the first
// whitespace run into (mnemonic, argument). The argument runs from the
// first non-whitespace after the mnemonic to end-of-line (spec.md §6).
func splitMnemonic(line string) (mnemonic, arg string, hasArg bool) {
	trimmed := strings.TrimLeft(line, " \t")
	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return trimmed, "", false
	}
	mnemonic = trimmed[:idx]
	arg = strings.TrimLeft(trimmed[idx:], " \t")
	return mnemonic, arg, arg != ""
}

func compileOperand(op opcode.Opcode, arg string, hasArg bool, indexInBody int, prog *program.Program) (program.Instruction, *diagnostic.Error) {
	if !op.HasPayload() {
		if hasArg {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: %s does not take an argument", indexInBody, op)
		}
		return program.Instruction{Op: op}, nil
	}

	if !hasArg {
		return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
			"instruction %d: %s requires an argument", indexInBody, op)
	}

	switch op {
	case opcode.ICONST:
		n, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: invalid integer argument to %s: %s", indexInBody, op, arg)
		}
		return program.Instruction{Op: op, Payload: value.Int32(n)}, nil

	case opcode.BCONST:
		n, err := strconv.ParseInt(arg, 10, 32)
		if err != nil || (n != 0 && n != 1) {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: invalid boolean argument to bconst: %s (must be 0 or 1)", indexInBody, arg)
		}
		return program.Instruction{Op: op, Payload: value.Int32(n)}, nil

	case opcode.FCONST:
		f, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: invalid float argument to fconst: %s", indexInBody, arg)
		}
		return program.Instruction{Op: op, Payload: value.Float32(float32(f))}, nil

	case opcode.CCONST:
		r := []rune(arg)
		if len(r) == 0 {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: cconst requires a character argument", indexInBody)
		}
		return program.Instruction{Op: op, Payload: value.Char(r[0])}, nil

	case opcode.SCONST:
		return program.Instruction{Op: op, Payload: value.String(arg)}, nil

	case opcode.GOTO, opcode.IF_ICMPLE:
		n, err := strconv.ParseInt(arg, 10, 32)
		if err != nil || n < 0 {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: invalid instruction index argument to %s: %s", indexInBody, op, arg)
		}
		return program.Instruction{Op: op, Payload: int(n)}, nil

	case opcode.CALL:
		idx, ok := prog.Lookup(arg)
		if !ok {
			return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
				"instruction %d: call to undeclared procedure: %s", indexInBody, arg)
		}
		return program.Instruction{Op: op, Payload: idx}, nil

	default:
		// Unreachable: every payload-bearing opcode is handled above.
		return program.Instruction{}, diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
			"instruction %d: internal error: unhandled payload opcode %s", indexInBody, op)
	}
}

// Validate checks the Program Model invariants spec.md §8 requires of every
// assembled program: every jump target lies within its own procedure, and
// every call target is a valid procedure index. Assemble resolves call
// targets while compiling but only rejects negative jump targets; a jump
// past the end of its procedure is caught here, not by Assemble.
func Validate(prog *program.Program) *diagnostic.Error {
	for i := 0; i < prog.Len(); i++ {
		proc := prog.Procedure(i)
		for _, insn := range proc.Body {
			switch insn.Op {
			case opcode.GOTO, opcode.IF_ICMPLE:
				target := insn.Payload.(int)
				if target < 0 || target >= proc.Len() {
					return diagnostic.Fatal(diagnostic.KindControlTransfer, diagnostic.ExitMalformed,
						"%s target %d out of range in procedure %q (length %d)", insn.Op, target, proc.Name, proc.Len())
				}
			case opcode.CALL:
				target := insn.Payload.(int)
				if !prog.Valid(target) {
					return diagnostic.Fatal(diagnostic.KindAssembler, diagnostic.ExitMalformed,
						"call target %d out of range in procedure %q", target, proc.Name)
				}
			}
		}
	}
	return nil
}
