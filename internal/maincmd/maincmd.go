// Package maincmd wires Conceptum's command-line surface: a single
// positional source-file argument, parsed with github.com/mna/mainer
// exactly as the teacher's own command wires its (much larger) surface
// (spec.md §6 treats argument parsing itself as a collaborator, out of
// scope for the VM core).
package maincmd

import (
	"fmt"
	"os"

	"github.com/mna/mainer"

	"conceptum/internal/arena"
	"conceptum/internal/assembler"
	"conceptum/internal/diagnostic"
	"conceptum/internal/evaluator"
)

const binName = "conceptum"

var usage = fmt.Sprintf(`usage: %s <source-file>
       %[1]s -h|--help

Assembles and evaluates a Conceptum bytecode source file.
`, binName)

// Cmd is the conceptum binary's single command: no subcommands, one
// positional source-file argument.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help bool `flag:"h,help"`

	args  []string
	flags map[string]bool
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

// Validate enforces spec.md §6's argument contract: at most one positional
// argument. A missing argument is not an error here — Main treats it as a
// request for usage, exiting 0.
func (c *Cmd) Validate() error {
	if c.Help || len(c.args) == 0 {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("unexpected extra argument: %s", c.args[1])
	}
	return nil
}

// Main assembles and evaluates the source file named by the single
// positional argument, reporting any diagnostic.Error to stderr and
// translating its exit code (spec.md §6, §7).
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, usage)
		return mainer.InvalidArgs
	}

	if c.Help || len(c.args) == 0 {
		fmt.Fprint(stdio.Stdout, usage)
		return mainer.ExitCode(diagnostic.ExitUsage)
	}

	if derr := c.run(c.args[0], stdio); derr != nil {
		diagnostic.Report(stdio.Stderr, derr)
		return mainer.ExitCode(derr.Code)
	}
	return mainer.ExitCode(diagnostic.ExitHalt)
}

// run assembles path and evaluates the resulting Program, returning
// whatever diagnostic.Error stopped it (including the always-reported
// `halt` condition; nil means the entry procedure returned normally).
func (c *Cmd) run(path string, stdio mainer.Stdio) *diagnostic.Error {
	source, err := os.ReadFile(path)
	if err != nil {
		return diagnostic.Fatal(diagnostic.KindFile, diagnostic.ExitFileOpen, "cannot open %s: %s", path, err)
	}

	a := arena.New()
	defer a.ReleaseAll()

	prog, derr := assembler.Assemble(source, a)
	if derr != nil {
		return derr
	}
	if derr := assembler.Validate(prog); derr != nil {
		return derr
	}

	_, derr = evaluator.Run(prog, evaluator.Config{Stdout: stdio.Stdout, Stderr: stdio.Stderr})
	return derr
}
