package assembler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"conceptum/internal/assembler"
	"conceptum/internal/assembler/opcode"
	"conceptum/internal/program"
)

func TestAssembleErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		err  string
	}{
		{"empty source", ``, "program has no procedures"},
		{"missing ret", "procedure main\n  iconst 1\n", "missing a terminating ret"},
		{"blank line in body", "procedure main\n  iconst 1\n\n  ret\n", "blank line inside procedure"},
		{"unknown mnemonic", "procedure main\n  frobnicate\n  ret\n", "unknown mnemonic: frobnicate"},
		{"duplicate procedure", "procedure main\n  ret\nprocedure main\n  ret\n", "duplicate procedure name"},
		{"call to undeclared", "procedure main\n  call missing\n  ret\n", "call to undeclared procedure"},
		{"missing argument", "procedure main\n  iconst\n  ret\n", "requires an argument"},
		{"unexpected argument", "procedure main\n  pop 1\n  ret\n", "does not take an argument"},
		{"bad iconst", "procedure main\n  iconst abc\n  ret\n", "invalid integer argument"},
		{"bad bconst", "procedure main\n  bconst 2\n  ret\n", "invalid boolean argument"},
		{"bad fconst", "procedure main\n  fconst xyz\n  ret\n", "invalid float argument"},
		{"malformed header", "procedure\n  ret\n", "malformed procedure header"},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, derr := assembler.Assemble([]byte(c.src), nil)
			require.Error(t, derr)
			require.Contains(t, derr.Error(), c.err)
		})
	}
}

func TestAssembleValidProgram(t *testing.T) {
	src := "procedure main\n  iconst 1\n  iconst 2\n  iadd\n  ret\n"
	prog, derr := assembler.Assemble([]byte(src), nil)
	require.Nil(t, derr)
	require.Equal(t, 1, prog.Len())

	proc := prog.Procedure(0)
	require.Equal(t, "main", proc.Name)
	require.Equal(t, 4, proc.Len())
	require.Equal(t, opcode.IADD, proc.Body[2].Op)
}

func TestAssembleResolvesForwardCall(t *testing.T) {
	src := "procedure main\n  call helper\n  ret\nprocedure helper\n  iconst 1\n  ret\n"
	prog, derr := assembler.Assemble([]byte(src), nil)
	require.Nil(t, derr)

	main := prog.Procedure(0)
	require.Equal(t, opcode.CALL, main.Body[0].Op)
	require.Equal(t, 1, main.Body[0].Payload)
}

func TestValidateCatchesOutOfRangeJump(t *testing.T) {
	prog := program.New()
	idx, _ := prog.Declare("main")
	prog.SetBody(idx, []program.Instruction{
		{Op: opcode.GOTO, Payload: 5},
	})

	derr := assembler.Validate(prog)
	require.Error(t, derr)
	require.Contains(t, derr.Error(), "out of range")
}

func TestValidateAcceptsWellFormedProgram(t *testing.T) {
	src := "procedure main\n  goto 0\n  ret\n"
	prog, derr := assembler.Assemble([]byte(src), nil)
	require.Nil(t, derr)
	require.Nil(t, assembler.Validate(prog))
}
