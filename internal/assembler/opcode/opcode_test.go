package opcode_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"conceptum/internal/assembler/opcode"
)

func TestStringEveryOpcode(t *testing.T) {
	for op := opcode.NOP; op <= opcode.CALL; op++ {
		s := op.String()
		require.NotEmpty(t, s)
		require.False(t, strings.HasPrefix(s, "opcode("), "opcode %d missing a name", op)
	}
}

func TestLookupRoundTrips(t *testing.T) {
	cases := []struct {
		mnemonic string
		want     opcode.Opcode
	}{
		{"iadd", opcode.IADD},
		{"if_icmple", opcode.IF_ICMPLE},
		{"ret", opcode.RETURN},
		{"ter", opcode.RETURN},
		{"halt", opcode.HALT},
	}
	for _, c := range cases {
		op, ok := opcode.Lookup(c.mnemonic)
		require.True(t, ok, c.mnemonic)
		require.Equal(t, c.want, op)
	}
}

func TestLookupUnknownMnemonic(t *testing.T) {
	_, ok := opcode.Lookup("nope")
	require.False(t, ok)
}

func TestHasPayload(t *testing.T) {
	require.False(t, opcode.IADD.HasPayload())
	require.False(t, opcode.RETURN.HasPayload())
	require.True(t, opcode.ICONST.HasPayload())
	require.True(t, opcode.CALL.HasPayload())
}

func TestIsJump(t *testing.T) {
	require.True(t, opcode.GOTO.IsJump())
	require.True(t, opcode.IF_ICMPLE.IsJump())
	require.False(t, opcode.CALL.IsJump())
}
