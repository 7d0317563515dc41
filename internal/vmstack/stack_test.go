package vmstack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"conceptum/internal/value"
	"conceptum/internal/vmstack"
)

func TestPushPopOrder(t *testing.T) {
	s := vmstack.New(4)
	require.True(t, s.IsEmpty())

	s.Push(value.Int32(1))
	s.Push(value.Int32(2))
	s.Push(value.Int32(3))
	require.Equal(t, 3, s.Len())

	v, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, value.Int32(3), v)

	v, ok = s.Pop()
	require.True(t, ok)
	require.Equal(t, value.Int32(2), v)
}

func TestPopEmptyIsNonFatal(t *testing.T) {
	s := vmstack.New(2)
	v, ok := s.Pop()
	require.False(t, ok)
	require.Equal(t, value.Nil, v)
}

func TestPeekDoesNotPop(t *testing.T) {
	s := vmstack.New(2)
	s.Push(value.Int32(9))
	v, ok := s.Peek()
	require.True(t, ok)
	require.Equal(t, value.Int32(9), v)
	require.Equal(t, 1, s.Len())
}

func TestPushOnFullStackPanics(t *testing.T) {
	s := vmstack.New(1)
	s.Push(value.Int32(1))
	require.True(t, s.IsFull())

	defer func() {
		r := recover()
		require.True(t, vmstack.IsStackOverflow(r))
	}()
	s.Push(value.Int32(2))
	t.Fatal("expected panic")
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	require.Panics(t, func() { vmstack.New(0) })
}
