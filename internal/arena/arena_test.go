package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"conceptum/internal/arena"
)

func TestTrackAndReleaseAll(t *testing.T) {
	a := arena.New()
	var released []string

	a.Track("first", func() { released = append(released, "first") })
	a.Track("second", func() { released = append(released, "second") })

	created, live := a.Stats()
	require.Equal(t, 2, created)
	require.Equal(t, 2, live)
	require.Equal(t, []string{"first", "second"}, a.Live())

	a.ReleaseAll()
	require.Equal(t, []string{"first", "second"}, released)

	_, live = a.Stats()
	require.Equal(t, 0, live)
}

func TestFreeIndividual(t *testing.T) {
	a := arena.New()
	freed := false
	h := a.Track("only", func() { freed = true })

	a.Free(h)
	require.True(t, freed)

	_, live := a.Stats()
	require.Equal(t, 0, live)
}

func TestLiveIsSorted(t *testing.T) {
	a := arena.New()
	a.Track("zebra", func() {})
	a.Track("apple", func() {})
	a.Track("mango", func() {})

	require.Equal(t, []string{"apple", "mango", "zebra"}, a.Live())
}
