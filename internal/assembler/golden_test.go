package assembler_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"conceptum/internal/assembler"
	"conceptum/internal/filetest"
)

var update = flag.Bool("update", false, "update golden .err files instead of checking them")

// TestGoldenAssembleErrors assembles every testdata/asm/*.asm program that is
// expected to fail and diffs the resulting diagnostic line against the
// matching .err golden file.
func TestGoldenAssembleErrors(t *testing.T) {
	dir := filepath.Join("testdata", "asm")
	for _, fi := range filetest.SourceFiles(t, dir, ".asm") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			source, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			_, derr := assembler.Assemble(source, nil)
			require.NotNil(t, derr)

			filetest.DiffErrors(t, fi, derr.Error()+"\n", dir, update)
		})
	}
}
