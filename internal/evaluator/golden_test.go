package evaluator_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"conceptum/internal/assembler"
	"conceptum/internal/evaluator"
	"conceptum/internal/filetest"
)

var update = flag.Bool("update", false, "update golden .want files instead of checking them")

// TestGoldenPrograms assembles and evaluates every testdata/asm/*.asm
// program and diffs its stdout against the matching .want golden file.
func TestGoldenPrograms(t *testing.T) {
	dir := filepath.Join("testdata", "asm")
	for _, fi := range filetest.SourceFiles(t, dir, ".asm") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			source, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			prog, derr := assembler.Assemble(source, nil)
			require.Nil(t, derr)
			require.Nil(t, assembler.Validate(prog))

			var out bytes.Buffer
			_, derr = evaluator.Run(prog, evaluator.Config{Stdout: &out})
			require.Nil(t, derr)

			filetest.DiffOutput(t, fi, out.String(), dir, update)
		})
	}
}
