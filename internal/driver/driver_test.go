package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kjakx/jack-compiler/internal/diag"
)

func writeJack(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunCompilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeJack(t, dir, "Main.jack", `class Main { function void main() { return; } }`)

	var buf bytes.Buffer
	log := diag.New(&buf)

	err := Run(path, log)
	assert.NoError(t, err)
	assert.Equal(t, 0, log.ExitCode())

	out, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	assert.NoError(t, err)
	assert.Contains(t, string(out), "function Main.main 0")
}

func TestRunCompilesDirectoryInParallel(t *testing.T) {
	dir := t.TempDir()
	writeJack(t, dir, "A.jack", `class A { function void f() { return; } }`)
	writeJack(t, dir, "B.jack", `class B { function void g() { return; } }`)

	var buf bytes.Buffer
	log := diag.New(&buf)

	err := Run(dir, log)
	assert.NoError(t, err)
	assert.Equal(t, 0, log.ExitCode())

	for _, name := range []string{"A.vm", "B.vm"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}
}

func TestRunReportsSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeJack(t, dir, "Bad.jack", `class Bad { function void f( { return; } }`)

	var buf bytes.Buffer
	log := diag.New(&buf)

	err := Run(path, log)
	assert.Error(t, err)
	assert.Equal(t, 1, log.ExitCode())
}

func TestRunRejectsMissingPath(t *testing.T) {
	var buf bytes.Buffer
	log := diag.New(&buf)

	err := Run(filepath.Join(t.TempDir(), "nope.jack"), log)
	assert.Error(t, err)
	assert.Equal(t, 1, log.ExitCode())
}
