// Package driver implements the external contract of the compiler: given a
// path to either a single .jack file or a directory of them, it compiles
// each into a sibling .vm file (spec.md §4.5).
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kjakx/jack-compiler/internal/diag"
	"github.com/kjakx/jack-compiler/pkg"
)

// Run compiles the file or directory at path, logging progress and failures
// to log, and returns the first error encountered.
func Run(path string, log *diag.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		wrapped := &jack.IoError{File: path, Op: "stat", Err: err}
		log.Errorf("%v", wrapped)
		return wrapped
	}

	if !info.IsDir() {
		return compileFile(path, log)
	}

	files, err := jackFilesIn(path)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	if len(files) == 0 {
		err := fmt.Errorf("%s: no .jack files found", path)
		log.Errorf("%v", err)
		return err
	}

	// Each file gets its own Lexer/SymbolTable/VMWriter/Compiler instance and
	// touches no shared state, so directory compilation fans out freely
	// (spec.md §5 "Driver parallelism").
	var g errgroup.Group
	for _, f := range files {
		f := f
		g.Go(func() error {
			return compileFile(f, log)
		})
	}

	return g.Wait()
}

func jackFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &jack.IoError{File: dir, Op: "readdir", Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".jack") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	return files, nil
}

// compileFile compiles one .jack file into a sibling .vm file with the same
// stem as the input file (spec.md §4.5 "Output naming").
func compileFile(path string, log *diag.Logger) error {
	lexer, err := jack.NewLexer(path)
	if err != nil {
		log.ErrorIf(err)
		return err
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".vm"
	vm, err := jack.NewVMWriter(outPath)
	if err != nil {
		log.ErrorIf(err)
		return err
	}

	c := jack.NewCompiler(lexer, vm, path)
	if err := c.Compile(); err != nil {
		log.ErrorIf(err)
		vm.Close()
		return err
	}

	if err := vm.Close(); err != nil {
		wrapped := &jack.IoError{File: outPath, Op: "close", Err: err}
		log.ErrorIf(wrapped)
		return wrapped
	}

	log.Infof("%s -> %s", path, outPath)
	return nil
}
