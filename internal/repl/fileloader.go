package repl

import (
	"fmt"
	"os"
	"path/filepath"

	"gotacit/internal/compiler"
	"gotacit/internal/tconfig"
	"gotacit/internal/tlog"
)

// FileLoader resolves `include "path"` targets against the including
// source's directory, then FileLoader.IncludePaths, then the bare target — the
// generalization of the teacher's "read every file up front" flow
// (main.go's NewVirtualMachine) into a resolver the compiler can call
// mid-compile instead of only at startup.
type FileLoader struct {
	IncludePaths []string
}

// ResolveInclude implements compiler.IncludeHost.
func (f *FileLoader) ResolveInclude(target, currentSource string) (canonicalPath, source string, err error) {
	candidates := make([]string, 0, 1+len(f.IncludePaths))
	if currentSource != "" && currentSource != "<stdin>" {
		candidates = append(candidates, filepath.Join(filepath.Dir(currentSource), target))
	}
	for _, dir := range f.IncludePaths {
		candidates = append(candidates, filepath.Join(dir, target))
	}
	candidates = append(candidates, target)

	for _, path := range candidates {
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			continue
		}
		abs, aerr := filepath.Abs(path)
		if aerr != nil {
			abs = path
		}
		return abs, string(data), nil
	}
	return "", "", fmt.Errorf("no such file: %s", target)
}

// Run implements §6.6's CLI contract: compile and run each file in
// argument order against a single session, then, unless cfg.NoInteractive
// is set, hand off to an interactive Loop on stdin/stdout.
func (f *FileLoader) Run(cfg tconfig.Config, paths []string, stdin *os.File, out *os.File) error {
	log := tlog.New(out, os.Stderr, cfg.Debug)
	r := New(cfg, f, out, log)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if err := r.RunSource(abs, string(data)); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return err
		}
	}

	if !cfg.NoInteractive {
		r.Loop(stdin, "")
	}
	return nil
}

var _ compiler.IncludeHost = (*FileLoader)(nil)
