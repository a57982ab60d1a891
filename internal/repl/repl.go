// Package repl implements the interactive line loop and file-batch
// runner that sit on top of interp/compiler (spec §6.1, §6.6) — the
// direct generalization of the teacher's ExecProgramDebugMode stdin loop
// (bufio.NewReader(os.Stdin) + ReadString('\n')) onto Tacit's
// compile-then-run-a-chunk cycle instead of one-instruction-at-a-time
// stepping.
package repl

import (
	"bufio"
	"fmt"
	"io"

	"gotacit/internal/compiler"
	"gotacit/internal/format"
	"gotacit/internal/interp"
	"gotacit/internal/tconfig"
	"gotacit/internal/tlog"
	"gotacit/internal/vmstate"
)

// REPL owns one VM and Compiler for the lifetime of a session: successive
// lines extend the same dictionary, GLOBAL heap, and CODE segment (spec
// §9's single-session model).
type REPL struct {
	VM       *vmstate.VM
	Compiler *compiler.Compiler
	Out      io.Writer
	Log      *tlog.Logger
}

// New builds a REPL with a fresh VM sized by cfg, writing console output
// (the `.`/`print` opcodes) and prompts/errors to out.
func New(cfg tconfig.Config, host compiler.IncludeHost, out io.Writer, log *tlog.Logger) *REPL {
	vm := vmstate.New(cfg.Layout())
	vm.Out = out
	return &REPL{
		VM:       vm,
		Compiler: compiler.New(vm, host),
		Out:      out,
		Log:      log,
	}
}

// RunSource compiles and immediately runs one chunk (one REPL line, or
// one included/loaded file's worth of source), leaving the VM's
// dictionary and GLOBAL heap extended for whatever comes next.
func (r *REPL) RunSource(sourceName, source string) error {
	start, end, err := r.Compiler.CompileChunk(sourceName, source)
	if err != nil {
		return err
	}
	r.VM.Running = true
	r.VM.IP = start
	return interp.RunUntil(r.VM, end)
}

// Loop reads lines from in until EOF, compiling and running each as its
// own chunk and reporting errors without exiting the process — the
// teacher's debug-loop shape (print state, keep going) minus the
// single-step/breakpoint machinery, which has no counterpart here.
func (r *REPL) Loop(in io.Reader, prompt string) {
	scanner := bufio.NewScanner(in)
	for {
		if prompt != "" {
			fmt.Fprint(r.Out, prompt)
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := r.RunSource("<stdin>", line); err != nil {
			fmt.Fprintf(r.Out, "Error: %v (stack depth %d)\n", err, r.stackDepth())
			r.Log.Debugf("recovering compiler state after: %v", err)
			r.Compiler.Recover()
			r.VM.Running = true
			continue
		}
		r.printTop()
	}
}

// printTop renders the data stack top after a line, REPL-style, if
// anything is left on it (a bare expression's result).
func (r *REPL) printTop() {
	if r.VM.SP <= r.VM.StackBase() {
		return
	}
	s, _, err := format.Value(r.VM, 0)
	if err != nil {
		return
	}
	fmt.Fprintln(r.Out, s)
}

func (r *REPL) stackDepth() int {
	return r.VM.Depth()
}
