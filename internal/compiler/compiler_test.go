package compiler

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"gotacit/internal/interp"
	"gotacit/internal/mem"
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// run compiles source as a complete program and executes it to
// completion, returning the VM and its captured console output for
// assertions, mirroring the teacher's compileAndCheck/runAndEnsure
// helpers (vm/vm_test.go).
func run(t *testing.T, source string) (*vmstate.VM, string) {
	t.Helper()
	vm := vmstate.New(mem.DefaultLayout())
	var out bytes.Buffer
	vm.Out = &out

	c := New(vm, nil)
	start, _, err := c.CompileProgram("test", source)
	assert(t, err == nil, "compile error: %v", err)

	vm.Running = true
	vm.IP = start
	err = interp.Run(vm)
	assert(t, err == nil, "run error: %v", err)
	return vm, out.String()
}

func topNumber(t *testing.T, vm *vmstate.VM) float32 {
	t.Helper()
	v, err := vm.Peek(0)
	assert(t, err == nil, "peek error: %v", err)
	return tagged.AsFloat32(v)
}

func TestArithmetic(t *testing.T) {
	vm, _ := run(t, "5 3 add")
	assert(t, topNumber(t, vm) == 8, "got %v", topNumber(t, vm))
}

func TestListLength(t *testing.T) {
	vm, _ := run(t, "( 1 2 3 ) length")
	assert(t, topNumber(t, vm) == 3, "got %v", topNumber(t, vm))
}

func TestSimpleDefinition(t *testing.T) {
	vm, _ := run(t, ": square dup mul ; 3 square")
	assert(t, topNumber(t, vm) == 9, "got %v", topNumber(t, vm))
}

func TestComposition(t *testing.T) {
	vm, _ := run(t, ": double 2 mul ; : quad double double ; 5 quad")
	assert(t, topNumber(t, vm) == 20, "got %v", topNumber(t, vm))
}

func TestMatchChoosesFirstTrueClause(t *testing.T) {
	vm, _ := run(t, "10 match dup 9 gt with drop 111 ; drop 222 ;")
	assert(t, topNumber(t, vm) == 111, "got %v", topNumber(t, vm))
}

func TestMatchFallsThroughToDefault(t *testing.T) {
	vm, _ := run(t, "2 match dup 9 gt with drop 111 ; drop 222 ;")
	assert(t, topNumber(t, vm) == 222, "got %v", topNumber(t, vm))
}

func TestLocalCompoundVariableRead(t *testing.T) {
	_, out := run(t, ": f2 (1 2) var x x . ; f2")
	assert(t, strings.TrimSpace(out) == "( 1 2 )", "got %q", out)
}

func TestBracketPathUpdate(t *testing.T) {
	vm, _ := run(t, ": f ((1 2)(3 4)) var x 5 -> x[1 1] x[1 1] ; f")
	assert(t, topNumber(t, vm) == 5, "got %v", topNumber(t, vm))
}

func TestRecurse(t *testing.T) {
	vm, _ := run(t, ": fact dup 1 le if drop 1 else dup 1 sub recurse mul ; ; 5 fact")
	assert(t, topNumber(t, vm) == 120, "got %v", topNumber(t, vm))
}

func TestRedefinitionShadows(t *testing.T) {
	_, out := run(t, ": x 123 . ; x : x x x ; x")
	assert(t, strings.TrimSpace(out) == "123\n123\n123", "got %q", out)
}

func TestReverseIsInvolution(t *testing.T) {
	_, out1 := run(t, "( 1 2 3 ) .")
	_, out2 := run(t, "( 1 2 3 ) reverse reverse .")
	assert(t, out1 == out2, "reverse-reverse changed rendering: %q vs %q", out1, out2)
}

func TestGlobalRead(t *testing.T) {
	vm, _ := run(t, "42 global g g")
	assert(t, topNumber(t, vm) == 42, "got %v", topNumber(t, vm))
}

func TestAddressOfCompoundGlobal(t *testing.T) {
	vm, _ := run(t, "(1 2 3) global myList &myList")
	top, perr := vm.Peek(0)
	assert(t, perr == nil, "peek error: %v", perr)
	assert(t, tagged.IsRef(top), "expected top to be a REF, got %v", top)
}

func TestIncrementSugar(t *testing.T) {
	vm, _ := run(t, ": counter 0 var c 5 +> c c ; counter")
	assert(t, topNumber(t, vm) == 5, "got %v", topNumber(t, vm))
}

func TestIfElse(t *testing.T) {
	vm, _ := run(t, "1 if 10 else 20 ;")
	assert(t, topNumber(t, vm) == 10, "got %v", topNumber(t, vm))

	vm2, _ := run(t, "0 if 10 else 20 ;")
	assert(t, topNumber(t, vm2) == 20, "got %v", topNumber(t, vm2))
}

func TestUnclosedDefinitionIsError(t *testing.T) {
	vm := vmstate.New(mem.DefaultLayout())
	c := New(vm, nil)
	_, _, err := c.CompileProgram("test", ": broken dup mul")
	assert(t, err != nil, "expected an unclosed-definition error")
}

func TestUnknownWordIsError(t *testing.T) {
	vm := vmstate.New(mem.DefaultLayout())
	c := New(vm, nil)
	_, _, err := c.CompileProgram("test", "nosuchword")
	assert(t, err != nil, "expected an unknown-word error")
}

// fakeIncludeHost serves canned sources from an in-memory map, keyed by
// the literal include target (no path resolution), for testing the
// pragma-once guard without touching the filesystem.
type fakeIncludeHost struct {
	sources map[string]string
}

func (f *fakeIncludeHost) ResolveInclude(target, currentSource string) (string, string, error) {
	src, ok := f.sources[target]
	if !ok {
		return "", "", fmt.Errorf("no such include: %s", target)
	}
	return target, src, nil
}

func TestIncludeIsPragmaOnce(t *testing.T) {
	vm := vmstate.New(mem.DefaultLayout())
	host := &fakeIncludeHost{sources: map[string]string{
		"lib.tacit": ": helper 1 add ;",
	}}
	c := New(vm, host)
	start, _, err := c.CompileProgram("main", `include "lib.tacit" include "lib.tacit" 41 helper`)
	assert(t, err == nil, "compile error: %v", err)

	vm.Running = true
	vm.IP = start
	err = interp.Run(vm)
	assert(t, err == nil, "run error: %v", err)
	assert(t, topNumber(t, vm) == 42, "got %v", topNumber(t, vm))
}
