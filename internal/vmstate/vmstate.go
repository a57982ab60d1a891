// Package vmstate implements the Tacit VM's registers, the three stacks
// built on top of internal/mem, and the invariant checker. Modeled on the
// teacher's VM struct (registers + stack + stdin/stdout + errcode) but
// generalized from one fixed stack to the spec's three-stack-plus-heap
// memory image.
package vmstate

import (
	"fmt"
	"io"
	"os"

	"gotacit/internal/dict"
	"gotacit/internal/digest"
	"gotacit/internal/mem"
	"gotacit/internal/tagged"
)

// StackUnderflowError reports that a stack operation needed more cells
// than were available. Carries a snapshot of the data stack for
// diagnostics, the same "attach state to the error" shape as the
// teacher's panic-and-print-instruction recovery path.
type StackUnderflowError struct {
	Op       string
	Required int
	Snapshot []tagged.Value
}

func (e StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow in %s: needed %d, stack=%v", e.Op, e.Required, e.Snapshot)
}

type StackOverflowError struct {
	Op       string
	Snapshot []tagged.Value
}

func (e StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow in %s: stack=%v", e.Op, e.Snapshot)
}

type ReturnStackUnderflowError struct {
	Op string
}

func (e ReturnStackUnderflowError) Error() string {
	return fmt.Sprintf("return stack underflow in %s", e.Op)
}

type ReturnStackOverflowError struct {
	Op string
}

func (e ReturnStackOverflowError) Error() string {
	return fmt.Sprintf("return stack overflow in %s", e.Op)
}

// InvariantViolation reports a broken VM invariant (§3.3). Always fatal;
// indicates a bug in the implementation rather than a user program error.
type InvariantViolation struct {
	Message string
}

func (e InvariantViolation) Error() string { return "invariant violation: " + e.Message }

// VM holds the registers and memory image. Every core operation takes a
// *VM explicitly (spec §9: no process-wide singleton, unlike the
// prototype this spec distills from).
type VM struct {
	IP  uint32 // byte offset into CODE
	SP  uint32 // absolute cell index, one past data-stack TOS
	RSP uint32 // absolute cell index, one past RTOS
	BP  uint32 // absolute cell index of current frame base

	GP int // number of live cells in GLOBAL

	Err       error
	Running   bool
	InFinally bool
	Debug     bool

	Mem    *mem.Image
	Dict   *dict.Dictionary
	Digest *digest.Digest

	// Out is the console collaborator the `.` and `print` opcodes write
	// formatted output to (spec §6.4). Defaults to os.Stdout.
	Out io.Writer

	stackBase, stackTop   uint32
	rstackBase, rstackTop uint32
}

// New constructs a VM over a fresh memory image sized by layout. vmstate
// only owns raw state; the opcode table lives in internal/ops, whose
// opcodes register themselves at package init.
func New(layout mem.Layout) *VM {
	img := mem.New(layout)
	dg := digest.New(img)
	vm := &VM{
		Mem:    img,
		Dict:   dict.New(img, dg),
		Digest: dg,
		Out:    os.Stdout,
	}
	vm.stackBase = uint32(img.AbsoluteCell(mem.SegStack, 0))
	vm.stackTop = vm.stackBase + uint32(img.Cells(mem.SegStack))
	vm.rstackBase = uint32(img.AbsoluteCell(mem.SegRStack, 0))
	vm.rstackTop = vm.rstackBase + uint32(img.Cells(mem.SegRStack))
	vm.Reset()
	return vm
}

// Reset restores registers to their base values without reallocating
// memory, mirroring the teacher's setInitialVMState/powerController
// restart path (devices.go).
func (vm *VM) Reset() {
	vm.IP = 0
	vm.SP = vm.stackBase
	vm.RSP = vm.rstackBase
	vm.BP = vm.rstackBase
	vm.GP = 0
	vm.Err = nil
	vm.Running = true
	vm.InFinally = false
}

// StackBase / StackTop / RStackBase / RStackTop expose the bounds used
// by EnsureInvariants and by callers that need to classify a REF.
func (vm *VM) StackBase() uint32  { return vm.stackBase }
func (vm *VM) StackTop() uint32   { return vm.stackTop }
func (vm *VM) RStackBase() uint32 { return vm.rstackBase }
func (vm *VM) RStackTop() uint32  { return vm.rstackTop }

func (vm *VM) snapshot() []tagged.Value {
	n := int(vm.SP - vm.stackBase)
	out := make([]tagged.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := vm.Mem.ReadCellAbs(int(vm.stackBase) + i)
		if err != nil {
			break
		}
		out = append(out, tagged.Value(v))
	}
	return out
}

// Push appends v to the data stack.
func (vm *VM) Push(v tagged.Value) error {
	if vm.SP >= vm.stackTop {
		return StackOverflowError{Op: "push", Snapshot: vm.snapshot()}
	}
	if err := vm.Mem.WriteCellAbs(int(vm.SP), uint32(v)); err != nil {
		return err
	}
	vm.SP++
	return vm.checkDebug()
}

// Pop removes and returns the data-stack TOS.
func (vm *VM) Pop() (tagged.Value, error) {
	if vm.SP <= vm.stackBase {
		return 0, StackUnderflowError{Op: "pop", Required: 1, Snapshot: vm.snapshot()}
	}
	vm.SP--
	v, err := vm.Mem.ReadCellAbs(int(vm.SP))
	if err != nil {
		return 0, err
	}
	return tagged.Value(v), vm.checkDebug()
}

// Peek returns the data-stack value at depth cells below TOS without
// popping (depth 0 is TOS).
func (vm *VM) Peek(depth int) (tagged.Value, error) {
	idx := int(vm.SP) - 1 - depth
	if idx < int(vm.stackBase) {
		return 0, StackUnderflowError{Op: "peek", Required: depth + 1, Snapshot: vm.snapshot()}
	}
	v, err := vm.Mem.ReadCellAbs(idx)
	if err != nil {
		return 0, err
	}
	return tagged.Value(v), nil
}

// EnsureStackSize fails with StackUnderflowError unless at least n
// values are available, the guard every multi-arg opcode calls first
// (spec §4.6).
func (vm *VM) EnsureStackSize(n int, op string) error {
	if int(vm.SP-vm.stackBase) < n {
		return StackUnderflowError{Op: op, Required: n, Snapshot: vm.snapshot()}
	}
	return nil
}

// Depth returns the current data-stack depth in cells.
func (vm *VM) Depth() int { return int(vm.SP - vm.stackBase) }

// EnsureStackRoom fails with StackOverflowError unless n more cells fit
// below stackTop — the multi-cell counterpart of the single-cell check
// Push performs inline, used by list-aware stack ops that grow the
// stack by a whole span at once.
func (vm *VM) EnsureStackRoom(n int) error {
	if vm.SP+uint32(n) > vm.stackTop {
		return StackOverflowError{Op: "grow", Snapshot: vm.snapshot()}
	}
	return nil
}

// RPush / RPop / RPeek mirror Push/Pop/Peek for RSTACK.
func (vm *VM) RPush(v tagged.Value) error {
	if vm.RSP >= vm.rstackTop {
		return ReturnStackOverflowError{Op: "rpush"}
	}
	if err := vm.Mem.WriteCellAbs(int(vm.RSP), uint32(v)); err != nil {
		return err
	}
	vm.RSP++
	return vm.checkDebug()
}

func (vm *VM) RPop() (tagged.Value, error) {
	if vm.RSP <= vm.rstackBase {
		return 0, ReturnStackUnderflowError{Op: "rpop"}
	}
	vm.RSP--
	v, err := vm.Mem.ReadCellAbs(int(vm.RSP))
	if err != nil {
		return 0, err
	}
	return tagged.Value(v), vm.checkDebug()
}

func (vm *VM) RPeek(depth int) (tagged.Value, error) {
	idx := int(vm.RSP) - 1 - depth
	if idx < int(vm.rstackBase) {
		return 0, ReturnStackUnderflowError{Op: "rpeek"}
	}
	v, err := vm.Mem.ReadCellAbs(idx)
	if err != nil {
		return 0, err
	}
	return tagged.Value(v), nil
}

// GPush bump-allocates one cell at the top of GLOBAL and writes v into
// it, returning the absolute cell index of the new cell.
func (vm *VM) GPush(v tagged.Value) (int, error) {
	img := vm.Mem
	if vm.GP >= img.Cells(segGlobal()) {
		return 0, InvariantViolation{Message: "global heap exhausted"}
	}
	abs := img.AbsoluteCell(segGlobal(), vm.GP)
	if err := img.WriteCellAbs(abs, uint32(v)); err != nil {
		return 0, err
	}
	vm.GP++
	return abs, vm.checkDebug()
}

// GPop rewinds GP by n cells (the span of the topmost heap object).
func (vm *VM) GPop(n int) error {
	if vm.GP < n {
		return InvariantViolation{Message: "forget mark out of range"}
	}
	vm.GP -= n
	return vm.checkDebug()
}

// GPeek returns the absolute cell index of the cell n below the current
// GLOBAL top (n=0 is the most recently pushed cell).
func (vm *VM) GPeek(n int) (int, error) {
	if vm.GP-n-1 < 0 {
		return 0, InvariantViolation{Message: "gpeek out of range"}
	}
	return vm.Mem.AbsoluteCell(segGlobal(), vm.GP-n-1), nil
}

// segGlobal exists only so GPush/GPop/GPeek don't need to import mem's
// Segment constant directly at every call site; it is always SegGlobal.
func segGlobal() mem.Segment { return mem.SegGlobal }

// globalAllocator adapts VM.GPush to dict.CellAllocator so the
// dictionary can bump-allocate its record cells through the VM's own GP
// counter without importing vmstate (which already imports dict).
type globalAllocator struct{ vm *VM }

func (a globalAllocator) Allocate(v tagged.Value) (int, error) { return a.vm.GPush(v) }

// Define interns name/payload as a new dictionary entry, bump-allocating
// its cells on GLOBAL through GP.
func (vm *VM) Define(name string, payload tagged.Value) (*dict.Entry, error) {
	return vm.Dict.Define(globalAllocator{vm: vm}, name, payload)
}

func (vm *VM) checkDebug() error {
	if !vm.Debug {
		return nil
	}
	return vm.EnsureInvariants()
}

// EnsureInvariants implements spec §3.3's always-true invariant list.
func (vm *VM) EnsureInvariants() error {
	if vm.SP < vm.stackBase || vm.SP > vm.stackTop {
		return InvariantViolation{Message: "SP out of range"}
	}
	if vm.RSP < vm.rstackBase || vm.RSP > vm.rstackTop {
		return InvariantViolation{Message: "RSP out of range"}
	}
	if vm.BP < vm.rstackBase || vm.BP > vm.RSP {
		return InvariantViolation{Message: "BP out of range"}
	}
	if vm.GP < 0 || vm.GP > vm.Mem.Cells(mem.SegGlobal) {
		return InvariantViolation{Message: "GP out of range"}
	}
	return nil
}
