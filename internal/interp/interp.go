// Package interp implements the bytecode dispatch loop: the two-range
// opcode decoder plus the run/step driver, generalizing the teacher's
// execNextInstruction/ExecProgram pair (vm/exec.go, vm/run.go) from a
// fixed 8-byte Instruction fetch into Tacit's variable-width, table-driven
// opcode stream.
package interp

import (
	"fmt"

	"gotacit/internal/mem"
	"gotacit/internal/ops"
	"gotacit/internal/vmstate"
)

// MaxUserOpcode is the largest 15-bit opcode id the two-byte form can
// carry (spec §4.5.3); ids 0..127 use the one-byte form.
const MaxUserOpcode = 0x7FFF

// decodeOpcode reads one opcode from CODE at vm.IP in either the one-byte
// or the two-byte form, advancing IP past it.
func decodeOpcode(vm *vmstate.VM) (ops.Opcode, error) {
	b0, err := vm.Mem.Read8(mem.SegCode, int(vm.IP))
	if err != nil {
		return 0, err
	}
	if b0 < 0x80 {
		vm.IP++
		return ops.Opcode(b0), nil
	}
	b1, err := vm.Mem.Read8(mem.SegCode, int(vm.IP)+1)
	if err != nil {
		return 0, err
	}
	vm.IP += 2
	id := (uint16(b1) << 7) | uint16(b0&0x7F)
	return ops.Opcode(id), nil
}

// Step executes exactly one opcode, returning the opcode that ran.
func Step(vm *vmstate.VM) (ops.Opcode, error) {
	op, err := decodeOpcode(vm)
	if err != nil {
		return 0, err
	}
	if int(op) >= len(ops.Table) || ops.Table[op] == nil {
		return op, ops.UnknownOpcodeError{Opcode: op}
	}
	if err := ops.Table[op](vm); err != nil {
		return op, err
	}
	return op, nil
}

// Run executes opcodes until vm.Running goes false (Abort) or an error
// occurs.
func Run(vm *vmstate.VM) error {
	for vm.Running {
		if _, err := Step(vm); err != nil {
			vm.Running = false
			vm.Err = err
			return err
		}
	}
	return nil
}

// RunUntil executes opcodes until vm.IP reaches limit, vm.Running goes
// false, or an error occurs — used to run one freshly compiled top-level
// chunk without disturbing a REPL session that hasn't hit EOF yet (EOF is
// what emits the real Abort).
func RunUntil(vm *vmstate.VM, limit uint32) error {
	for vm.Running && vm.IP < limit {
		if _, err := Step(vm); err != nil {
			vm.Running = false
			vm.Err = err
			return err
		}
	}
	return nil
}

// ExecutionError wraps an opcode-dispatch failure with the IP it occurred
// at, for REPL/CLI diagnostics.
type ExecutionError struct {
	IP  uint32
	Op  ops.Opcode
	Err error
}

func (e ExecutionError) Error() string {
	name := "?"
	if int(e.Op) < len(ops.Names) {
		name = ops.Names[e.Op]
	}
	return fmt.Sprintf("runtime error at %d (%s): %v", e.IP, name, e.Err)
}

func (e ExecutionError) Unwrap() error { return e.Err }
