// Package ops implements Tacit's built-in opcode set: a dispatch table
// generalizing the teacher's execNextInstruction switch (vm/exec.go) from
// one flat `switch instr.code` into a [128]OpFunc table indexed by
// opcode byte, so opcode groups can register themselves from separate
// files the way the teacher's bytecode.go builds strToInstrMap/
// instrToStrMap in init().
package ops

import (
	"fmt"

	"gotacit/internal/mem"
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

// Opcode is a built-in operation id in the range 0..127 (spec §4.5.3).
// User-defined words never occupy this space; they are called by CODE
// address via the Call opcode.
type Opcode uint8

// OpFunc executes one builtin. It is responsible for reading its own
// operand bytes from CODE (advancing vm.IP past them) and for the
// opcode's full stack effect; the dispatch loop only fetches and
// advances past the opcode byte itself.
type OpFunc func(vm *vmstate.VM) error

// Table is the builtin dispatch table, populated by each group's init().
var Table [128]OpFunc

// Names gives a human-readable name per opcode, used by internal/format
// and error messages.
var Names [128]string

func register(op Opcode, name string, fn OpFunc) {
	if Table[op] != nil {
		panic(fmt.Sprintf("ops: opcode %d already registered (%s)", op, Names[op]))
	}
	Table[op] = fn
	Names[op] = name
}

// UnknownOpcodeError reports a CODE byte whose single-byte form has no
// registered handler.
type UnknownOpcodeError struct{ Opcode Opcode }

func (e UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %d", e.Opcode)
}

// --- operand fetch helpers, shared by every group file ---

func fetchByte(vm *vmstate.VM) (byte, error) {
	b, err := vm.Mem.Read8(mem.SegCode, int(vm.IP))
	if err != nil {
		return 0, err
	}
	vm.IP++
	return b, nil
}

func fetchUint16(vm *vmstate.VM) (uint16, error) {
	v, err := vm.Mem.Read16(mem.SegCode, int(vm.IP))
	if err != nil {
		return 0, err
	}
	vm.IP += 2
	return v, nil
}

func fetchInt16(vm *vmstate.VM) (int16, error) {
	v, err := fetchUint16(vm)
	return int16(v), err
}

func fetchUint32(vm *vmstate.VM) (uint32, error) {
	v, err := vm.Mem.Read32(mem.SegCode, int(vm.IP))
	if err != nil {
		return 0, err
	}
	vm.IP += 4
	return v, nil
}

func fetchFloat32Value(vm *vmstate.VM) (tagged.Value, error) {
	bits, err := fetchUint32(vm)
	return tagged.Value(bits), err
}

// popFloat pops TOS and interprets it as an IEEE float regardless of tag
// (arithmetic operates on the raw bit pattern's float value; tagged
// non-numeric operands are a user error the caller should have avoided,
// but we still return a real float so execution degrades gracefully).
func popFloat(vm *vmstate.VM) (float32, error) {
	v, err := vm.Pop()
	if err != nil {
		return 0, err
	}
	return tagged.AsFloat32(v), nil
}

func pushFloat(vm *vmstate.VM, f float32) error {
	return vm.Push(tagged.SanitizeFloat(f))
}
