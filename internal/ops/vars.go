package ops

import (
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(Reserve, "reserve", opReserve)
	register(VarRef, "var-ref", opVarRef)
	register(InitVar, "init-var", opInitVar)
	register(GlobalRef, "global-ref", opGlobalRef)
}

// opReserve advances RSP by N cells to create a function's local-slot
// frame (spec §4.6.1), emitted once per definition, at its first `var`.
func opReserve(vm *vmstate.VM) error {
	n, err := fetchUint16(vm)
	if err != nil {
		return err
	}
	for i := uint16(0); i < n; i++ {
		if err := vm.RPush(tagged.Nil); err != nil {
			return err
		}
	}
	return nil
}

// opVarRef pushes a REF to local slot BP+slot.
func opVarRef(vm *vmstate.VM) error {
	slot, err := fetchUint16(vm)
	if err != nil {
		return err
	}
	abs := int(vm.BP) + int(slot)
	ref, err := tagged.Tagged(int32(abs), tagged.TagRef)
	if err != nil {
		return err
	}
	return vm.Push(ref)
}

// opInitVar pops TOS and writes it into local slot BP+slot. Compound
// values are written by value (the whole span already sits on the data
// stack immediately below its header at TOS); the slot receives a REF
// to the header once the payload has been transferred onto RSTACK.
func opInitVar(vm *vmstate.VM) error {
	slot, err := fetchUint16(vm)
	if err != nil {
		return err
	}
	span, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span, "init-var"); err != nil {
		return err
	}
	cells, err := readCells(vm, 0, span)
	if err != nil {
		return err
	}
	vm.SP -= uint32(span)

	if span == 1 {
		return vm.Mem.WriteCellAbs(int(vm.BP)+int(slot), cells[0])
	}

	// Compound: transfer the payload onto RSTACK above the current
	// frame and leave a REF to its header in the slot.
	for _, c := range cells {
		if err := vm.RPush(tagged.Value(c)); err != nil {
			return err
		}
	}
	headerAbs := int(vm.RSP) - 1
	ref, err := tagged.Tagged(int32(headerAbs), tagged.TagRef)
	if err != nil {
		return err
	}
	return vm.Mem.WriteCellAbs(int(vm.BP)+int(slot), uint32(ref))
}

// opGlobalRef pushes a REF to an absolute GLOBAL cell, resolved at
// compile time by the `global` definition's dictionary entry.
func opGlobalRef(vm *vmstate.VM) error {
	cell, err := fetchUint16(vm)
	if err != nil {
		return err
	}
	ref, err := tagged.Tagged(int32(cell), tagged.TagRef)
	if err != nil {
		return err
	}
	return vm.Push(ref)
}
