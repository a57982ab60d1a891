package ops

import (
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(Dup, "dup", opDup)
	register(Drop, "drop", opDrop)
	register(Swap, "swap", opSwap)
	register(Over, "over", opOver)
	register(Rot, "rot", opRot)
	register(RevRot, "revrot", opRevRot)
	register(Pick, "pick", opPick)
	register(Tuck, "tuck", opTuck)
	register(Nip, "nip", opNip)
}

// spanAt returns the cell span of the logical value whose header (or
// simple cell, span 1) sits depth cells below TOS: a LIST header at that
// position claims its whole n+1-cell span (spec §3.4), matching the
// list-aware stack primitives required by §4.6.
func spanAt(vm *vmstate.VM, depth int) (int, error) {
	v, err := vm.Peek(depth)
	if err != nil {
		return 0, err
	}
	if tagged.IsList(v) {
		_, n := tagged.Decode(v)
		return int(n) + 1, nil
	}
	return 1, nil
}

func readCells(vm *vmstate.VM, depth, n int) ([]uint32, error) {
	top := int(vm.SP) - 1
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		v, err := vm.Mem.ReadCellAbs(top - depth - (n - 1) + i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func writeCellsAtTop(vm *vmstate.VM, n int, cells []uint32) error {
	base := int(vm.SP)
	for i := 0; i < n; i++ {
		if err := vm.Mem.WriteCellAbs(base+i, cells[i]); err != nil {
			return err
		}
	}
	return nil
}

func opDup(vm *vmstate.VM) error {
	span, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span, "dup"); err != nil {
		return err
	}
	cells, err := readCells(vm, 0, span)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackRoom(span); err != nil {
		return err
	}
	if err := writeCellsAtTop(vm, span, cells); err != nil {
		return err
	}
	vm.SP += uint32(span)
	return nil
}

func opDrop(vm *vmstate.VM) error {
	span, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span, "drop"); err != nil {
		return err
	}
	vm.SP -= uint32(span)
	return nil
}

func opSwap(vm *vmstate.VM) error {
	span0, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	span1, err := spanAt(vm, span0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span0+span1, "swap"); err != nil {
		return err
	}
	top, err := readCells(vm, 0, span0)
	if err != nil {
		return err
	}
	bottom, err := readCells(vm, span0, span1)
	if err != nil {
		return err
	}
	base := int(vm.SP) - span0 - span1
	for i, v := range top {
		if err := vm.Mem.WriteCellAbs(base+i, v); err != nil {
			return err
		}
	}
	for i, v := range bottom {
		if err := vm.Mem.WriteCellAbs(base+span0+i, v); err != nil {
			return err
		}
	}
	return nil
}

func opOver(vm *vmstate.VM) error {
	span0, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	span1, err := spanAt(vm, span0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span0+span1, "over"); err != nil {
		return err
	}
	cells, err := readCells(vm, span0, span1)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackRoom(span1); err != nil {
		return err
	}
	if err := writeCellsAtTop(vm, span1, cells); err != nil {
		return err
	}
	vm.SP += uint32(span1)
	return nil
}

func opRot(vm *vmstate.VM) error {
	s0, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	s1, err := spanAt(vm, s0)
	if err != nil {
		return err
	}
	s2, err := spanAt(vm, s0+s1)
	if err != nil {
		return err
	}
	total := s0 + s1 + s2
	if err := vm.EnsureStackSize(total, "rot"); err != nil {
		return err
	}
	c0, _ := readCells(vm, 0, s0)
	c1, _ := readCells(vm, s0, s1)
	c2, _ := readCells(vm, s0+s1, s2)
	// (c2 c1 c0) -> (c1 c0 c2), bottom to top
	base := int(vm.SP) - total
	writeAt(vm, base, c1)
	writeAt(vm, base+s1, c0)
	writeAt(vm, base+s1+s0, c2)
	return nil
}

func opRevRot(vm *vmstate.VM) error {
	s0, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	s1, err := spanAt(vm, s0)
	if err != nil {
		return err
	}
	s2, err := spanAt(vm, s0+s1)
	if err != nil {
		return err
	}
	total := s0 + s1 + s2
	if err := vm.EnsureStackSize(total, "revrot"); err != nil {
		return err
	}
	c0, _ := readCells(vm, 0, s0)
	c1, _ := readCells(vm, s0, s1)
	c2, _ := readCells(vm, s0+s1, s2)
	// (c2 c1 c0) -> (c0 c2 c1), bottom to top
	base := int(vm.SP) - total
	writeAt(vm, base, c0)
	writeAt(vm, base+s0, c2)
	writeAt(vm, base+s0+s2, c1)
	return nil
}

func writeAt(vm *vmstate.VM, base int, cells []uint32) {
	for i, v := range cells {
		_ = vm.Mem.WriteCellAbs(base+i, v)
	}
}

func opTuck(vm *vmstate.VM) error {
	// swap then over
	if err := opSwap(vm); err != nil {
		return err
	}
	return opOver(vm)
}

func opNip(vm *vmstate.VM) error {
	// swap then drop
	if err := opSwap(vm); err != nil {
		return err
	}
	return opDrop(vm)
}

func opPick(vm *vmstate.VM) error {
	nVal, err := vm.Pop()
	if err != nil {
		return err
	}
	tag, payload := tagged.Decode(nVal)
	var n int
	switch tag {
	case tagged.TagNumber:
		n = int(tagged.AsFloat32(nVal))
	case tagged.TagInteger:
		n = int(payload)
	default:
		return vmstate.InvariantViolation{Message: "pick expects a number"}
	}
	if n < 0 {
		return vmstate.InvariantViolation{Message: "pick: negative index"}
	}
	span, err := spanAt(vm, n)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(n+span, "pick"); err != nil {
		return err
	}
	cells, err := readCells(vm, n, span)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackRoom(span); err != nil {
		return err
	}
	if err := writeCellsAtTop(vm, span, cells); err != nil {
		return err
	}
	vm.SP += uint32(span)
	return nil
}
