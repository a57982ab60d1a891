package ops

import (
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(GPush, "gpush", opGPush)
	register(GPop, "gpop", opGPop)
	register(GPeek, "gpeek", opGPeek)
	register(GMark, "gmark", opGMark)
	register(GForget, "gforget", opGForget)
}

// opGPush deep-copies the value at TOS (its whole span, if compound)
// onto GLOBAL and drops it from the data stack.
func opGPush(vm *vmstate.VM) error {
	span, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	cells, err := readCells(vm, 0, span)
	if err != nil {
		return err
	}
	vm.SP -= uint32(span)

	for _, c := range cells {
		if _, err := vm.GPush(tagged.Value(c)); err != nil {
			return err
		}
	}
	return nil
}

// opGPop rewinds GP by the span of the topmost heap object.
func opGPop(vm *vmstate.VM) error {
	topAbs, err := vm.GPeek(0)
	if err != nil {
		return err
	}
	headerRaw, err := vm.Mem.ReadCellAbs(topAbs)
	if err != nil {
		return err
	}
	span := 1
	if tagged.IsList(tagged.Value(headerRaw)) {
		_, n := tagged.Decode(tagged.Value(headerRaw))
		span = int(n) + 1
	}
	return vm.GPop(span)
}

// opGPeek pushes a REF to the topmost GLOBAL heap object's header.
func opGPeek(vm *vmstate.VM) error {
	abs, err := vm.GPeek(0)
	if err != nil {
		return err
	}
	ref, err := tagged.Tagged(int32(abs), tagged.TagRef)
	if err != nil {
		return err
	}
	return vm.Push(ref)
}

// opGMark pushes the current GP as a plain NUMBER mark.
func opGMark(vm *vmstate.VM) error {
	return vm.Push(tagged.FromFloat32(float32(vm.GP)))
}

// opGForget pops a mark (as produced by gmark) and restores GP to it.
func opGForget(vm *vmstate.VM) error {
	markVal, err := vm.Pop()
	if err != nil {
		return err
	}
	mark := int(tagged.AsFloat32(markVal))
	if mark < 0 || mark > vm.GP {
		return vmstate.InvariantViolation{Message: "forget mark out of range"}
	}
	return vm.GPop(vm.GP - mark)
}
