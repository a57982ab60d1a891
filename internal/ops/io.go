package ops

import (
	"fmt"

	"gotacit/internal/format"
	"gotacit/internal/vmstate"
)

func init() {
	register(Print, ".", opPrint)
	register(PrintRaw, "print", opPrintRaw)
}

// opPrint pops the value at TOS (its whole span, if compound) and writes
// its user-facing rendering to the console collaborator (spec §6.4).
func opPrint(vm *vmstate.VM) error {
	s, span, err := format.Value(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span, "."); err != nil {
		return err
	}
	vm.SP -= uint32(span)
	_, err = fmt.Fprintln(vm.Out, s)
	return err
}

// opPrintRaw pops the value at TOS and writes its internal representation,
// the diagnostic counterpart to `.` used while debugging the tag/payload
// encoding itself rather than the value's meaning.
func opPrintRaw(vm *vmstate.VM) error {
	s, span, err := format.Raw(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span, "print"); err != nil {
		return err
	}
	vm.SP -= uint32(span)
	_, err = fmt.Fprintln(vm.Out, s)
	return err
}
