package ops

import (
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(Nop, "nop", func(vm *vmstate.VM) error { return nil })
	register(LiteralNumber, "literal-number", opLiteralNumber)
	register(LiteralString, "literal-string", opLiteralString)
	register(Call, "call", opCall)
	register(Exit, "exit", opExit)
	register(Abort, "abort", opAbort)
	register(Branch, "branch", opBranch)
	register(IfFalseBranch, "if-false-branch", opIfFalseBranch)
	register(Eval, "eval", opEval)
}

func opLiteralNumber(vm *vmstate.VM) error {
	v, err := fetchFloat32Value(vm)
	if err != nil {
		return err
	}
	return vm.Push(v)
}

func opLiteralString(vm *vmstate.VM) error {
	id, err := fetchUint16(vm)
	if err != nil {
		return err
	}
	v, err := tagged.Tagged(int32(id), tagged.TagString)
	if err != nil {
		return err
	}
	return vm.Push(v)
}

// opCall reads an X1516-encoded CODE address operand, pushes the return
// address and caller frame base, and jumps (spec §4.6.1).
func opCall(vm *vmstate.VM) error {
	operand, err := fetchFloat32Value(vm)
	if err != nil {
		return err
	}
	addr, ok := tagged.DecodeCodeAddr(operand)
	if !ok {
		return vmstate.InvariantViolation{Message: "call operand is not an X1516 code address"}
	}
	return enterCode(vm, addr)
}

// enterCode pushes a return frame (return address plus caller BP) and
// jumps to addr, the shared tail of `call` and a CODE-valued `eval`.
func enterCode(vm *vmstate.VM, addr uint32) error {
	returnAddr, err := tagged.EncodeCodeAddr(vm.IP)
	if err != nil {
		return err
	}
	if err := vm.RPush(returnAddr); err != nil {
		return err
	}
	bpVal, err := tagged.Tagged(int32(vm.BP-vm.RStackBase()), tagged.TagRef)
	if err != nil {
		return err
	}
	if err := vm.RPush(bpVal); err != nil {
		return err
	}
	vm.BP = vm.RSP
	vm.IP = addr
	return nil
}

// opExit restores the caller's frame and return address (spec §4.6.1).
func opExit(vm *vmstate.VM) error {
	vm.RSP = vm.BP
	bpVal, err := vm.RPop()
	if err != nil {
		return err
	}
	_, bp := tagged.Decode(bpVal)
	vm.BP = vm.RStackBase() + uint32(bp)

	retVal, err := vm.RPop()
	if err != nil {
		return err
	}
	addr, ok := tagged.DecodeCodeAddr(retVal)
	if !ok {
		return vmstate.InvariantViolation{Message: "return address is not an X1516 code address"}
	}
	vm.IP = addr
	return nil
}

func opAbort(vm *vmstate.VM) error {
	vm.Running = false
	return nil
}

func opBranch(vm *vmstate.VM) error {
	offset, err := fetchInt16(vm)
	if err != nil {
		return err
	}
	vm.IP = uint32(int64(vm.IP) + int64(offset))
	return nil
}

func opIfFalseBranch(vm *vmstate.VM) error {
	offset, err := fetchInt16(vm)
	if err != nil {
		return err
	}
	cond, err := vm.Pop()
	if err != nil {
		return err
	}
	if tagged.AsFloat32(cond) == 0 {
		vm.IP = uint32(int64(vm.IP) + int64(offset))
	}
	return nil
}

// opEval pops TOS and either enters it (CODE, BUILTIN) or leaves it
// untouched on the stack (anything else self-quotes, spec §4.6.3). A CODE
// value is entered exactly like `call`, so a matching `exit` inside the
// called word returns here; a BUILTIN value dispatches straight into the
// builtin table with no frame pushed, since builtins never themselves
// exit.
func opEval(vm *vmstate.VM) error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	if addr, ok := tagged.DecodeCodeAddr(v); ok {
		return enterCode(vm, addr)
	}
	tag, payload := tagged.Decode(v)
	if tag == tagged.TagBuiltin {
		op := Opcode(payload)
		fn := Table[op]
		if fn == nil {
			return UnknownOpcodeError{Opcode: op}
		}
		return fn(vm)
	}
	return vm.Push(v)
}
