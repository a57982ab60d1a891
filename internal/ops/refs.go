package ops

import (
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(Fetch, "fetch", opFetch)
	register(Store, "store", opStore)
	register(Select, "select", opSelect)
	register(Retrieve, "retrieve", opRetrieve)
	register(Update, "update", opUpdate)
}

// opFetch pops a REF and pushes the value it addresses: the simple cell
// directly, or the whole span if it addresses a LIST header. A cell that
// itself holds a REF to a LIST header (a local slot initialised with a
// compound value) is followed once, so the list is pushed.
func opFetch(vm *vmstate.VM) error {
	refVal, err := vm.Pop()
	if err != nil {
		return err
	}
	if !tagged.IsRef(refVal) {
		return vmstate.InvariantViolation{Message: "fetch expects REF"}
	}
	_, abs := tagged.Decode(refVal)
	if c, err := vm.Mem.ReadCellAbs(int(abs)); err == nil && tagged.IsRef(tagged.Value(c)) {
		_, inner := tagged.Decode(tagged.Value(c))
		if h, err := vm.Mem.ReadCellAbs(int(inner)); err == nil && tagged.IsList(tagged.Value(h)) {
			abs = inner
		}
	}
	span, err := spanAtAbs(vm, int(abs))
	if err != nil {
		return err
	}
	cells := make([]uint32, span)
	for i := 0; i < span; i++ {
		c, err := vm.Mem.ReadCellAbs(int(abs) - span + 1 + i)
		if err != nil {
			return err
		}
		cells[i] = c
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

// opStore implements `value + REF -> side effect` with the in-place
// compound-mutation rules of spec §4.6.2.
func opStore(vm *vmstate.VM) error {
	refVal, err := vm.Pop()
	if err != nil {
		return err
	}
	if !tagged.IsRef(refVal) {
		return vmstate.InvariantViolation{Message: "store expects REF"}
	}
	_, abs := tagged.Decode(refVal)

	span, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	cells, err := readCells(vm, 0, span)
	if err != nil {
		return err
	}
	vm.SP -= uint32(span)

	existingSpan, err := spanAtAbs(vm, int(abs))
	if err != nil {
		return err
	}

	incomingCompound := span > 1
	existingCompound := existingSpan > 1

	switch {
	case !incomingCompound && !existingCompound:
		return vm.Mem.WriteCellAbs(int(abs), cells[0])
	case incomingCompound && existingCompound:
		if span != existingSpan {
			return vmstate.InvariantViolation{Message: "Incompatible compound assignment: slot count or type mismatch"}
		}
		for i, c := range cells {
			if err := vm.Mem.WriteCellAbs(int(abs)-span+1+i, c); err != nil {
				return err
			}
		}
		return nil
	default:
		return vmstate.InvariantViolation{Message: "Cannot assign simple to compound or compound to simple"}
	}
}

// pathStep resolves one path element against ref: a NUMBER selects by index
// (elem), a STRING selects by key (find).
func pathStep(vm *vmstate.VM, ref tagged.Value, elem tagged.Value) (tagged.Value, error) {
	tag, payload := tagged.Decode(elem)
	switch tag {
	case tagged.TagNumber:
		return elemRef(vm, ref, int32(tagged.AsFloat32(elem)))
	case tagged.TagInteger:
		return elemRef(vm, ref, payload)
	case tagged.TagString:
		key, err := vm.Digest.Lookup(uint16(payload))
		if err != nil {
			return 0, err
		}
		return findRef(vm, ref, key)
	default:
		return 0, vmstate.InvariantViolation{Message: "path element must be a number or string"}
	}
}

// findRef resolves a string key within an association list (a list of
// (key value) pairs), matching by interned STRING equality.
func findRef(vm *vmstate.VM, ref tagged.Value, key string) (tagged.Value, error) {
	for i := int32(0); ; i++ {
		pairRef, err := elemRef(vm, ref, i)
		if err != nil {
			return 0, err
		}
		if tagged.IsNil(pairRef) {
			return tagged.Nil, nil
		}
		keyRef, err := elemRef(vm, pairRef, 0)
		if err != nil {
			return 0, err
		}
		if tagged.IsNil(keyRef) {
			continue
		}
		_, keyAbs := tagged.Decode(keyRef)
		keyCellRaw, err := vm.Mem.ReadCellAbs(int(keyAbs))
		if err != nil {
			return 0, err
		}
		keyCell := tagged.Value(keyCellRaw)
		keyTag, keyPayload := tagged.Decode(keyCell)
		if keyTag != tagged.TagString {
			continue
		}
		s, err := vm.Digest.Lookup(uint16(keyPayload))
		if err != nil {
			return 0, err
		}
		if s == key {
			return elemRef(vm, pairRef, 1)
		}
	}
}

// walkPath pops a LIST of path elements (pre-pushed by the compiler's
// bracket-path expansion) and target, returning the REF obtained by
// walking each element via elem/find.
func walkPath(vm *vmstate.VM) (ref tagged.Value, err error) {
	n, err := listHeaderAt(vm, 0)
	if err != nil {
		return 0, err
	}
	// Path elements are always simple (1 cell each), and logical index 0
	// (the first path component, p1) is the shallowest payload cell —
	// the compiler emits list-literal elements in reverse source order
	// precisely so this holds (spec §4.5.6).
	elems := make([]tagged.Value, n)
	for i := 0; i < n; i++ {
		elems[i], err = vm.Peek(1 + i)
		if err != nil {
			return 0, err
		}
	}
	if err := vm.EnsureStackSize(n+1+1, "select"); err != nil {
		return 0, err
	}
	vm.SP -= uint32(n + 1)

	target, err := vm.Pop()
	if err != nil {
		return 0, err
	}
	if !tagged.IsRef(target) {
		return 0, vmstate.InvariantViolation{Message: "select/retrieve/update target must be a REF"}
	}
	// A local slot holding a compound value stores a REF to the list's
	// header; walk the path from that list rather than from the slot.
	_, targetAbs := tagged.Decode(target)
	if c, err := vm.Mem.ReadCellAbs(int(targetAbs)); err == nil && tagged.IsRef(tagged.Value(c)) {
		_, inner := tagged.Decode(tagged.Value(c))
		if h, err := vm.Mem.ReadCellAbs(int(inner)); err == nil && tagged.IsList(tagged.Value(h)) {
			target = tagged.Value(c)
		}
	}

	cur := target
	for _, e := range elems {
		cur, err = pathStep(vm, cur, e)
		if err != nil {
			return 0, err
		}
		if tagged.IsNil(cur) {
			return tagged.Nil, nil
		}
	}
	return cur, nil
}

func opSelect(vm *vmstate.VM) error {
	ref, err := walkPath(vm)
	if err != nil {
		return err
	}
	return vm.Push(ref)
}

func opRetrieve(vm *vmstate.VM) error {
	ref, err := walkPath(vm)
	if err != nil {
		return err
	}
	if tagged.IsNil(ref) {
		return vm.Push(tagged.Nil)
	}
	if err := vm.Push(ref); err != nil {
		return err
	}
	return opFetch(vm)
}

// opUpdate implements `value + target + path -> side effect`: the path
// is on top, target beneath it, value beneath that.
func opUpdate(vm *vmstate.VM) error {
	ref, err := walkPath(vm)
	if err != nil {
		return err
	}
	if tagged.IsNil(ref) {
		return vmstate.InvariantViolation{Message: "update: path did not resolve"}
	}
	if err := vm.Push(ref); err != nil {
		return err
	}
	return opStore(vm)
}
