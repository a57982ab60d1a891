package ops

import (
	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

func init() {
	register(Length, "length", opLength)
	register(Pack, "pack", opPack)
	register(Unpack, "unpack", opUnpack)
	register(Reverse, "reverse", opReverse)
	register(Elem, "elem", opElem)
	register(Find, "find", opFind)
	register(Enlist, "enlist", opEnlist)
	register(DropList, "drop-list", opDropList)
}

// listHeaderAt reads the list header at depth cells below TOS, failing
// if that cell is not a LIST.
func listHeaderAt(vm *vmstate.VM, depth int) (slots int, err error) {
	v, err := vm.Peek(depth)
	if err != nil {
		return 0, err
	}
	if !tagged.IsList(v) {
		return 0, vmstate.InvariantViolation{Message: "expected LIST header"}
	}
	_, n := tagged.Decode(v)
	return int(n), nil
}

func opLength(vm *vmstate.VM) error {
	n, err := listHeaderAt(vm, 0)
	if err != nil {
		return err
	}
	return vm.Push(tagged.FromFloat32(float32(n)))
}

// opPack reads an immediate count N (emitted by the compiler for list
// literals `( e1 … eN )`), the total cell span of the elements including
// the headers of nested lists, then wraps the N cells currently on top
// of the stack in a LIST:N header.
func opPack(vm *vmstate.VM) error {
	n, err := fetchUint16(vm)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(int(n), "pack"); err != nil {
		return err
	}
	header, err := tagged.Tagged(int32(n), tagged.TagList)
	if err != nil {
		return err
	}
	return vm.Push(header)
}

// opUnpack removes the header at TOS, leaving its N payload cells
// exposed (they were already directly beneath it, so this is just a
// single-cell drop — the inverse of pack's header-on-top convention).
func opUnpack(vm *vmstate.VM) error {
	_, err := listHeaderAt(vm, 0)
	if err != nil {
		return err
	}
	_, err = vm.Pop()
	return err
}

// opReverse reverses the logical element order of the list at TOS in
// place. Elements are located by walking spans from the shallowest
// payload cell (index 0) to the deepest (index n-1).
func opReverse(vm *vmstate.VM) error {
	n, err := listHeaderAt(vm, 0)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	// Collect element spans, shallowest (index 0) first.
	type elemSpan struct {
		depthOfHeader int // depth (below list header) of this element's own header/simple cell
		span          int
	}
	var elems []elemSpan
	depth := 1 // first payload cell sits one below the LIST header
	for total := 0; total < n; {
		span, err := spanAt(vm, depth)
		if err != nil {
			return err
		}
		elems = append(elems, elemSpan{depthOfHeader: depth, span: span})
		depth += span
		total += span
	}

	cells := make([][]uint32, len(elems))
	for i, e := range elems {
		c, err := readCells(vm, e.depthOfHeader, e.span)
		if err != nil {
			return err
		}
		cells[i] = c
	}

	// Reversed logical order: elems[len-1] becomes shallowest.
	writeDepth := 1
	for i := len(elems) - 1; i >= 0; i-- {
		c := cells[i]
		start := (int(vm.SP) - 1) - writeDepth - (elems[i].span - 1)
		for j, v := range c {
			if err := vm.Mem.WriteCellAbs(start+j, v); err != nil {
				return err
			}
		}
		writeDepth += elems[i].span
	}
	return nil
}

// opElem resolves (ref, index) -> REF to that element's cell, or NIL if
// out of range. ref must be a REF to a LIST header.
func opElem(vm *vmstate.VM) error {
	if err := vm.EnsureStackSize(2, "elem"); err != nil {
		return err
	}
	idxVal, err := vm.Pop()
	if err != nil {
		return err
	}
	refVal, err := vm.Pop()
	if err != nil {
		return err
	}
	if !tagged.IsRef(refVal) {
		return vmstate.InvariantViolation{Message: "elem expects REF"}
	}
	_, idx := tagged.Decode(idxVal)
	if !tagged.IsNaNBoxed(idxVal) {
		idx = int32(tagged.AsFloat32(idxVal))
	}

	ref, err := elemRef(vm, refVal, idx)
	if err != nil {
		return err
	}
	return vm.Push(ref)
}

// elemRef resolves the REF to logical element idx of the LIST addressed
// by ref, or tagged.Nil if idx is out of range. Shared by the `elem`
// opcode and the bracket-path walker in refs.go.
func elemRef(vm *vmstate.VM, ref tagged.Value, idx int32) (tagged.Value, error) {
	if idx < 0 {
		return tagged.Nil, nil
	}
	_, headerAbs := tagged.Decode(ref)
	n, err := vm.Mem.ReadCellAbs(int(headerAbs))
	if err != nil {
		return 0, err
	}
	header := tagged.Value(n)
	if !tagged.IsList(header) {
		return 0, vmstate.InvariantViolation{Message: "elem: REF does not address a LIST"}
	}
	_, slots := tagged.Decode(header)

	// Walk from the shallowest payload cell (just below the header, at
	// absolute index headerAbs-1) toward the deepest, locating logical
	// element idx by span.
	pos := int(headerAbs) - 1
	for i := int32(0); i < idx; i++ {
		if pos < int(headerAbs)-int(slots) {
			return tagged.Nil, nil
		}
		span, err := spanAtAbs(vm, pos)
		if err != nil {
			return 0, err
		}
		pos -= span
	}
	if pos < int(headerAbs)-int(slots) {
		return tagged.Nil, nil
	}
	// pos is the element's own cell: its LIST header when it is nested
	// (header-at-top layout), or the simple cell itself.
	return tagged.Tagged(int32(pos), tagged.TagRef)
}

func spanAtAbs(vm *vmstate.VM, abs int) (int, error) {
	v, err := vm.Mem.ReadCellAbs(abs)
	if err != nil {
		return 0, err
	}
	val := tagged.Value(v)
	if tagged.IsList(val) {
		_, n := tagged.Decode(val)
		return int(n) + 1, nil
	}
	return 1, nil
}

// opFind resolves (ref, key) -> REF within an association list (a list
// of (key value) pairs), matching by STRING key equality, or NIL.
func opFind(vm *vmstate.VM) error {
	if err := vm.EnsureStackSize(2, "find"); err != nil {
		return err
	}
	keyVal, err := vm.Pop()
	if err != nil {
		return err
	}
	refVal, err := vm.Pop()
	if err != nil {
		return err
	}
	if !tagged.IsRef(refVal) {
		return vmstate.InvariantViolation{Message: "find expects REF"}
	}
	tag, payload := tagged.Decode(keyVal)
	if tag != tagged.TagString {
		return vmstate.InvariantViolation{Message: "find expects a STRING key"}
	}
	key, err := vm.Digest.Lookup(uint16(payload))
	if err != nil {
		return err
	}
	ref, err := findRef(vm, refVal, key)
	if err != nil {
		return err
	}
	return vm.Push(ref)
}

func opEnlist(vm *vmstate.VM) error {
	span, err := spanAt(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(span, "enlist"); err != nil {
		return err
	}
	header, err := tagged.Tagged(int32(span), tagged.TagList)
	if err != nil {
		return err
	}
	return vm.Push(header)
}

func opDropList(vm *vmstate.VM) error {
	n, err := listHeaderAt(vm, 0)
	if err != nil {
		return err
	}
	if err := vm.EnsureStackSize(n+1, "drop-list"); err != nil {
		return err
	}
	vm.SP -= uint32(n + 1)
	return nil
}
