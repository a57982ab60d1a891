package dict

import (
	"testing"

	"gotacit/internal/digest"
	"gotacit/internal/mem"
	"gotacit/internal/tagged"
)

func assert(t *testing.T, cond bool, format string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

type bumpAllocator struct {
	img *mem.Image
	gp  int
}

func (b *bumpAllocator) Allocate(v tagged.Value) (int, error) {
	abs := b.img.AbsoluteCell(mem.SegGlobal, b.gp)
	if err := b.img.WriteCellAbs(abs, uint32(v)); err != nil {
		return 0, err
	}
	b.gp++
	return abs, nil
}

func newTestDict() (*Dictionary, *bumpAllocator) {
	img := mem.New(mem.Layout{CodeBytes: 64, StackBytes: 64, RStackBytes: 64, GlobalBytes: 4096, StringBytes: 4096})
	dg := digest.New(img)
	return New(img, dg), &bumpAllocator{img: img}
}

func TestDefineAndLookup(t *testing.T) {
	d, alloc := newTestDict()

	_, err := d.Define(alloc, "square", tagged.Value(42))
	assert(t, err == nil, "define failed: %v", err)

	v, err := d.Lookup("square")
	assert(t, err == nil, "lookup failed: %v", err)
	assert(t, v == tagged.Value(42), "got %v want 42", v)

	_, err = d.Lookup("missing")
	assert(t, err == nil, "lookup of missing name errored: %v", err)
}

func TestRedefinitionShadows(t *testing.T) {
	d, alloc := newTestDict()

	_, err := d.Define(alloc, "x", tagged.Value(1))
	assert(t, err == nil, "first define failed: %v", err)
	_, err = d.Define(alloc, "x", tagged.Value(2))
	assert(t, err == nil, "second define failed: %v", err)

	v, _ := d.Lookup("x")
	assert(t, v == tagged.Value(2), "got %v want 2 (most recent wins)", v)
}

func TestHideHeadHidesFromLookup(t *testing.T) {
	d, alloc := newTestDict()
	_, err := d.Define(alloc, "recur", tagged.Value(7))
	assert(t, err == nil, "define failed: %v", err)

	assert(t, d.HideHead() == nil, "hide head failed")
	v, _ := d.Lookup("recur")
	assert(t, v == tagged.Nil, "expected hidden entry invisible to Lookup, got %v", v)

	e, err := d.FindAnyByName("recur")
	assert(t, err == nil && e != nil, "expected FindAnyByName to still find hidden entry")
	assert(t, e.Hidden, "expected entry to be marked hidden")

	assert(t, d.UnhideHead() == nil, "unhide head failed")
	v, _ = d.Lookup("recur")
	assert(t, v == tagged.Value(7), "expected visible again after unhide, got %v", v)
}

func TestForgetRewindsHead(t *testing.T) {
	d, alloc := newTestDict()

	_, err := d.Define(alloc, "a", tagged.Value(1))
	assert(t, err == nil, "define a failed: %v", err)
	mark := d.Head()

	_, err = d.Define(alloc, "b", tagged.Value(2))
	assert(t, err == nil, "define b failed: %v", err)

	assert(t, d.Forget(mark+1) == nil, "forget failed")

	v, _ := d.Lookup("b")
	assert(t, v == tagged.Nil, "expected b forgotten")
	v, _ = d.Lookup("a")
	assert(t, v == tagged.Value(1), "expected a to survive forget")
}

func TestForgetRejectsNegativeMark(t *testing.T) {
	d, _ := newTestDict()
	err := d.Forget(-1)
	assert(t, err != nil, "expected error for negative mark")
}
