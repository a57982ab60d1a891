package mem

import "testing"

func TestCellReadWrite(t *testing.T) {
	img := New(Layout{CodeBytes: 16, StackBytes: 16, RStackBytes: 16, GlobalBytes: 16, StringBytes: 16})

	if err := img.WriteCell(SegStack, 0, 0xDEADBEEF); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	got, err := img.ReadCell(SegStack, 0)
	if err != nil {
		t.Fatalf("ReadCell failed: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("got %x want %x", got, 0xDEADBEEF)
	}
}

func TestOutOfRange(t *testing.T) {
	img := New(Layout{CodeBytes: 4, StackBytes: 4, RStackBytes: 4, GlobalBytes: 4, StringBytes: 4})
	if err := img.WriteCell(SegStack, 1, 1); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestRegionOfAndAbsCell(t *testing.T) {
	img := New(Layout{CodeBytes: 8, StackBytes: 8, RStackBytes: 8, GlobalBytes: 8, StringBytes: 8})

	abs := img.AbsoluteCell(SegGlobal, 1)
	seg, local, ok := img.RegionOf(abs)
	if !ok || seg != SegGlobal || local != 1 {
		t.Fatalf("RegionOf(%d) = (%s, %d, %v), want (GLOBAL, 1, true)", abs, seg, local, ok)
	}
}

func TestAbsoluteCellExcludesCode(t *testing.T) {
	img := New(DefaultLayout())

	if abs := img.AbsoluteCell(SegStack, 0); abs != 0 {
		t.Fatalf("AbsoluteCell(SegStack, 0) = %d, want 0 (CODE must not shift the unified address space)", abs)
	}
	if abs := img.AbsoluteCell(SegStack, 0); abs > 0xFFFF {
		t.Fatalf("AbsoluteCell(SegStack, 0) = %d, exceeds a REF's 16-bit payload", abs)
	}
	if abs := img.AbsoluteCell(SegRStack, 0); abs > 0xFFFF {
		t.Fatalf("AbsoluteCell(SegRStack, 0) = %d, exceeds a REF's 16-bit payload", abs)
	}
	if abs := img.AbsoluteCell(SegGlobal, 0); abs > 0xFFFF {
		t.Fatalf("AbsoluteCell(SegGlobal, 0) = %d, exceeds a REF's 16-bit payload", abs)
	}
}

func TestCopyCellsAbsCrossSegment(t *testing.T) {
	img := New(Layout{CodeBytes: 8, StackBytes: 8, RStackBytes: 8, GlobalBytes: 8, StringBytes: 8})
	stackAbs := img.AbsoluteCell(SegStack, 0)
	globalAbs := img.AbsoluteCell(SegGlobal, 0)

	if err := img.WriteCell(SegStack, 0, 42); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	if err := img.CopyCellsAbs(globalAbs, stackAbs, 1); err != nil {
		t.Fatalf("CopyCellsAbs failed: %v", err)
	}
	got, _ := img.ReadCell(SegGlobal, 0)
	if got != 42 {
		t.Fatalf("got %d want 42", got)
	}
}
