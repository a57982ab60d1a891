// Package mem implements the Tacit memory image: one contiguous byte
// buffer divided into fixed segments (CODE, STACK, RSTACK, GLOBAL,
// STRING), with bounds-checked little-endian accessors. Generalizes the
// teacher's single fixed-size `stack [stackSize]byte` array into a
// multi-segment layout addressed the same way: raw byte-slice accessors
// plus a narrow set of typed helpers layered on top.
package mem

import "encoding/binary"

// CellBytes is the size of one cell: the unit of stack and register
// arithmetic throughout the VM.
const CellBytes = 4

// Segment identifies one of the five fixed regions of the memory image.
type Segment int

const (
	SegCode Segment = iota
	SegStack
	SegRStack
	SegGlobal
	SegString
)

func (s Segment) String() string {
	switch s {
	case SegCode:
		return "CODE"
	case SegStack:
		return "STACK"
	case SegRStack:
		return "RSTACK"
	case SegGlobal:
		return "GLOBAL"
	case SegString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Layout describes the byte size of each segment. Base addresses are
// derived by packing the segments back to back in the order above.
type Layout struct {
	CodeBytes   int
	StackBytes  int
	RStackBytes int
	GlobalBytes int
	StringBytes int
}

// MaxUnifiedCells bounds STACK+RSTACK+GLOBAL combined: a REF's tagged
// payload is only 16 bits (spec §3.1), so an absolute cell index into
// the unified data area can never exceed 0xFFFF.
const MaxUnifiedCells = 1 << 16

// DefaultLayout mirrors the teacher's 64KB-minimum-stack convention for
// CODE and STRING, but keeps STACK+RSTACK+GLOBAL within MaxUnifiedCells
// so every live cell stays addressable by a REF.
func DefaultLayout() Layout {
	return Layout{
		CodeBytes:   1 << 20, // 1Mi of bytecode, addressed via X1516 (22 usable bits)
		StackBytes:  4096 * CellBytes,
		RStackBytes: 4096 * CellBytes,
		GlobalBytes: (MaxUnifiedCells - 2*4096) * CellBytes,
		StringBytes: 1 << 20,
	}
}

// ErrOutOfRange is returned (always fatal, per spec) by any accessor
// whose address falls outside the addressed segment.
type ErrOutOfRange struct {
	Segment Segment
	Offset  int
	Size    int
}

func (e ErrOutOfRange) Error() string {
	return "mem: out of range access in " + e.Segment.String()
}

// Image is the backing buffer plus per-segment base/size bookkeeping.
type Image struct {
	buf []byte

	base [5]int
	size [5]int
}

// New allocates a fresh image for the given layout. Panics if
// STACK+RSTACK+GLOBAL would exceed MaxUnifiedCells, since such cells
// could never be addressed by a REF.
func New(l Layout) *Image {
	unifiedCells := (l.StackBytes + l.RStackBytes + l.GlobalBytes) / CellBytes
	if unifiedCells > MaxUnifiedCells {
		panic("mem: STACK+RSTACK+GLOBAL exceeds the 16-bit REF address space")
	}
	sizes := [5]int{l.CodeBytes, l.StackBytes, l.RStackBytes, l.GlobalBytes, l.StringBytes}
	img := &Image{}
	total := 0
	for i, sz := range sizes {
		img.base[i] = total
		img.size[i] = sz
		total += sz
	}
	img.buf = make([]byte, total)
	return img
}

// Base returns the byte offset at which seg begins in the backing buffer.
func (m *Image) Base(seg Segment) int { return m.base[seg] }

// Size returns the byte size of seg.
func (m *Image) Size(seg Segment) int { return m.size[seg] }

// Cells returns the cell capacity of seg.
func (m *Image) Cells(seg Segment) int { return m.size[seg] / CellBytes }

func (m *Image) checkByte(seg Segment, off, width int) error {
	if off < 0 || off+width > m.size[seg] {
		return ErrOutOfRange{Segment: seg, Offset: off, Size: width}
	}
	return nil
}

func (m *Image) slice(seg Segment, off, width int) []byte {
	start := m.base[seg] + off
	return m.buf[start : start+width]
}

// Read8 / Write8 access a single byte at a byte offset within seg.
func (m *Image) Read8(seg Segment, off int) (byte, error) {
	if err := m.checkByte(seg, off, 1); err != nil {
		return 0, err
	}
	return m.slice(seg, off, 1)[0], nil
}

func (m *Image) Write8(seg Segment, off int, v byte) error {
	if err := m.checkByte(seg, off, 1); err != nil {
		return err
	}
	m.slice(seg, off, 1)[0] = v
	return nil
}

// Read16 / Write16 access a little-endian 16-bit value.
func (m *Image) Read16(seg Segment, off int) (uint16, error) {
	if err := m.checkByte(seg, off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.slice(seg, off, 2)), nil
}

func (m *Image) Write16(seg Segment, off int, v uint16) error {
	if err := m.checkByte(seg, off, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.slice(seg, off, 2), v)
	return nil
}

// Read32 / Write32 access a little-endian 32-bit value.
func (m *Image) Read32(seg Segment, off int) (uint32, error) {
	if err := m.checkByte(seg, off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.slice(seg, off, 4)), nil
}

func (m *Image) Write32(seg Segment, off int, v uint32) error {
	if err := m.checkByte(seg, off, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.slice(seg, off, 4), v)
	return nil
}

// ReadFloat32 / WriteFloat32 access a cell as raw 32-bit bit pattern
// (callers reinterpret via tagged.Value / math.Float32frombits as
// needed; mem stays type-agnostic about tagging).
func (m *Image) ReadFloat32(seg Segment, off int) (uint32, error) { return m.Read32(seg, off) }
func (m *Image) WriteFloat32(seg Segment, off int, bits uint32) error {
	return m.Write32(seg, off, bits)
}

// ReadCell / WriteCell access cell index cellIdx (0-based within seg) as
// a 32-bit word — the standard unit for stacks, dictionary records, and
// list payloads.
func (m *Image) ReadCell(seg Segment, cellIdx int) (uint32, error) {
	return m.Read32(seg, cellIdx*CellBytes)
}

func (m *Image) WriteCell(seg Segment, cellIdx int, v uint32) error {
	return m.Write32(seg, cellIdx*CellBytes, v)
}

// CopyCells moves n cells from srcCell to dstCell within seg, with
// memmove semantics (safe for overlapping ranges), mirroring the
// teacher's raw-byte-slice storepX/loadpX helpers.
func (m *Image) CopyCells(seg Segment, dstCell, srcCell, n int) error {
	if n == 0 {
		return nil
	}
	width := n * CellBytes
	if err := m.checkByte(seg, srcCell*CellBytes, width); err != nil {
		return err
	}
	if err := m.checkByte(seg, dstCell*CellBytes, width); err != nil {
		return err
	}
	src := m.slice(seg, srcCell*CellBytes, width)
	dst := m.slice(seg, dstCell*CellBytes, width)
	copy(dst, src)
	return nil
}

// AppendBytes appends raw bytes to seg starting at byte offset off,
// returning an error if they would overflow the segment. Used by the
// string digest's bump allocation.
func (m *Image) AppendBytes(seg Segment, off int, data []byte) error {
	if err := m.checkByte(seg, off, len(data)); err != nil {
		return err
	}
	copy(m.slice(seg, off, len(data)), data)
	return nil
}

// ReadBytes returns a read-only view of n bytes at off within seg.
func (m *Image) ReadBytes(seg Segment, off, n int) ([]byte, error) {
	if err := m.checkByte(seg, off, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.slice(seg, off, n))
	return out, nil
}

// AbsoluteCell computes the absolute cell index (unified across STACK,
// RSTACK, GLOBAL) for a cell-index local to seg — used by REF values,
// which address the unified data area rather than a single segment.
// The unified space starts at STACK's first cell, not at byte 0 of the
// packed buffer: CODE precedes STACK in the buffer but a REF's 16-bit
// payload (spec §3.1) has no room to also carry CODE's offset, so CODE
// is excluded from this numbering entirely.
func (m *Image) AbsoluteCell(seg Segment, localCell int) int {
	return (m.base[seg]-m.base[SegStack])/CellBytes + localCell
}

// RegionOf classifies an absolute cell index (as carried by a REF) into
// the STACK/RSTACK/GLOBAL segment it falls within.
func (m *Image) RegionOf(absCell int) (seg Segment, localCell int, ok bool) {
	byteOff := absCell*CellBytes + m.base[SegStack]
	for _, seg := range []Segment{SegStack, SegRStack, SegGlobal} {
		base, size := m.base[seg], m.size[seg]
		if byteOff >= base && byteOff < base+size {
			return seg, (byteOff - base) / CellBytes, true
		}
	}
	return 0, 0, false
}

// ReadCellAbs / WriteCellAbs operate on an absolute cell index spanning
// the unified STACK/RSTACK/GLOBAL address space, as used by REF
// dereferencing.
func (m *Image) ReadCellAbs(absCell int) (uint32, error) {
	seg, local, ok := m.RegionOf(absCell)
	if !ok {
		return 0, ErrOutOfRange{Offset: absCell * CellBytes}
	}
	return m.ReadCell(seg, local)
}

func (m *Image) WriteCellAbs(absCell int, v uint32) error {
	seg, local, ok := m.RegionOf(absCell)
	if !ok {
		return ErrOutOfRange{Offset: absCell * CellBytes}
	}
	return m.WriteCell(seg, local, v)
}

// CopyCellsAbs moves n cells between two absolute cell ranges, each of
// which must lie entirely within a single segment (list payloads never
// span segments).
func (m *Image) CopyCellsAbs(dstAbs, srcAbs, n int) error {
	dstSeg, dstLocal, ok := m.RegionOf(dstAbs)
	if !ok {
		return ErrOutOfRange{Offset: dstAbs * CellBytes}
	}
	srcSeg, srcLocal, ok := m.RegionOf(srcAbs)
	if !ok {
		return ErrOutOfRange{Offset: srcAbs * CellBytes}
	}
	if dstSeg != srcSeg {
		// Cross-segment copies (e.g. stack -> global on gpush) go
		// through a temporary buffer since CopyCells assumes one segment.
		buf := make([]uint32, n)
		for i := 0; i < n; i++ {
			v, err := m.ReadCell(srcSeg, srcLocal+i)
			if err != nil {
				return err
			}
			buf[i] = v
		}
		for i := 0; i < n; i++ {
			if err := m.WriteCell(dstSeg, dstLocal+i, buf[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return m.CopyCells(dstSeg, dstLocal, srcLocal, n)
}
