// Package dict implements Tacit's dictionary: an append-only linked list
// of named entries stored in GLOBAL cells, each a three-cell record
// ([name, payload, link]) followed by a header cell, walked the same way
// the teacher's compile pipeline walks its flat []Instruction array — a
// sequence of fixed-size records in a flat buffer, indexed by position.
package dict

import (
	"fmt"

	"gotacit/internal/digest"
	"gotacit/internal/mem"
	"gotacit/internal/tagged"
)

const (
	hiddenBit  = uint32(1) << 16
	nameIDMask = uint32(0xFFFF)
)

// Entry is the decoded view of one dictionary record, returned by
// FindEntryByName and FindAnyByName for internal collaborators
// (include's pragma-once guard, the compiler's redefinition logic).
type Entry struct {
	HeaderCell int // absolute cell index of the entry's header cell
	RecordCell int // absolute cell index of the entry's record start
	Name       string
	Payload    tagged.Value
	Hidden     bool
}

// Dictionary owns the GLOBAL-backed linked list plus the digest used to
// intern entry names.
type Dictionary struct {
	img    *mem.Image
	digest *digest.Digest
	head   int // absolute cell index of the most recent entry's header; 0 = empty
}

// New constructs an empty dictionary over img, interning names via dg.
func New(img *mem.Image, dg *digest.Digest) *Dictionary {
	return &Dictionary{img: img, digest: dg}
}

// Head returns the current head cell (for mark/forget bookkeeping by
// callers that need to snapshot dictionary state alongside GP).
func (d *Dictionary) Head() int { return d.head }

// SetHead restores a previously captured head (used by forget).
func (d *Dictionary) SetHead(head int) { d.head = head }

// CellAllocator bump-allocates GLOBAL cells on behalf of the dictionary.
// dict doesn't own GP itself — that lives on vmstate so that GP, the
// dictionary, and the global heap all advance through one counter.
// Define takes an allocator so dict doesn't need to import vmstate
// (which already imports dict) and create a cycle.
type CellAllocator interface {
	// Allocate bump-allocates one GLOBAL cell initialized to v and
	// returns its absolute cell index.
	Allocate(v tagged.Value) (int, error)
}

// Define appends a new entry named name with the given payload, using
// alloc to bump-allocate its four cells (record + header) on GLOBAL.
// Redefinition simply appends a new, shadowing entry (spec §4.5.4): the
// dictionary never mutates or removes an older entry, so bodies that
// already compiled a call to it keep working unchanged.
func (d *Dictionary) Define(alloc CellAllocator, name string, payload tagged.Value) (*Entry, error) {
	nameID, err := d.digest.Intern(name)
	if err != nil {
		return nil, err
	}

	nameCell := tagged.Value(uint32(nameID))
	recordStart, err := alloc.Allocate(nameCell)
	if err != nil {
		return nil, err
	}
	if _, err := alloc.Allocate(payload); err != nil {
		return nil, err
	}
	linkCell, err := alloc.Allocate(tagged.Value(uint32(d.head)))
	if err != nil {
		return nil, err
	}
	_ = linkCell

	headerCell, err := alloc.Allocate(tagged.Value(uint32(recordStart)))
	if err != nil {
		return nil, err
	}

	d.head = headerCell
	return &Entry{
		HeaderCell: headerCell,
		RecordCell: recordStart,
		Name:       name,
		Payload:    payload,
	}, nil
}

func (d *Dictionary) readEntryAt(headerCell int) (*Entry, error) {
	recordStartRaw, err := d.img.ReadCellAbs(headerCell)
	if err != nil {
		return nil, err
	}
	recordStart := int(recordStartRaw)

	nameCellRaw, err := d.img.ReadCellAbs(recordStart)
	if err != nil {
		return nil, err
	}
	payloadRaw, err := d.img.ReadCellAbs(recordStart + 1)
	if err != nil {
		return nil, err
	}
	if _, err := d.img.ReadCellAbs(recordStart + 2); err != nil {
		return nil, err
	}

	nameID := uint16(nameCellRaw & nameIDMask)
	name, err := d.digest.Lookup(nameID)
	if err != nil {
		return nil, err
	}

	return &Entry{
		HeaderCell: headerCell,
		RecordCell: recordStart,
		Name:       name,
		Payload:    tagged.Value(payloadRaw),
		Hidden:     nameCellRaw&hiddenBit != 0,
	}, nil
}

func (d *Dictionary) linkOf(e *Entry) (int, error) {
	linkRaw, err := d.img.ReadCellAbs(e.RecordCell + 2)
	if err != nil {
		return 0, err
	}
	return int(linkRaw), nil
}

// Lookup walks head -> link skipping hidden entries, returning the
// payload of the first visible entry named name (Forth-style shadowing:
// most recent definition wins). Returns tagged.Nil if not found.
func (d *Dictionary) Lookup(name string) (tagged.Value, error) {
	e, err := d.FindEntryByName(name)
	if err != nil {
		return tagged.Nil, err
	}
	if e == nil {
		return tagged.Nil, nil
	}
	return e.Payload, nil
}

// FindEntryByName returns the most recent visible entry named name,
// skipping hidden ones (FindAnyByName includes them). Returns (nil, nil)
// if not found.
func (d *Dictionary) FindEntryByName(name string) (*Entry, error) {
	cell := d.head
	for cell != 0 {
		e, err := d.readEntryAt(cell)
		if err != nil {
			return nil, err
		}
		if !e.Hidden && e.Name == name {
			return e, nil
		}
		if e.Hidden && e.Name == name {
			// Hidden entries are skipped here; FindAnyByName returns them
			// (include's pragma-once guard uses that).
		}
		link, err := d.linkOf(e)
		if err != nil {
			return nil, err
		}
		cell = link
	}
	return nil, nil
}

// findAnyByName returns the first entry (hidden or not) named name,
// used by include's pragma-once check which must see its own guard
// entry even while hidden.
func (d *Dictionary) findAnyByName(name string) (*Entry, error) {
	cell := d.head
	for cell != 0 {
		e, err := d.readEntryAt(cell)
		if err != nil {
			return nil, err
		}
		if e.Name == name {
			return e, nil
		}
		link, err := d.linkOf(e)
		if err != nil {
			return nil, err
		}
		cell = link
	}
	return nil, nil
}

// FindAnyByName is the exported form of findAnyByName.
func (d *Dictionary) FindAnyByName(name string) (*Entry, error) { return d.findAnyByName(name) }

func (d *Dictionary) setFlag(headerCell int, bit uint32, set bool) error {
	recordStartRaw, err := d.img.ReadCellAbs(headerCell)
	if err != nil {
		return err
	}
	recordStart := int(recordStartRaw)
	nameCellRaw, err := d.img.ReadCellAbs(recordStart)
	if err != nil {
		return err
	}
	if set {
		nameCellRaw |= bit
	} else {
		nameCellRaw &^= bit
	}
	return d.img.WriteCellAbs(recordStart, nameCellRaw)
}

// HideEntry / UnhideEntry toggle the hidden flag on a specific entry.
func (d *Dictionary) HideEntry(e *Entry) error   { return d.setFlag(e.HeaderCell, hiddenBit, true) }
func (d *Dictionary) UnhideEntry(e *Entry) error { return d.setFlag(e.HeaderCell, hiddenBit, false) }

// HideHead / UnhideHead toggle the hidden flag on the most recent entry
// (used while a definition's body is compiling, so it cannot reference
// itself by name except via recurse).
func (d *Dictionary) HideHead() error {
	if d.head == 0 {
		return fmt.Errorf("dict: hide head on empty dictionary")
	}
	return d.setFlag(d.head, hiddenBit, true)
}

func (d *Dictionary) UnhideHead() error {
	if d.head == 0 {
		return fmt.Errorf("dict: unhide head on empty dictionary")
	}
	return d.setFlag(d.head, hiddenBit, false)
}

// ErrForgetOutOfRange is returned when Forget's mark is invalid.
type ErrForgetOutOfRange struct{ Mark int }

func (e ErrForgetOutOfRange) Error() string {
	return fmt.Sprintf("dict: forget mark out of range: %d", e.Mark)
}

// Forget rewalks head backward until it points at an entry that still
// lives below markCell (the absolute GLOBAL cell boundary the caller is
// restoring GP to). The caller is responsible for actually rewinding GP;
// Forget only fixes up the dictionary's head pointer to match.
func (d *Dictionary) Forget(markCell int) error {
	if markCell < 0 {
		return ErrForgetOutOfRange{Mark: markCell}
	}
	cell := d.head
	for cell != 0 && cell >= markCell {
		e, err := d.readEntryAt(cell)
		if err != nil {
			return err
		}
		link, err := d.linkOf(e)
		if err != nil {
			return err
		}
		cell = link
	}
	d.head = cell
	return nil
}
