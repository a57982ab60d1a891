// Package digest implements Tacit's string interning table: an
// append-only byte buffer over the STRING segment with a hash index for
// O(1) lookup by content, generalizing the teacher's paired
// strToInstrMap/instrToStrMap idiom (string<->id, both directions) into
// a runtime-growable table instead of a fixed init()-time one.
package digest

import (
	"encoding/binary"
	"fmt"

	"gotacit/internal/mem"
)

// Digest interns strings into 16-bit ids backed by img's STRING segment.
type Digest struct {
	img    *mem.Image
	bump   int            // next free byte offset in STRING
	index  map[string]uint16
	ids    []int // id -> byte offset of its length-prefixed record
}

// New constructs an empty digest over img.
func New(img *mem.Image) *Digest {
	return &Digest{
		img:   img,
		index: make(map[string]uint16),
	}
}

// ErrDigestFull is returned when interning would overflow the STRING
// segment or exceed the 16-bit id space.
type ErrDigestFull struct{ Reason string }

func (e ErrDigestFull) Error() string { return "digest: " + e.Reason }

// Intern returns the id for s, assigning a new one (and appending s's
// bytes to STRING as a length-prefixed record) only the first time s is
// seen. Repeat calls are idempotent (spec §5).
func (d *Digest) Intern(s string) (uint16, error) {
	if id, ok := d.index[s]; ok {
		return id, nil
	}

	if len(d.ids) >= 0x10000 {
		return 0, ErrDigestFull{Reason: "id space exhausted"}
	}
	if len(s) > 0xFFFF {
		return 0, ErrDigestFull{Reason: "string too long"}
	}

	record := make([]byte, 2+len(s))
	binary.LittleEndian.PutUint16(record, uint16(len(s)))
	copy(record[2:], s)

	if err := d.img.AppendBytes(mem.SegString, d.bump, record); err != nil {
		return 0, ErrDigestFull{Reason: "STRING segment exhausted"}
	}

	id := uint16(len(d.ids))
	d.ids = append(d.ids, d.bump)
	d.index[s] = id
	d.bump += len(record)
	return id, nil
}

// Lookup returns the original bytes interned under id.
func (d *Digest) Lookup(id uint16) (string, error) {
	if int(id) >= len(d.ids) {
		return "", fmt.Errorf("digest: unknown string id %d", id)
	}
	off := d.ids[id]
	lenBytes, err := d.img.ReadBytes(mem.SegString, off, 2)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint16(lenBytes))
	data, err := d.img.ReadBytes(mem.SegString, off+2, n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
