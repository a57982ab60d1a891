// Package format renders tagged values as human-readable text for the
// `.` and `print` opcodes (spec §6.4), grounded on the teacher's
// Instruction.String()/Bytecode.String() Stringer pattern (vm/bytecode.go)
// generalized from "opcode name" to "runtime value" rendering.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gotacit/internal/tagged"
	"gotacit/internal/vmstate"
)

// Value renders the value at depth cells below TOS (0 = TOS), including
// its full span if it is a LIST, returning the rendered text and the
// number of cells it occupies.
func Value(vm *vmstate.VM, depth int) (string, int, error) {
	v, err := vm.Peek(depth)
	if err != nil {
		return "", 0, err
	}

	tag, payload := tagged.Decode(v)
	switch {
	case tagged.IsCode(v):
		addr, _ := tagged.DecodeCodeAddr(v)
		return fmt.Sprintf("[CODE:%d]", addr), 1, nil
	case tag == tagged.TagNumber:
		return formatNumber(tagged.AsFloat32(v)), 1, nil
	case tag == tagged.TagInteger:
		return strconv.Itoa(int(payload)), 1, nil
	case tag == tagged.TagString:
		s, err := vm.Digest.Lookup(uint16(payload))
		if err != nil {
			return "", 0, err
		}
		return quoteString(s), 1, nil
	case tag == tagged.TagSentinel && payload == int32(tagged.SentinelNIL):
		return "nil", 1, nil
	case tag == tagged.TagRef:
		return fmt.Sprintf("[REF:%d]", payload), 1, nil
	case tag == tagged.TagBuiltin:
		return fmt.Sprintf("[BUILTIN:%d]", payload), 1, nil
	case tag == tagged.TagList:
		return formatList(vm, depth, int(payload))
	default:
		return fmt.Sprintf("[%s:%d]", tag, payload), 1, nil
	}
}

func formatList(vm *vmstate.VM, headerDepth, slots int) (string, int, error) {
	if slots == 0 {
		return "()", 1, nil
	}
	var parts []string
	depth := headerDepth + 1
	consumed := 1
	for consumed-1 < slots {
		s, span, err := Value(vm, depth)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, s)
		depth += span
		consumed += span
	}
	// Elements were written shallowest-first = logical order p1..pn
	// (spec §4.5.6), so parts is already in source order.
	return "( " + strings.Join(parts, " ") + " )", consumed, nil
}

// formatNumber renders the shortest decimal form, printing integral
// values (or values within 1e-4 of one) without a fractional part.
func formatNumber(f float32) string {
	rounded := math.Round(float64(f))
	if math.Abs(float64(f)-rounded) < 1e-4 {
		return strconv.FormatInt(int64(rounded), 10)
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Raw renders the value's internal representation (bit pattern plus
// decoded tag) for the `print` opcode, distinct from the user-facing `.`
// rendering produced by Value.
func Raw(vm *vmstate.VM, depth int) (string, int, error) {
	v, err := vm.Peek(depth)
	if err != nil {
		return "", 0, err
	}
	if tagged.IsList(v) {
		_, slots := tagged.Decode(v)
		return formatListRaw(vm, depth, int(slots))
	}
	tag, payload := tagged.Decode(v)
	if tagged.IsCode(v) {
		addr, _ := tagged.DecodeCodeAddr(v)
		return fmt.Sprintf("CODE(%d)", addr), 1, nil
	}
	return fmt.Sprintf("%s(%d)#%08X", tag, payload, uint32(v)), 1, nil
}

func formatListRaw(vm *vmstate.VM, headerDepth, slots int) (string, int, error) {
	var parts []string
	depth := headerDepth + 1
	consumed := 1
	for consumed-1 < slots {
		s, span, err := Raw(vm, depth)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, s)
		depth += span
		consumed += span
	}
	return "LIST(" + strings.Join(parts, ", ") + ")", consumed, nil
}
