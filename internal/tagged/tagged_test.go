package tagged

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestTaggedRoundTrip(t *testing.T) {
	tags := []Tag{TagInteger, TagCode, TagSentinel, TagString, TagList, TagBuiltin, TagRef}
	for _, tag := range tags {
		lo, hi := int32(0), int32(0xFFFF)
		if tag == TagInteger {
			lo, hi = -32768, 32767
		}

		for _, value := range []int32{lo, hi, (lo + hi) / 2} {
			v, err := Tagged(value, tag)
			assert(t, err == nil, "Tagged(%d, %s) failed: %v", value, tag, err)

			gotTag, gotValue := Decode(v)
			assert(t, gotTag == tag, "got tag %s want %s", gotTag, tag)
			assert(t, gotValue == value, "got value %d want %d", gotValue, value)
		}
	}
}

func TestTaggedRejectsOutOfRange(t *testing.T) {
	_, err := Tagged(0x10000, TagString)
	assert(t, err != nil, "expected range error for string payload 0x10000")

	_, err = Tagged(32768, TagInteger)
	assert(t, err != nil, "expected range error for integer payload 32768")

	_, err = Tagged(-32769, TagInteger)
	assert(t, err != nil, "expected range error for integer payload -32769")
}

func TestNilSentinel(t *testing.T) {
	assert(t, IsNil(Nil), "Nil value should report IsNil")
	tag, payload := Decode(Nil)
	assert(t, tag == TagSentinel && payload == int32(SentinelNIL), "Nil should decode to SENTINEL:NIL")
}

func TestNumberIsImplicit(t *testing.T) {
	v := FromFloat32(3.5)
	tag, _ := Decode(v)
	assert(t, tag == TagNumber, "finite float should decode as NUMBER, got %s", tag)
	assert(t, AsFloat32(v) == 3.5, "finite float round trip failed")
}

func TestCodeAddrRoundTrip(t *testing.T) {
	for _, addr := range []uint32{0, 1, 128, 65535, MaxCodeAddr} {
		v, err := EncodeCodeAddr(addr)
		assert(t, err == nil, "EncodeCodeAddr(%d) failed: %v", addr, err)
		assert(t, IsCode(v), "expected %d to decode as code addr", addr)

		got, ok := DecodeCodeAddr(v)
		assert(t, ok, "DecodeCodeAddr failed for %d", addr)
		assert(t, got == addr, "got %d want %d", got, addr)
	}

	_, err := EncodeCodeAddr(MaxCodeAddr + 1)
	assert(t, err != nil, "expected range error for over-max code address")
}

func TestCodeAddrDoesNotCollideWithInfinity(t *testing.T) {
	var zero float32
	posInf := FromFloat32(1 / zero)
	assert(t, !IsCode(posInf), "positive infinity must not decode as a code address")
	assert(t, !IsNaNBoxed(posInf), "positive infinity must not decode as a tagged value")
}

func TestSanitizeFloatClampsNaN(t *testing.T) {
	var zero float32
	v := SanitizeFloat(zero / zero)
	assert(t, !IsNaNBoxed(v) && !IsCode(v), "sanitized NaN must not collide with tag space")
}
