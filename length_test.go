package routeros

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeLengthRoundTrip(t *testing.T) {
	cases := []int{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000, 0xFFFFFFF, 0x10000000, 1 << 20}

	for _, length := range cases {
		encoded := encodeLength(length)
		decoded, width, err := decodeLength(encoded)
		if err != nil {
			t.Fatalf("decodeLength(%d): unexpected error: %v", length, err)
		}
		if decoded != length {
			t.Errorf("decodeLength(encodeLength(%d)) = %d, want %d", length, decoded, length)
		}
		if width != len(encoded) {
			t.Errorf("decodeLength(encodeLength(%d)) width = %d, want %d", length, width, len(encoded))
		}
	}
}

func TestEncodeLengthWidths(t *testing.T) {
	cases := []struct {
		length int
		width  int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1FFFFF, 3},
		{0x200000, 4},
		{0xFFFFFFF, 4},
		{0x10000000, 5},
	}
	for _, c := range cases {
		if got := len(encodeLength(c.length)); got != c.width {
			t.Errorf("encodeLength(%d) produced %d bytes, want %d", c.length, got, c.width)
		}
	}
}

func TestDecodeLengthNeedsMoreData(t *testing.T) {
	full := encodeLength(0x200000) // 4-byte prefix
	for i := 0; i < len(full); i++ {
		_, _, err := decodeLength(full[:i])
		if err != errNeedMoreData {
			t.Errorf("decodeLength(%d of %d bytes) = %v, want errNeedMoreData", i, len(full), err)
		}
	}
}

func TestDecodeLengthInvalidPrefix(t *testing.T) {
	// 0xF8 does not match any of the five defined widths.
	_, _, err := decodeLength([]byte{0xF8, 0x00})
	if err != errInvalidLength {
		t.Errorf("decodeLength([0xF8,...]) = %v, want errInvalidLength", err)
	}
}

func TestDecodeLengthZeroIsSingleByteTerminator(t *testing.T) {
	length, width, err := decodeLength([]byte{0x00, 0xFF, 0xFF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != 0 || width != 1 {
		t.Errorf("decodeLength(terminator) = (%d, %d), want (0, 1)", length, width)
	}
}

func TestEncodeWordAndSentence(t *testing.T) {
	got := encodeSentence("/login", "=name=admin")
	var want bytes.Buffer
	want.Write(encodeWord("/login"))
	want.Write(encodeWord("=name=admin"))
	want.WriteByte(0)

	if !bytes.Equal(got, want.Bytes()) {
		t.Errorf("encodeSentence mismatch:\n got  %v\n want %v", got, want.Bytes())
	}
}

func TestEncodeSentenceEmpty(t *testing.T) {
	got := encodeSentence()
	if !bytes.Equal(got, []byte{0}) {
		t.Errorf("encodeSentence() = %v, want a single zero-length terminator word", got)
	}
}
