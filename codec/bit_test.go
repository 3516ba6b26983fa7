package codec

import "testing"

func TestBit7RoundTripMultiline(t *testing.T) {
	c := Bit7{First: Recommended, Lines: Recommended}
	want := "first line\r\nsecond line\r\nthird"
	lines, err := c.Encode([]byte(want))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("Encode: want 3 lines, got %d: %q", len(lines), lines)
	}
	got, err := c.Decode(lines)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("Decode(Encode(%q)) = %q", want, got)
	}
}

func TestBit7RejectsLoneCR(t *testing.T) {
	c := Bit7{First: Recommended, Lines: Recommended}
	if _, err := c.Encode([]byte("bad\rline")); err == nil {
		t.Error("Encode: want error for lone CR, got nil")
	}
}

func TestBit7Fold(t *testing.T) {
	// With distinct First/Lines policies, Encode prefers to break at the
	// last space/comma/semicolon before the limit (RFC 5322 folding);
	// this inserts a CRLF the decoder does not undo, so a fold is not
	// expected to round-trip byte-for-byte.
	c := Bit7{First: 5, Lines: 20}
	data := []byte("aa bb cc dd")
	lines, err := c.Encode(data)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("Encode: want folded output, got %d lines", len(lines))
	}
	if _, err := c.Decode(lines); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
}

func TestBit8RoundTripMultiline(t *testing.T) {
	c := Bit8{First: Recommended, Lines: Recommended}
	want := "héllo\r\nwörld"
	lines, err := c.Encode([]byte(want))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := c.Decode(lines)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("Decode(Encode(%q)) = %q", want, got)
	}
}
