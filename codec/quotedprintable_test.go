package codec

import (
	"bytes"
	"testing"
)

func TestQuotedPrintableRoundTrip(t *testing.T) {
	cases := []string{
		"hello world",
		"trailing space \t",
		"bytes \x00\x01\xffhere",
		"equals=sign",
	}
	c := QuotedPrintable{First: Recommended, Lines: Recommended}
	for _, want := range cases {
		lines, err := c.Encode([]byte(want))
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", want, err)
		}
		got, err := c.Decode(lines)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) failed: %v", want, err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("Decode(Encode(%q)) = %q, want %q", want, got, want)
		}
	}
}

func TestQuotedPrintableQMode(t *testing.T) {
	c := QuotedPrintable{First: Recommended, Lines: Recommended, QMode: true}
	lines, err := c.Encode([]byte("a b_c?d"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("QMode Encode: want a single word, got %d lines", len(lines))
	}
	got := string(lines[0])
	want := "a_b=5Fc=3Fd"
	if got != want {
		t.Errorf("QMode Encode(%q) = %q, want %q", "a b_c?d", got, want)
	}
}

func TestQuotedPrintableSoftBreak(t *testing.T) {
	c := QuotedPrintable{First: 10, Lines: 10}
	data := bytes.Repeat([]byte("x"), 25)
	lines, err := c.Encode(data)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(lines) < 3 {
		t.Fatalf("Encode: want soft-wrapped output, got %d lines", len(lines))
	}
	for _, ln := range lines[:len(lines)-1] {
		if ln[len(ln)-1] != '=' {
			t.Errorf("Encode: non-final line %q missing soft break", ln)
		}
	}
	got, err := c.Decode(lines)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decode(Encode(data)) = %q, want %q", got, data)
	}
}
