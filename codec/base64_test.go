package codec

import (
	"bytes"
	"testing"
)

func TestBase64RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"f",
		"fo",
		"foo",
		"foob",
		"fooba",
		"foobar",
		"the quick brown fox jumps over the lazy dog, repeatedly, to make a long line",
	}
	c := Base64{First: Recommended, Lines: Recommended}
	for _, want := range cases {
		lines := c.Encode([]byte(want))
		for _, ln := range lines {
			if len(ln) > int(Recommended) {
				t.Errorf("Encode(%q): line %q exceeds policy", want, ln)
			}
			if len(ln)%4 != 0 && len(ln) != 0 {
				t.Errorf("Encode(%q): line %q not a multiple of 4", want, ln)
			}
		}
		got, err := c.Decode(lines)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) failed: %v", want, err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("Decode(Encode(%q)) = %q", want, got)
		}
	}
}

func TestBase64DecodeBadChar(t *testing.T) {
	c := Base64{}
	if _, err := c.Decode([][]byte{[]byte("abc!")}); err == nil {
		t.Error("Decode: want error for bad character")
	}
}
